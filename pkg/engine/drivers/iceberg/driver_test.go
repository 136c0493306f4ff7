package iceberg

import (
	"strings"
	"testing"

	"github.com/skiff-data/skiff-engine/pkg/engine/drivers"
)

func TestFromMap_OAuth2(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"name":          "lake",
		"warehouse":     "analytics_wh",
		"endpoint":      "https://catalog.example.com/v1",
		"auth_type":     "oauth2",
		"client_id":     "cid",
		"client_secret": "csecret",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := driver{}
	secret, err := d.SecretStatement(cfg, "skiff_sec_lake_cafe0123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"TYPE ICEBERG", "CLIENT_ID 'cid'", "CLIENT_SECRET 'csecret'"} {
		if !strings.Contains(secret.SQL, want) {
			t.Errorf("secret statement missing %q:\n%s", want, secret.SQL)
		}
	}
	if strings.Contains(secret.Redacted(), "csecret") {
		t.Errorf("redacted secret statement leaks client secret: %s", secret.Redacted())
	}

	attach, err := d.AttachStatement(cfg, "skiff_sec_lake_cafe0123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `ATTACH 'analytics_wh' AS "lake" (TYPE iceberg, ENDPOINT 'https://catalog.example.com/v1', SECRET "skiff_sec_lake_cafe0123")`
	if attach.SQL != want {
		t.Errorf("attach statement mismatch:\n got: %s\nwant: %s", attach.SQL, want)
	}
}

func TestFromMap_AuthValidation(t *testing.T) {
	base := func() map[string]any {
		return map[string]any{
			"name":      "lake",
			"warehouse": "wh",
			"endpoint":  "https://catalog.example.com/v1",
		}
	}

	// oauth2 without client credentials
	raw := base()
	raw["auth_type"] = "oauth2"
	if _, err := FromMap(raw); err == nil {
		t.Error("expected error for oauth2 without client_id")
	}

	// bearer without token
	raw = base()
	raw["auth_type"] = "bearer"
	if _, err := FromMap(raw); err == nil {
		t.Error("expected error for bearer without token")
	}

	// unknown auth type
	raw = base()
	raw["auth_type"] = "kerberos"
	if _, err := FromMap(raw); err == nil {
		t.Error("expected error for unknown auth type")
	}

	// none is fine and needs no secret
	cfg, err := FromMap(base())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NeedsSecret() {
		t.Error("auth none must not need a secret")
	}
}

func TestVerificationBudget_IsSlow(t *testing.T) {
	if got := (driver{}).VerificationBudget(); got != drivers.SlowVerification() {
		t.Errorf("expected slow verification budget, got %+v", got)
	}
}
