package httpserver

import (
	"strings"
	"testing"
)

func TestFromMap_PublicServer(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"name": "warehouse",
		"url":  "https://duck.internal:4443/warehouse",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NeedsSecret() {
		t.Error("server without token must not need a secret")
	}

	stmt, err := driver{}.AttachStatement(cfg, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `ATTACH 'https://duck.internal:4443/warehouse' AS "warehouse" (READ_ONLY)`
	if stmt.SQL != want {
		t.Errorf("attach statement mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
}

func TestFromMap_TokenSecret(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"name":  "warehouse",
		"url":   "https://duck.internal:4443/warehouse",
		"token": "srvtoken",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	secret, err := driver{}.SecretStatement(cfg, "skiff_sec_warehouse_feedface")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(secret.SQL, "BEARER_TOKEN 'srvtoken'") {
		t.Errorf("unexpected secret statement: %s", secret.SQL)
	}
}

func TestFromMap_RejectsNonHTTP(t *testing.T) {
	if _, err := FromMap(map[string]any{"name": "w", "url": "s3://bucket/db"}); err == nil {
		t.Error("expected error for non-http scheme")
	}
}
