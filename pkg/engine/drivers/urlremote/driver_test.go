package urlremote

import (
	"strings"
	"testing"
)

func TestFromMap_PublicHTTPS(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"name": "sales_db",
		"url":  "https://example.com/datasets/sales.duckdb",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.ReadOnly {
		t.Error("expected read-only default for remote files")
	}
	if cfg.NeedsSecret() {
		t.Error("public https url must not need a secret")
	}

	stmt, err := driver{}.AttachStatement(cfg, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `ATTACH 'https://example.com/datasets/sales.duckdb' AS "sales_db" (READ_ONLY)`
	if stmt.SQL != want {
		t.Errorf("attach statement mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
}

func TestFromMap_S3WithCredentials(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"name":   "events",
		"url":    "s3://analytics-bucket/events.duckdb",
		"key_id": "AKIAEXAMPLE",
		"secret": "wJalrXUtnFEMI",
		"region": "us-east-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.NeedsSecret() {
		t.Fatal("s3 url with key_id must need a secret")
	}

	d := driver{}
	secret, err := d.SecretStatement(cfg, "skiff_sec_events_01234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"TYPE S3", "KEY_ID 'AKIAEXAMPLE'", "REGION 'us-east-1'"} {
		if !strings.Contains(secret.SQL, want) {
			t.Errorf("secret statement missing %q:\n%s", want, secret.SQL)
		}
	}

	attach, err := d.AttachStatement(cfg, "skiff_sec_events_01234567")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(attach.SQL, `SECRET "skiff_sec_events_01234567"`) {
		t.Errorf("attach statement missing secret reference: %s", attach.SQL)
	}
}

func TestFromMap_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
	}{
		{"missing url", map[string]any{"name": "x"}},
		{"bad scheme", map[string]any{"name": "x", "url": "ftp://example.com/f.duckdb"}},
		{"no host", map[string]any{"name": "x", "url": "https://"}},
		{"secret without key", map[string]any{"name": "x", "url": "s3://b/f.duckdb", "secret": "s"}},
		{"bad alias", map[string]any{"name": "1st db", "url": "https://example.com/f.duckdb"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FromMap(tt.raw); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
