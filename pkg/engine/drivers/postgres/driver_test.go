package postgres

import (
	"errors"
	"strings"
	"testing"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
)

func validRaw() map[string]any {
	return map[string]any{
		"name":     "sales_db",
		"host":     "db.example.com",
		"port":     float64(5432), // JSON numbers decode as float64
		"database": "sales",
		"user":     "reporting",
		"password": "hunter2",
	}
}

func TestFromMap_Defaults(t *testing.T) {
	raw := validRaw()
	delete(raw, "port")

	cfg, err := FromMap(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 5432 {
		t.Errorf("expected default port 5432, got %d", cfg.Port)
	}
	if cfg.SSLMode != "require" {
		t.Errorf("expected default ssl_mode require, got %q", cfg.SSLMode)
	}
}

func TestFromMap_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[string]any)
		field  string
	}{
		{"missing name", func(m map[string]any) { delete(m, "name") }, "name"},
		{"bad alias", func(m map[string]any) { m["name"] = "sales-db!" }, "name"},
		{"missing host", func(m map[string]any) { delete(m, "host") }, "host"},
		{"missing database", func(m map[string]any) { delete(m, "database") }, "database"},
		{"missing user", func(m map[string]any) { delete(m, "user") }, "user"},
		{"bad port", func(m map[string]any) { m["port"] = float64(70000) }, "port"},
		{"bad ssl mode", func(m map[string]any) { m["ssl_mode"] = "maybe" }, "ssl_mode"},
		{"injection in host", func(m map[string]any) { m["host"] = "h' OR '1'='1" }, "host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validRaw()
			tt.mutate(raw)

			_, err := FromMap(raw)
			var ve *apperrors.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %q, got %q", tt.field, ve.Field)
			}
		})
	}
}

func TestSecretStatement(t *testing.T) {
	cfg, err := FromMap(validRaw())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stmt, err := driver{}.SecretStatement(cfg, "skiff_sec_sales_db_ab12cd34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, want := range []string{
		`CREATE SECRET "skiff_sec_sales_db_ab12cd34"`,
		"TYPE postgres",
		"HOST 'db.example.com'",
		"PORT 5432",
		"DATABASE 'sales'",
		"USER 'reporting'",
		"PASSWORD 'hunter2'",
	} {
		if !strings.Contains(stmt.SQL, want) {
			t.Errorf("secret statement missing %q:\n%s", want, stmt.SQL)
		}
	}

	if strings.Contains(stmt.Redacted(), "hunter2") {
		t.Errorf("redacted statement leaks password: %s", stmt.Redacted())
	}
}

func TestAttachStatement(t *testing.T) {
	raw := validRaw()
	raw["read_only"] = true
	cfg, err := FromMap(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stmt, err := driver{}.AttachStatement(cfg, "skiff_sec_sales_db_ab12cd34")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `ATTACH '' AS "sales_db" (TYPE postgres, SECRET "skiff_sec_sales_db_ab12cd34", SSLMODE 'require', READ_ONLY)`
	if stmt.SQL != want {
		t.Errorf("attach statement mismatch:\n got: %s\nwant: %s", stmt.SQL, want)
	}
}

func TestIsDuplicateAttachError(t *testing.T) {
	d := driver{}
	if !d.IsDuplicateAttachError(errors.New(`database "sales_db" is already attached`)) {
		t.Error("expected duplicate classification")
	}
	if d.IsDuplicateAttachError(errors.New("connection refused")) {
		t.Error("transient error misclassified as duplicate")
	}
}
