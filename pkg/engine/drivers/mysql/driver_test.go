package mysql

import (
	"errors"
	"strings"
	"testing"

	"github.com/skiff-data/skiff-engine/pkg/apperrors"
)

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"name":     "orders",
		"host":     "mysql.internal",
		"database": "shop",
		"user":     "reader",
		"password": "pw",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 3306 {
		t.Errorf("expected default port 3306, got %d", cfg.Port)
	}
}

func TestFromMap_MissingUser(t *testing.T) {
	_, err := FromMap(map[string]any{
		"name":     "orders",
		"host":     "mysql.internal",
		"database": "shop",
	})
	var ve *apperrors.ValidationError
	if !errors.As(err, &ve) || ve.Field != "user" {
		t.Fatalf("expected user ValidationError, got %v", err)
	}
}

func TestStatements(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"name":      "orders",
		"host":      "mysql.internal",
		"database":  "shop",
		"user":      "reader",
		"password":  "pw",
		"read_only": true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d := driver{}
	secret, err := d.SecretStatement(cfg, "skiff_sec_orders_deadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(secret.SQL, "TYPE mysql") || !strings.Contains(secret.SQL, "PASSWORD 'pw'") {
		t.Errorf("unexpected secret statement: %s", secret.SQL)
	}

	attach, err := d.AttachStatement(cfg, "skiff_sec_orders_deadbeef")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `ATTACH '' AS "orders" (TYPE mysql, SECRET "skiff_sec_orders_deadbeef", READ_ONLY)`
	if attach.SQL != want {
		t.Errorf("attach statement mismatch:\n got: %s\nwant: %s", attach.SQL, want)
	}
}
