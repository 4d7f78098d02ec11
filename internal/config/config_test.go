package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"ORDERS_TABLE":            "orders",
		"INVENTORY_ITEMS_TABLE":   "inventory-items",
		"SYNC_SESSIONS_TABLE":     "sync-sessions",
		"STORE_LOCATIONS_TABLE":   "store-locations",
		"ORDER_RETURNS_TABLE":     "order-returns",
		"IDEMPOTENCY_TABLE":       "idempotency",
		"NOTIFICATIONS_QUEUE_URL": "http://localhost:4566/000000000000/notifications",
		"ERRORS_QUEUE_URL":        "http://localhost:4566/000000000000/errors",
		"COMMANDS_QUEUE_URL":      "http://localhost:4566/000000000000/commands",
	} {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AWS.Region != "us-east-1" {
		t.Fatalf("expected default region us-east-1, got %s", cfg.AWS.Region)
	}
	if cfg.Inventory.Buffer != 10 {
		t.Fatalf("expected inventory buffer 10, got %d", cfg.Inventory.Buffer)
	}
	if len(cfg.Inventory.TestSKUs) != 5 {
		t.Fatalf("expected 5 default test skus, got %v", cfg.Inventory.TestSKUs)
	}
	if cfg.Retry.ServerErrorDelay != 20*time.Second || cfg.Retry.UnavailableDelay != 30*time.Second {
		t.Fatalf("unexpected retry delays: %+v", cfg.Retry)
	}
	if cfg.IsProduction() {
		t.Fatalf("dev environment must not be production")
	}
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("ENVIRONMENT", "prod")
	t.Setenv("TEST_MODE", "on")
	t.Setenv("TEST_SKUS", "A, B ,,C")
	t.Setenv("INVENTORY_BUFFER", "3")
	t.Setenv("IMPORT_LOOKBACK", "30m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Fatalf("expected production")
	}
	if !cfg.Inventory.TestMode {
		t.Fatalf("expected test mode on")
	}
	if got := cfg.Inventory.TestSKUs; len(got) != 3 || got[1] != "B" {
		t.Fatalf("unexpected test skus: %v", got)
	}
	if cfg.Inventory.Buffer != 3 {
		t.Fatalf("expected buffer 3, got %d", cfg.Inventory.Buffer)
	}
	if cfg.Importer.Lookback != 30*time.Minute {
		t.Fatalf("expected lookback 30m, got %s", cfg.Importer.Lookback)
	}
}

func TestLoad_MissingTables(t *testing.T) {
	setRequired(t)
	t.Setenv("ORDERS_TABLE", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for missing orders table")
	}
}

func TestLoad_InvalidWorkerRole(t *testing.T) {
	setRequired(t)
	t.Setenv("WORKER_ROLE", "bogus")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for unknown worker role")
	}
}
