package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("LICENSE_STORE", "postgres")
	t.Setenv("DATABASE_URL", "postgres://svc@db.example.com:5432/postgres")
	t.Setenv("DATABASE_SERVICE_KEY", "service-role-key")
	t.Setenv("ADMIN_ISSUE_SECRET", "")
	t.Setenv("SMTP_HOST", "")
	t.Setenv("SMTP_PORT", "")
	t.Setenv("SMTP_USERNAME", "")
	t.Setenv("SMTP_PASSWORD", "")
	unsetenv(t, "STORE_TIMEOUT")
	unsetenv(t, "CORS_ALLOWED_ORIGINS")
	unsetenv(t, "STRIPE_WEBHOOK_SECRET")
}

// unsetenv removes key for the duration of the test.
func unsetenv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	os.Unsetenv(key)
}

func TestParse_Defaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Port)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Errorf("Expected default store timeout 5s, got %v", cfg.StoreTimeout)
	}
	if cfg.AdminIssueSecret != "" {
		t.Errorf("Expected empty admin secret, got %q", cfg.AdminIssueSecret)
	}
	if cfg.SMTPConfigured() {
		t.Errorf("Expected SMTP to be unconfigured")
	}
	if cfg.StripeConfigured() {
		t.Errorf("Expected Stripe to be unconfigured")
	}
}

func TestParse_MissingAdminSecretIsNotFatal(t *testing.T) {
	setBaseEnv(t)

	if _, err := Parse(); err != nil {
		t.Errorf("Missing admin secret must not fail startup, got %v", err)
	}
}

func TestParse_PostgresRequiresURLAndServiceKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_SERVICE_KEY", "")

	_, err := Parse()
	if err == nil {
		t.Fatalf("Expected error for missing database credentials")
	}

	for _, want := range []string{"DATABASE_URL", "DATABASE_SERVICE_KEY"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Expected error to mention %s, got %v", want, err)
		}
	}
}

func TestParse_MemoryStoreNeedsNoDatabase(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LICENSE_STORE", "memory")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DATABASE_SERVICE_KEY", "")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.LicenseStore != StoreMemory {
		t.Errorf("Expected memory store, got %s", cfg.LicenseStore)
	}
}

func TestParse_UnknownStore(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("LICENSE_STORE", "mongo")

	_, err := Parse()
	if err == nil || !strings.Contains(err.Error(), "LICENSE_STORE") {
		t.Errorf("Expected LICENSE_STORE error, got %v", err)
	}
}

func TestParse_PartialSMTP(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("SMTP_HOST", "smtp.example.com")

	_, err := Parse()
	if err == nil || !strings.Contains(err.Error(), "SMTP_HOST") {
		t.Errorf("Expected SMTP error, got %v", err)
	}
}

func TestParse_InvalidTimeout(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("STORE_TIMEOUT", "soon")

	if _, err := Parse(); err == nil {
		t.Errorf("Expected error for unparseable STORE_TIMEOUT")
	}
}

func TestParse_CORSOrigins(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.calltrack.pro, chrome-extension://abc ,")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	want := []string{"https://app.calltrack.pro", "chrome-extension://abc"}
	if len(cfg.CORSAllowedOrigins) != len(want) {
		t.Fatalf("Expected %d origins, got %v", len(want), cfg.CORSAllowedOrigins)
	}
	for i := range want {
		if cfg.CORSAllowedOrigins[i] != want[i] {
			t.Errorf("Origin %d: expected %s, got %s", i, want[i], cfg.CORSAllowedOrigins[i])
		}
	}
}
