package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"calltrack.pro/license/handlers"
	"calltrack.pro/license/internal/client"
	"calltrack.pro/license/internal/config"
	"calltrack.pro/license/internal/entitlement"
	"calltrack.pro/license/internal/licensekey"
	"calltrack.pro/license/internal/testutil"
	"calltrack.pro/license/storage"
)

// Integration tests that drive complete workflows through the router.

func TestFullWorkflow_IssueVerifyDeactivate(t *testing.T) {
	db := storage.NewMemoryStorage()
	server := handlers.NewHttpServer(db, handlers.Options{AdminSecret: "s3cr3t"})

	// Wrong secret is rejected and stores nothing.
	w := testutil.PostJSON(t, server, "/api/admin/issue-license", nil, map[string]string{"X-Admin-Secret": "wrong"})
	testutil.AssertErrorResponse(t, w, http.StatusUnauthorized, handlers.CodeUnauthorized)
	if db.Len() != 0 {
		t.Fatalf("Expected empty store after unauthorized call, got %d", db.Len())
	}

	// Right secret mints a well-formed key.
	w = testutil.PostJSON(t, server, "/api/admin/issue-license", nil, map[string]string{"X-Admin-Secret": "s3cr3t"})
	if w.Code != http.StatusOK {
		t.Fatalf("Issue failed with status %d: %s", w.Code, w.Body.String())
	}
	key, _ := testutil.DecodeBody(t, w)["key"].(string)
	if !licensekey.Valid(key) {
		t.Fatalf("Expected CTP key, got %q", key)
	}

	// The new key verifies.
	w = testutil.PostJSON(t, server, "/api/verify-license", map[string]string{"key": key}, nil)
	testutil.AssertVerifyResponse(t, w, true)

	// Deactivated out of band, it no longer does.
	db.SetActive(key, false)
	w = testutil.PostJSON(t, server, "/api/verify-license", map[string]string{"key": key}, nil)
	testutil.AssertVerifyResponse(t, w, false)

	// An unknown key is indistinguishable from an inactive one.
	w = testutil.PostJSON(t, server, "/api/verify-license", map[string]string{"key": testutil.UnknownKey}, nil)
	testutil.AssertVerifyResponse(t, w, false)
}

func TestFullWorkflow_ClientActivation(t *testing.T) {
	db := testutil.TestStorage()
	api := httptest.NewServer(handlers.NewHttpServer(db, handlers.Options{AdminSecret: "s3cr3t"}))
	defer api.Close()

	c := client.New(api.URL)
	store := entitlement.NewFileStore(filepath.Join(t.TempDir(), "entitlement.json"))
	activator := entitlement.NewActivator(c, store)
	ctx := context.Background()

	outcome, err := activator.Activate(ctx, testutil.InactiveKey)
	if err != nil || outcome != client.OutcomeInvalid {
		t.Fatalf("Expected invalid outcome, got %v, %v", outcome, err)
	}
	if isPro, _ := activator.IsPro(); isPro {
		t.Fatalf("Inactive key must not grant Pro")
	}

	issued, err := c.Issue(ctx, "s3cr3t")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	outcome, err = activator.Activate(ctx, issued)
	if err != nil || outcome != client.OutcomeValid {
		t.Fatalf("Expected valid outcome, got %v, %v", outcome, err)
	}
	if isPro, _ := activator.IsPro(); !isPro {
		t.Fatalf("Expected Pro after valid activation")
	}

	// Deactivation on the server never downgrades the local flag.
	db.SetActive(issued, false)
	if outcome, _ := activator.Activate(ctx, issued); outcome != client.OutcomeInvalid {
		t.Errorf("Expected invalid after deactivation, got %v", outcome)
	}
	if isPro, _ := activator.IsPro(); !isPro {
		t.Errorf("Expected Pro flag to survive an invalid result")
	}
}

func TestFullWorkflow_ConcurrentIssuance(t *testing.T) {
	db := storage.NewMemoryStorage()
	server := handlers.NewHttpServer(db, handlers.Options{AdminSecret: "s3cr3t"})

	const n = 25
	var wg sync.WaitGroup
	codes := make([]int, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := testutil.PostJSON(t, server, "/api/admin/issue-license", nil, map[string]string{"X-Admin-Secret": "s3cr3t"})
			codes[i] = w.Code
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		if code != http.StatusOK {
			t.Errorf("Request %d: expected status 200, got %d", i, code)
		}
	}
	if db.Len() != n {
		t.Errorf("Expected %d stored licenses, got %d", n, db.Len())
	}
}

func TestOpenStorage(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"memory", config.Config{LicenseStore: config.StoreMemory, StoreTimeout: time.Second}, false},
		{"sqlite", config.Config{LicenseStore: config.StoreSQLite, SQLitePath: filepath.Join(t.TempDir(), "licenses.db"), StoreTimeout: time.Second}, false},
		{"unknown", config.Config{LicenseStore: "mongo", StoreTimeout: time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, err := openStorage(context.Background(), &tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error=%v, got %v", tt.wantErr, err)
			}
			if db != nil {
				defer db.Close()
				if err := db.Ping(context.Background()); err != nil {
					t.Errorf("Expected ping to succeed, got %v", err)
				}
			}
		})
	}
}

func TestNewMailer(t *testing.T) {
	if m := newMailer(&config.Config{}); m != nil {
		t.Errorf("Expected no mailer without SMTP config, got %T", m)
	}

	cfg := &config.Config{SMTPHost: "smtp.example.com", SMTPPort: "587", SMTPUsername: "u", SMTPPassword: "p"}
	if m := newMailer(cfg); m == nil {
		t.Errorf("Expected SMTP mailer when configured")
	}
}
