package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"calltrack.pro/license/models"
	"calltrack.pro/license/storage"
	"github.com/stripe/stripe-go/v82/webhook"
)

const (
	ActiveKey   = "CTP-ABCD-EFGH-JKLM"
	InactiveKey = "CTP-WXYZ-2345-6789"
	UnknownKey  = "CTP-NNNN-PPPP-QQQQ"
)

// TestStorage returns a memory store holding one active and one inactive
// license.
func TestStorage() *storage.MemoryStorage {
	return storage.NewMemoryStorage(
		models.License{Key: ActiveKey, Active: true, CreatedAt: time.Now()},
		models.License{Key: InactiveKey, Active: false, CreatedAt: time.Now()},
	)
}

// FailingStorage returns Err from every call.
type FailingStorage struct {
	Err error
}

func (f *FailingStorage) Insert(ctx context.Context, license *models.License) error {
	return f.Err
}

func (f *FailingStorage) FindByKey(ctx context.Context, key string) (*models.License, error) {
	return nil, f.Err
}

func (f *FailingStorage) Ping(ctx context.Context) error {
	return f.Err
}

func (f *FailingStorage) Close() error {
	return nil
}

// HangingStorage blocks every call until the context is done.
type HangingStorage struct{}

func (HangingStorage) Insert(ctx context.Context, license *models.License) error {
	<-ctx.Done()
	return ctx.Err()
}

func (HangingStorage) FindByKey(ctx context.Context, key string) (*models.License, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (HangingStorage) Ping(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func (HangingStorage) Close() error {
	return nil
}

// PostJSON sends body to path. A string body is sent verbatim, anything else
// is JSON encoded.
func PostJSON(t *testing.T, h http.Handler, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	return Do(t, h, http.MethodPost, path, body, headers)
}

func Do(t *testing.T, h http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var raw []byte
	switch b := body.(type) {
	case nil:
	case string:
		raw = []byte(b)
	case []byte:
		raw = b
	default:
		var err error
		raw, err = json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// DecodeBody decodes the recorded JSON body into a generic map.
func DecodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("Failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

// AssertErrorResponse checks status, ok:false and the error code.
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()

	if w.Code != expectedStatus {
		t.Errorf("Expected status %d, got %d", expectedStatus, w.Code)
	}

	body := DecodeBody(t, w)
	if body["ok"] != false {
		t.Errorf("Expected ok=false, got %v", body["ok"])
	}
	if body["error"] != expectedError {
		t.Errorf("Expected error '%s', got '%v'", expectedError, body["error"])
	}
}

// AssertVerifyResponse checks a 200 verification answer.
func AssertVerifyResponse(t *testing.T, w *httptest.ResponseRecorder, expectedValid bool) {
	t.Helper()

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	body := DecodeBody(t, w)
	if body["ok"] != true {
		t.Errorf("Expected ok=true, got %v", body["ok"])
	}
	if body["valid"] != expectedValid {
		t.Errorf("Expected valid=%v, got %v", expectedValid, body["valid"])
	}
}

// CreateStripeWebhookPayload wraps object in a Stripe event envelope.
func CreateStripeWebhookPayload(eventType string, object map[string]interface{}) []byte {
	event := map[string]interface{}{
		"id":          "evt_test_webhook",
		"object":      "event",
		"type":        eventType,
		"api_version": "2025-03-31.basil",
		"created":     time.Now().Unix(),
		"data": map[string]interface{}{
			"object": object,
		},
	}

	payload, _ := json.Marshal(event)
	return payload
}

// CreateMockCheckoutSession builds a checkout.session object.
func CreateMockCheckoutSession(customerEmail, sessionID, paymentStatus string) map[string]interface{} {
	session := map[string]interface{}{
		"id":             sessionID,
		"object":         "checkout.session",
		"payment_status": paymentStatus,
		"amount_total":   1900,
		"currency":       "usd",
		"mode":           "payment",
	}
	if customerEmail != "" {
		session["customer_details"] = map[string]interface{}{
			"email": customerEmail,
		}
	}
	return session
}

// SignStripePayload returns a Stripe-Signature header valid for payload.
func SignStripePayload(payload []byte, secret string) string {
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

type SentMail struct {
	To      string
	Subject string
	Body    string
}

// RecordingMailer keeps every message it is asked to send.
type RecordingMailer struct {
	mu   sync.Mutex
	Err  error
	sent []SentMail
}

func (m *RecordingMailer) Send(to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, SentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *RecordingMailer) Sent() []SentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMail(nil), m.sent...)
}

// RunStorageTestSuite runs the behavior every Storage implementation shares.
func RunStorageTestSuite(t *testing.T, newStorage func(t *testing.T) storage.Storage) {
	ctx := context.Background()

	t.Run("InsertAndFind", func(t *testing.T) {
		s := newStorage(t)

		if err := s.Insert(ctx, models.NewLicense(ActiveKey)); err != nil {
			t.Fatalf("Failed to insert license: %v", err)
		}

		found, err := s.FindByKey(ctx, ActiveKey)
		if err != nil {
			t.Fatalf("Failed to find license: %v", err)
		}
		if found == nil {
			t.Fatalf("Expected license, got nil")
		}
		if found.Key != ActiveKey || !found.Active {
			t.Errorf("Expected active %s, got %+v", ActiveKey, found)
		}
	})

	t.Run("DuplicateKey", func(t *testing.T) {
		s := newStorage(t)

		if err := s.Insert(ctx, models.NewLicense(ActiveKey)); err != nil {
			t.Fatalf("Failed to insert license: %v", err)
		}
		err := s.Insert(ctx, models.NewLicense(ActiveKey))
		if !errors.Is(err, storage.ErrDuplicateKey) {
			t.Errorf("Expected ErrDuplicateKey, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStorage(t)

		license, err := s.FindByKey(ctx, UnknownKey)
		if err != nil {
			t.Errorf("Expected no error for not found license, got %v", err)
		}
		if license != nil {
			t.Errorf("Expected nil for not found license, got %v", license)
		}
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStorage(t)

		if err := s.Ping(ctx); err != nil {
			t.Errorf("Expected ping to succeed, got %v", err)
		}
	})
}
