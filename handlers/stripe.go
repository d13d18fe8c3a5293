package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"calltrack.pro/license/internal/email"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// StripeWebhook mints and mails a license for every paid checkout session.
// It never deactivates a license.
func (s *Server) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}

	if s.stripeWebhookSecret == "" {
		s.log.Error("Stripe webhook called but STRIPE_WEBHOOK_SECRET is not set")
		writeErrorResponse(w, http.StatusServiceUnavailable, CodeStripeNotConfigured, "")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		s.log.Error("Failed to read webhook payload", map[string]interface{}{
			"error": err.Error(),
		})
		writeErrorResponse(w, http.StatusBadRequest, CodeInvalidPayload, err.Error())
		return
	}

	signatureHeader := r.Header.Get("Stripe-Signature")
	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, s.stripeWebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		s.log.Warn("Webhook signature verification failed", map[string]interface{}{
			"error":     err.Error(),
			"signature": signatureHeader,
		})
		writeErrorResponse(w, http.StatusBadRequest, CodeInvalidSignature, "")
		return
	}

	s.log.Info("Stripe event received", map[string]interface{}{
		"event_type": string(event.Type),
		"event_id":   event.ID,
	})

	if event.Type != stripe.EventTypeCheckoutSessionCompleted {
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		s.log.Error("Failed to unmarshal checkout session", map[string]interface{}{
			"error":    err.Error(),
			"event_id": event.ID,
		})
		writeErrorResponse(w, http.StatusBadRequest, CodeInvalidPayload, err.Error())
		return
	}

	if !sessionPaid(&session) {
		s.log.Info("Checkout session not paid, skipping", map[string]interface{}{
			"session_id":     session.ID,
			"payment_status": string(session.PaymentStatus),
		})
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}

	key, err := s.mintLicense(r.Context())
	if err != nil {
		s.writeMintError(w, r, err)
		return
	}

	s.log.Info("License issued for checkout", map[string]interface{}{
		"session_id":  session.ID,
		"license_key": key,
	})

	s.sendLicenseEmail(&session, key)

	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}

func sessionPaid(session *stripe.CheckoutSession) bool {
	return session.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid ||
		session.PaymentStatus == stripe.CheckoutSessionPaymentStatusNoPaymentRequired
}

func customerEmail(session *stripe.CheckoutSession) string {
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		return session.CustomerDetails.Email
	}
	return session.CustomerEmail
}

// sendLicenseEmail only logs failures; the key is already stored.
func (s *Server) sendLicenseEmail(session *stripe.CheckoutSession, key string) {
	if s.mailer == nil {
		s.log.Warn("No mailer configured, license not emailed", map[string]interface{}{
			"session_id": session.ID,
		})
		return
	}

	to := customerEmail(session)
	if to == "" {
		s.log.Warn("Checkout session has no customer email", map[string]interface{}{
			"session_id": session.ID,
		})
		return
	}

	subject, body := email.LicenseMessage(key)
	if err := s.mailer.Send(to, subject, body); err != nil {
		fields := map[string]interface{}{
			"error":          err.Error(),
			"customer_email": to,
			"session_id":     session.ID,
		}
		if errors.Is(err, email.ErrNotConfigured) {
			s.log.Warn("SMTP not configured, license not emailed", fields)
			return
		}
		s.log.Error("Failed to send license email", fields)
		return
	}

	s.log.Info("License email sent", map[string]interface{}{
		"customer_email": to,
		"session_id":     session.ID,
	})
}
