package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"calltrack.pro/license/internal/adminauth"
	"calltrack.pro/license/models"
	"github.com/getsentry/sentry-go"
)

const maxBodyBytes = 64 << 10

var errGenerateKey = errors.New("failed to generate license key")

// IssueLicense mints a key and stores it as active. The admin secret comes
// from the X-Admin-Secret header or the adminSecret body field.
func (s *Server) IssueLicense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}

	fields := readBodyFields(r)
	candidate := adminauth.CandidateFromRequest(r.Header.Get(adminauth.HeaderName), stringField(fields, "adminSecret"))

	if err := s.gate.Authorize(candidate); err != nil {
		if errors.Is(err, adminauth.ErrMissingAdminSecret) {
			s.log.Error("Issuance refused: ADMIN_ISSUE_SECRET not configured")
			writeErrorResponse(w, http.StatusInternalServerError, CodeMissingAdminSecret, "")
			return
		}
		s.log.Warn("Issuance refused: bad admin secret", map[string]interface{}{
			"remote_addr": r.RemoteAddr,
		})
		writeErrorResponse(w, http.StatusUnauthorized, CodeUnauthorized, "")
		return
	}

	key, err := s.mintLicense(r.Context())
	if err != nil {
		s.writeMintError(w, r, err)
		return
	}

	s.log.Info("License issued", map[string]interface{}{
		"license_key": key,
	})
	writeJSON(w, http.StatusOK, IssueResponse{OK: true, Key: key})
}

// VerifyLicense reports whether key names an active license. Unknown keys
// and inactive keys are both a plain valid:false.
func (s *Server) VerifyLicense(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}

	key := strings.TrimSpace(stringField(readBodyFields(r), "key"))
	if key == "" {
		writeErrorResponse(w, http.StatusBadRequest, CodeMissingKey, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.storeTimeout)
	defer cancel()

	license, err := s.Storage.FindByKey(ctx, key)
	if err != nil {
		s.log.Error("License lookup failed", map[string]interface{}{
			"license_key": key,
			"error":       err.Error(),
		})
		writeErrorResponse(w, http.StatusInternalServerError, CodeDBError, err.Error())
		return
	}

	valid := license.Honored()
	s.log.Debug("License verified", map[string]interface{}{
		"license_key": key,
		"valid":       valid,
	})
	writeJSON(w, http.StatusOK, VerifyResponse{OK: true, Valid: valid})
}

// mintLicense generates a key and inserts it under the store timeout. A
// collision surfaces as storage.ErrDuplicateKey; there is no retry.
func (s *Server) mintLicense(ctx context.Context) (string, error) {
	key, err := s.generateKey()
	if err != nil {
		return "", fmt.Errorf("%w: %v", errGenerateKey, err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.Storage.Insert(ctx, models.NewLicense(key)); err != nil {
		return "", err
	}
	return key, nil
}

func (s *Server) writeMintError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errGenerateKey) {
		s.log.Error("Key generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		sentry.CaptureException(err)
		writeErrorResponse(w, http.StatusInternalServerError, CodeServerError, err.Error())
		return
	}

	s.log.Error("License insert failed", map[string]interface{}{
		"error": err.Error(),
		"path":  r.URL.Path,
	})
	writeErrorResponse(w, http.StatusInternalServerError, CodeDBError, err.Error())
}

// readBodyFields decodes a JSON object body. Anything else reads as no
// fields at all.
func readBodyFields(r *http.Request) map[string]json.RawMessage {
	if r.Body == nil {
		return nil
	}

	var fields map[string]json.RawMessage
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&fields); err != nil {
		return nil
	}
	return fields
}

// stringField returns a string field as-is and renders numbers and booleans
// in their JSON form. Null, objects and arrays read as empty.
func stringField(fields map[string]json.RawMessage, name string) string {
	raw, ok := fields[name]
	if !ok {
		return ""
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}

	switch t := v.(type) {
	case string:
		return t
	case float64, bool:
		return strings.TrimSpace(string(raw))
	default:
		return ""
	}
}
