package handlers

import (
	"encoding/json"
	"net/http"

	"calltrack.pro/license/internal/logger"
)

// Error codes returned in the error field of a failed response.
const (
	CodeMethodNotAllowed    = "method_not_allowed"
	CodeMissingKey          = "missing_key"
	CodeMissingAdminSecret  = "missing_admin_secret"
	CodeUnauthorized        = "unauthorized"
	CodeDBError             = "db_error"
	CodeServerError         = "server_error"
	CodeInvalidSignature    = "invalid_signature"
	CodeInvalidPayload      = "invalid_payload"
	CodeStripeNotConfigured = "stripe_not_configured"
	CodeNotFound            = "not_found"
)

type ErrorResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type IssueResponse struct {
	OK  bool   `json:"ok"`
	Key string `json:"key"`
}

type VerifyResponse struct {
	OK    bool `json:"ok"`
	Valid bool `json:"valid"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{OK: false, Error: code, Detail: detail})
}

// writeMethodNotAllowed renders the one error body without an ok field.
func writeMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": CodeMethodNotAllowed})
}
