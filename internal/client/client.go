// Package client calls the license API from the desktop app, the extension
// and the admin CLI.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	verifyPath = "/api/verify-license"
	issuePath  = "/api/admin/issue-license"

	adminSecretHeader = "X-Admin-Secret"
	maxResponseBytes  = 64 << 10
)

// Outcome is the result of a verification call. Only OutcomeValid grants Pro.
type Outcome int

const (
	OutcomeValid Outcome = iota + 1
	OutcomeInvalid
	OutcomeNetworkError
	OutcomeProtocolError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeValid:
		return "valid"
	case OutcomeInvalid:
		return "invalid"
	case OutcomeNetworkError:
		return "network_error"
	case OutcomeProtocolError:
		return "protocol_error"
	default:
		return "unknown"
	}
}

// IsPro collapses the outcome to the single Boolean older callers expect.
func (o Outcome) IsPro() bool {
	return o == OutcomeValid
}

// APIError is a non-200 answer from the license API.
type APIError struct {
	Status int
	Code   string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("license api: %d %s: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("license api: %d %s", e.Status, e.Code)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type apiResponse struct {
	OK     bool   `json:"ok"`
	Valid  bool   `json:"valid"`
	Key    string `json:"key"`
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

// Verify asks the API whether key is an active license. The error is nil
// exactly when the outcome is OutcomeValid or OutcomeInvalid.
func (c *Client) Verify(ctx context.Context, key string) (Outcome, error) {
	status, resp, err := c.post(ctx, verifyPath, map[string]string{"key": key}, nil)
	if err != nil {
		var perr *protocolError
		if errors.As(err, &perr) {
			return OutcomeProtocolError, err
		}
		return OutcomeNetworkError, err
	}

	if !resp.OK {
		return OutcomeProtocolError, &APIError{Status: status, Code: resp.Error, Detail: resp.Detail}
	}
	if resp.Valid {
		return OutcomeValid, nil
	}
	return OutcomeInvalid, nil
}

// Issue mints a new license key. adminSecret travels in the X-Admin-Secret
// header.
func (c *Client) Issue(ctx context.Context, adminSecret string) (string, error) {
	headers := map[string]string{adminSecretHeader: adminSecret}
	status, resp, err := c.post(ctx, issuePath, struct{}{}, headers)
	if err != nil {
		return "", err
	}

	if status != http.StatusOK || !resp.OK {
		return "", &APIError{Status: status, Code: resp.Error, Detail: resp.Detail}
	}
	if resp.Key == "" {
		return "", &protocolError{msg: "response carried no key"}
	}
	return resp.Key, nil
}

type protocolError struct {
	msg string
	err error
}

func (e *protocolError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("license api: %s: %v", e.msg, e.err)
	}
	return "license api: " + e.msg
}

func (e *protocolError) Unwrap() error {
	return e.err
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, headers map[string]string) (int, *apiResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("license api unreachable: %w", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return res.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return res.StatusCode, nil, &protocolError{msg: fmt.Sprintf("undecodable response (status %d)", res.StatusCode), err: err}
	}
	return res.StatusCode, &decoded, nil
}
