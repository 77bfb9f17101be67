package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"syscall"
)

// APIError is an error response from a provider. Error returns advisory text
// for the UI.
type APIError struct {
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return Advise(e.StatusCode, e.Code, e.Message)
}

// NetworkError is a failure to reach the provider at all.
type NetworkError struct {
	Provider string
	Err      error
}

func (e *NetworkError) Error() string {
	if isTimeout(e.Err) {
		return fmt.Sprintf("network error: request to %s timed out", e.Provider)
	}
	return fmt.Sprintf("network error: could not reach %s: %v", e.Provider, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

var (
	quotaHints      = []string{"quota", "insufficient_quota", "balance", "billing", "credit", "arrearage", "rate limit", "rate_limit", "limit exceeded"}
	moderationHints = []string{"moderation", "safety", "content_policy", "content policy", "inappropriate", "sensitive", "blocked", "datainspection"}
	authHints       = []string{"api key", "api_key", "apikey", "unauthorized", "invalid_api_key", "authentication", "permission denied", "invalidapikey"}
	timeoutHints    = []string{"timeout", "timed out", "deadline"}
)

// Advise turns a provider error into a message a user can act on.
func Advise(status int, code, message string) string {
	if message == "" {
		message = http.StatusText(status)
	}
	if message == "" {
		message = fmt.Sprintf("HTTP %d", status)
	}
	probe := strings.ToLower(code + " " + message)

	switch {
	case status == http.StatusPaymentRequired || status == http.StatusTooManyRequests || containsAny(probe, quotaHints):
		return "quota or balance exhausted, check your provider plan: " + message
	case containsAny(probe, moderationHints):
		return "content rejected by provider moderation, adjust the prompt: " + message
	case status == http.StatusUnauthorized || status == http.StatusForbidden || containsAny(probe, authHints):
		return "invalid credentials, check the API key in settings: " + message
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout || containsAny(probe, timeoutHints):
		return "provider timed out, try again later: " + message
	default:
		return message
	}
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// errorBody covers the error envelopes providers use in practice:
//
//	{"error": {"message": "...", "code": "...", "type": "..."}}
//	{"error": "..."}
//	{"code": "...", "message": "..."}
//	{"message": "..."}
//	{"detail": "..."}
//	{"msg": "..."}
type errorBody struct {
	Error   json.RawMessage `json:"error"`
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
	Detail  json.RawMessage `json:"detail"`
	Msg     string          `json:"msg"`
}

type nestedError struct {
	Message string          `json:"message"`
	Code    json.RawMessage `json:"code"`
	Type    string          `json:"type"`
}

// parseErrorBody extracts a code and message from a provider error body.
// Unrecognized bodies are returned verbatim, truncated.
func parseErrorBody(body []byte) (code, message string) {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return "", truncate(strings.TrimSpace(string(body)), 300)
	}

	if len(eb.Error) > 0 && string(eb.Error) != "null" {
		var nested nestedError
		if err := json.Unmarshal(eb.Error, &nested); err == nil && nested.Message != "" {
			code = rawString(nested.Code)
			if code == "" {
				code = nested.Type
			}
			return code, nested.Message
		}
		if s := rawString(eb.Error); s != "" {
			return rawString(eb.Code), s
		}
	}
	if eb.Message != "" {
		return rawString(eb.Code), eb.Message
	}
	if s := rawString(eb.Detail); s != "" {
		return "", s
	}
	if eb.Msg != "" {
		return rawString(eb.Code), eb.Msg
	}
	return rawString(eb.Code), truncate(strings.TrimSpace(string(body)), 300)
}

// rawString renders a JSON string or number without quotes.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return string(raw)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func newAPIError(providerName string, status int, body []byte) *APIError {
	code, msg := parseErrorBody(body)
	return &APIError{Provider: providerName, StatusCode: status, Code: code, Message: msg}
}

// classify wraps a transport-level failure. Cancellation passes through
// untouched so callers can tell a user abort from a failure.
func classify(providerName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return err
	}
	if isNetwork(err) {
		return &NetworkError{Provider: providerName, Err: err}
	}
	return err
}

func isNetwork(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
