package httputil

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseErrorResponse_Success(t *testing.T) {
	resp := &http.Response{
		StatusCode: 200,
		Body:       http.NoBody,
	}

	if err := ParseErrorResponse(resp); err != nil {
		t.Errorf("Expected nil error for 200 response, got: %v", err)
	}
}

func TestParseErrorResponse_Error(t *testing.T) {
	body := `[{"errorCode":"NOT_FOUND","message":"The requested resource does not exist"}]`
	resp := &http.Response{
		StatusCode: 404,
		Body:       io.NopCloser(strings.NewReader(body)),
		Request:    httptest.NewRequest("GET", "https://example.my.salesforce.com/services/data/v59.0/sobjects/Account/001", nil),
	}

	err := ParseErrorResponse(resp)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}

	httpErr, ok := err.(*HTTPError)
	if !ok {
		t.Fatalf("Expected *HTTPError, got %T", err)
	}
	if httpErr.StatusCode != 404 {
		t.Errorf("Expected status 404, got %d", httpErr.StatusCode)
	}
	if !strings.Contains(httpErr.Error(), "NOT_FOUND") {
		t.Errorf("Expected Error() to contain body, got: %s", httpErr.Error())
	}
	if !strings.HasSuffix(httpErr.URL, "/sobjects/Account/001") {
		t.Errorf("Unexpected URL: %s", httpErr.URL)
	}
}

func TestParseErrorResponse_BodyRewrap(t *testing.T) {
	body := `{"error": "test"}`
	resp := &http.Response{
		StatusCode: 500,
		Body:       io.NopCloser(strings.NewReader(body)),
	}

	_ = ParseErrorResponse(resp)

	rewrapped, _ := io.ReadAll(resp.Body)
	if string(rewrapped) != body {
		t.Errorf("Body not properly re-wrapped, got: %s", string(rewrapped))
	}
}

func TestStatusCode(t *testing.T) {
	wrapped := fmt.Errorf("fetch: %w", &HTTPError{StatusCode: 401, Status: "Unauthorized"})
	if got := StatusCode(wrapped); got != 401 {
		t.Errorf("Expected 401, got %d", got)
	}
	if got := StatusCode(fmt.Errorf("plain")); got != 0 {
		t.Errorf("Expected 0 for non-HTTP error, got %d", got)
	}
}

func TestTruncate(t *testing.T) {
	if truncate("hello", 10) != "hello" {
		t.Error("Short string should not be truncated")
	}

	truncated := truncate(strings.Repeat("a", 600), MaxErrorBodySize)
	if len(truncated) != 503 {
		t.Errorf("Expected length 503, got %d", len(truncated))
	}
	if !strings.HasSuffix(truncated, "...") {
		t.Error("Truncated string should end with ...")
	}
}
