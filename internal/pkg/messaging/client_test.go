package messaging

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestServer(t *testing.T, status int, body sendResponse, capture *sendRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/messages/send" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %q", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header %q", got)
		}
		if capture != nil {
			if err := json.NewDecoder(r.Body).Decode(capture); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
}

func TestSendAccepted(t *testing.T) {
	var got sendRequest
	srv := newTestServer(t, http.StatusAccepted, sendResponse{MessageID: "m1", Status: "accepted"}, &got)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", Sender: "shoplink"})
	if err := c.Send(context.Background(), "+77001234567", "hello"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Phone != "+77001234567" || got.Content != "hello" || got.Sender != "shoplink" {
		t.Fatalf("unexpected request payload: %+v", got)
	}
}

func TestSendRejectedStatus(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, sendResponse{Status: "failed", Error: "unreachable"}, nil)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	err := c.Send(context.Background(), "+77001234567", "hello")
	if err == nil || !strings.Contains(err.Error(), "unreachable") {
		t.Fatalf("expected delivery failure, got %v", err)
	}
}

func TestSendGatewayError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadGateway, sendResponse{}, nil)
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key"})
	if err := c.Send(context.Background(), "+77001234567", "hello"); err == nil {
		t.Fatal("expected error on gateway 502")
	}
}

func TestSendValidation(t *testing.T) {
	c := NewClient(Config{BaseURL: "http://localhost:9"})
	if err := c.Send(context.Background(), "", "hello"); err == nil {
		t.Fatal("expected error for empty phone")
	}
	if err := c.Send(context.Background(), "+77001234567", "  "); err == nil {
		t.Fatal("expected error for empty content")
	}
	if err := (&Client{httpClient: http.DefaultClient}).Send(context.Background(), "+77001234567", "x"); err == nil {
		t.Fatal("expected error for missing base url")
	}
}
