package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func providerStub(t *testing.T, status string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		user, _, ok := r.BasicAuth()
		if !ok || user != "client-id" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "token-1"})
	})
	mux.HandleFunc("GET /v2/checkout/orders/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":     "5O190127TN364715T",
			"status": status,
		})
	})
	return httptest.NewServer(mux)
}

func TestVerifyOrderCompleted(t *testing.T) {
	srv := providerStub(t, "COMPLETED")
	defer srv.Close()

	client := NewClient(Config{
		BaseURL:      srv.URL,
		ClientID:     "client-id",
		ClientSecret: "secret",
		Timeout:      2 * time.Second,
	})

	state, err := client.VerifyOrder(context.Background(), "5O190127TN364715T")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !state.Verified {
		t.Fatal("expected verified order")
	}
	if state.OrderID != "5O190127TN364715T" {
		t.Fatalf("unexpected order id: %s", state.OrderID)
	}
}

func TestVerifyOrderDeclined(t *testing.T) {
	srv := providerStub(t, "DECLINED")
	defer srv.Close()

	client := NewClient(Config{BaseURL: srv.URL, ClientID: "client-id", ClientSecret: "secret"})

	state, err := client.VerifyOrder(context.Background(), "5O190127TN364715T")
	if err != nil {
		t.Fatalf("declined orders are a state, not an error: %v", err)
	}
	if state.Verified {
		t.Fatal("expected unverified state")
	}
	if state.Error != "Status: DECLINED" {
		t.Fatalf("expected declined status in error, got %q", state.Error)
	}
}

func TestVerifyOrderTransportFailure(t *testing.T) {
	srv := providerStub(t, "COMPLETED")
	srv.Close() // connection refused

	client := NewClient(Config{BaseURL: srv.URL, ClientID: "client-id", ClientSecret: "secret", Timeout: time.Second})
	if _, err := client.VerifyOrder(context.Background(), "5O190127TN364715T"); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestVerifyOrderRejectsMalformedID(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:0"})
	if _, err := client.VerifyOrder(context.Background(), "nope"); err == nil {
		t.Fatal("expected shape validation error before any call")
	}
}
