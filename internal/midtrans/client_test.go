package midtrans

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/salda-id/booking-system/internal/model"
)

func TestCreateCharge_OK(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Fatalf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != "/snap/v1/transactions" {
			t.Fatalf("path = %s, want /snap/v1/transactions", r.URL.Path)
		}

		wantAuth := "Basic " + base64.StdEncoding.EncodeToString([]byte("server-key:"))
		if got := r.Header.Get("Authorization"); got != wantAuth {
			t.Fatalf("authorization = %q, want %q", got, wantAuth)
		}

		var payload chargePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.TransactionDetails.OrderID != "BOOKING-test" {
			t.Fatalf("order id = %q", payload.TransactionDetails.OrderID)
		}
		if payload.TransactionDetails.GrossAmount != 238600 {
			t.Fatalf("gross amount = %d, want 238600", payload.TransactionDetails.GrossAmount)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(chargeResponse{Token: "snap-token-123"})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "server-key")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	token, err := client.CreateCharge(ctx, ChargeRequest{
		OrderID:     "BOOKING-test",
		GrossAmount: 238600,
		FirstName:   "Budi",
		Email:       "budi@example.com",
		Description: "Booking with streamer",
	})
	if err != nil {
		t.Fatalf("CreateCharge error: %v", err)
	}
	if token != "snap-token-123" {
		t.Fatalf("token = %q, want snap-token-123", token)
	}
}

func TestCreateCharge_GatewayError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(chargeResponse{
			ErrorMessages: []string{"Access denied due to unauthorized transaction"},
		})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "wrong-key")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := client.CreateCharge(ctx, ChargeRequest{OrderID: "BOOKING-x", GrossAmount: 1000})
	if err == nil {
		t.Fatalf("expected error for unauthorized response")
	}
}

func TestCreateCharge_EmptyToken(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chargeResponse{})
	}))
	defer ts.Close()

	client := NewClient(ts.URL, "server-key")

	_, err := client.CreateCharge(context.Background(), ChargeRequest{OrderID: "BOOKING-x", GrossAmount: 1000})
	if err == nil {
		t.Fatalf("expected error for empty token")
	}
}

func TestCreateCharge_NotConfigured(t *testing.T) {
	var client *Client

	_, err := client.CreateCharge(context.Background(), ChargeRequest{})
	if err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestMapTransactionStatus(t *testing.T) {
	tests := []struct {
		status string
		want   model.PaymentStatus
	}{
		{"settlement", model.PaymentStatusSuccess},
		{"capture", model.PaymentStatusSuccess},
		{"pending", model.PaymentStatusPending},
		{"expire", model.PaymentStatusExpired},
		{"deny", model.PaymentStatusFailure},
		{"cancel", model.PaymentStatusFailure},
		{"", model.PaymentStatusFailure},
	}

	for _, tt := range tests {
		if got := MapTransactionStatus(tt.status); got != tt.want {
			t.Fatalf("MapTransactionStatus(%q) = %s, want %s", tt.status, got, tt.want)
		}
	}
}
