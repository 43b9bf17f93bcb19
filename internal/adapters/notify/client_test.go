package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"hotel_booking/internal/adapters/notify"
	"hotel_booking/internal/domain"
)

func TestClient_Notify_RetriesThenSuccess(t *testing.T) {
	var hits int32
	var got domain.BookingEvent
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/events" || r.Header.Get("X-API-Key") != "test-key" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		switch atomic.AddInt32(&hits, 1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_ = json.NewDecoder(r.Body).Decode(&got)
			w.WriteHeader(http.StatusAccepted)
		}
	}))
	defer ts.Close()

	cl, err := notify.New(ts.URL+"/", "test-key", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	ev := domain.BookingEvent{Type: domain.EventBookingConfirmed, BookingID: "b-1", TotalPrice: 2_000_000}
	if err := cl.Notify(ctx, ev); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Fatalf("expected 3 calls due to retries, got %d", n)
	}
	if got.BookingID != "b-1" || got.Type != domain.EventBookingConfirmed {
		t.Fatalf("unexpected payload: %+v", got)
	}
}

func TestClient_Notify_Unauthorized(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer ts.Close()

	cl, err := notify.New(ts.URL, "bad", 100)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	err = cl.Notify(context.Background(), domain.BookingEvent{Type: domain.EventBookingCancelled, BookingID: "b-2"})
	if !errors.Is(err, notify.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestNew_RequiresBaseURL(t *testing.T) {
	if _, err := notify.New("", "k", 1); err == nil {
		t.Fatalf("expected error for empty base URL")
	}
}
