package aigen_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"launchpro/internal/config"
	"launchpro/internal/services"
	"launchpro/internal/services/aigen"
)

func newServerClient(t *testing.T, handler http.Handler, sleeps *[]time.Duration) *aigen.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return aigen.NewClient(
		config.AI{BaseURL: server.URL, APIKey: "secret", RetryAttempts: 3},
		aigen.WithRetryBackoff(10*time.Millisecond, 100*time.Millisecond),
		aigen.WithSleeper(func(d time.Duration) {
			*sleeps = append(*sleeps, d)
		}),
	)
}

func briefing() aigen.Briefing {
	return aigen.Briefing{
		CampaignName:      "Summer Promo",
		OfferRef:          "offer-42",
		Country:           "DE",
		ApprovedContentID: "content-1",
	}
}

func TestGenerateRetriesTransientFailure(t *testing.T) {
	var sleeps []time.Duration
	var calls atomic.Int64
	client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"copy":"buy now","keywords":["offer"]}`))
	}), &sleeps)

	creative, err := client.Generate(context.Background(), briefing())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if creative.Copy != "buy now" {
		t.Fatalf("copy = %q", creative.Copy)
	}
	if calls.Load() != 2 {
		t.Fatalf("requests = %d, want 2", calls.Load())
	}
	if len(sleeps) != 1 {
		t.Fatalf("sleeps = %v, want one backoff", sleeps)
	}
}

func TestGenerateHonorsRetryAfter(t *testing.T) {
	var sleeps []time.Duration
	var calls atomic.Int64
	client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"copy":"buy now"}`))
	}), &sleeps)

	if _, err := client.Generate(context.Background(), briefing()); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(sleeps) != 1 || sleeps[0] != 100*time.Millisecond {
		// Retry-After of 1s is capped to the configured max delay.
		t.Fatalf("sleeps = %v, want one capped delay", sleeps)
	}
}

func TestGenerateDoesNotRetryClientErrors(t *testing.T) {
	var sleeps []time.Duration
	var calls atomic.Int64
	client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}), &sleeps)

	if _, err := client.Generate(context.Background(), briefing()); err == nil {
		t.Fatalf("expected error for http 400")
	}
	if calls.Load() != 1 {
		t.Fatalf("requests = %d, want 1", calls.Load())
	}
	if len(sleeps) != 0 {
		t.Fatalf("client errors must not back off: %v", sleeps)
	}
}

func TestGenerateRejectsEmptyCopy(t *testing.T) {
	var sleeps []time.Duration
	client := newServerClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"copy":"   "}`))
	}), &sleeps)

	_, err := client.Generate(context.Background(), briefing())
	if !errors.Is(err, services.ErrExternal) {
		t.Fatalf("err = %v, want external error for empty copy", err)
	}
}

func TestGenerateValidatesInput(t *testing.T) {
	client := aigen.NewClient(config.AI{BaseURL: "http://aigen.invalid", APIKey: "k"})

	_, err := client.Generate(context.Background(), aigen.Briefing{CampaignName: "x"})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error without approved content id", err)
	}

	noKey := aigen.NewClient(config.AI{BaseURL: "http://aigen.invalid"})
	if _, err := noKey.Generate(context.Background(), briefing()); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error without api key", err)
	}
}
