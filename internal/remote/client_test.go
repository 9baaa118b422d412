package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"drq/internal/remote"
	"drq/internal/services"
	"drq/internal/venue"
)

func sampleVenue(t *testing.T, name string) venue.Venue {
	t.Helper()
	v, err := venue.New(name, 40.7, -74.0, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("venue.New: %v", err)
	}
	return v
}

func TestCheckReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected method %s", r.Method)
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := remote.New(remote.Options{Endpoint: server.URL})
	if err := client.Check(context.Background()); err != nil {
		t.Fatalf("expected any HTTP response to count as online, got %v", err)
	}
}

func TestCheckUnreachableIsNoConnection(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client := remote.New(remote.Options{Endpoint: endpoint})
	err := client.Check(context.Background())
	if kind := services.KindOf(err); kind != services.KindNoConnection {
		t.Fatalf("expected no-connection, got %q (%v)", kind, err)
	}
}

func TestCheckTimeoutIsNoConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := remote.New(remote.Options{Endpoint: server.URL, CheckTimeout: 20 * time.Millisecond})
	err := client.Check(context.Background())
	if kind := services.KindOf(err); kind != services.KindNoConnection {
		t.Fatalf("expected no-connection, got %q (%v)", kind, err)
	}
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout cause to be kept, got %v", err)
	}
}

func TestSendVenuePostsSingleVenue(t *testing.T) {
	var body map[string]map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	v := sampleVenue(t, "Webster Hall")
	client := remote.New(remote.Options{Endpoint: server.URL})
	if err := client.SendVenue(context.Background(), v); err != nil {
		t.Fatalf("SendVenue: %v", err)
	}
	got := body["venue"]
	if got["id"] != v.ID || got["name"] != "Webster Hall" || got["latitude"] != 40.7 {
		t.Fatalf("unexpected wire venue: %+v", got)
	}
	if _, ok := got["createdAt"]; !ok {
		t.Fatal("expected createdAt on the wire")
	}
	if _, ok := got["synced"]; ok {
		t.Fatal("synced flag must not be sent")
	}
}

func TestSendVenueServerErrorCarriesStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := remote.New(remote.Options{Endpoint: server.URL})
	err := client.SendVenue(context.Background(), sampleVenue(t, "Bowery Ballroom"))
	if kind := services.KindOf(err); kind != services.KindServer {
		t.Fatalf("expected server-error, got %q (%v)", kind, err)
	}
	if status := services.StatusCode(err); status != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", status)
	}
}

func TestSendBatchPostsAllVenues(t *testing.T) {
	var body struct {
		Venues []struct {
			ID string `json:"id"`
		} `json:"venues"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	venues := []venue.Venue{sampleVenue(t, "A"), sampleVenue(t, "B"), sampleVenue(t, "C")}
	client := remote.New(remote.Options{Endpoint: server.URL})
	if err := client.SendBatch(context.Background(), venues); err != nil {
		t.Fatalf("SendBatch: %v", err)
	}
	if len(body.Venues) != 3 || body.Venues[1].ID != venues[1].ID {
		t.Fatalf("unexpected batch body: %+v", body)
	}
}

func TestSendBatchTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	client := remote.New(remote.Options{Endpoint: server.URL, BatchTimeout: 50 * time.Millisecond})
	err := client.SendBatch(context.Background(), []venue.Venue{sampleVenue(t, "Slow Venue")})
	if kind := services.KindOf(err); kind != services.KindTimeout {
		t.Fatalf("expected timeout, got %q (%v)", kind, err)
	}
}
