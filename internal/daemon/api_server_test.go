package daemon_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"drq/internal/api"
	"drq/internal/testsupport"
)

func startAPI(t *testing.T, token string, metrics bool) (*testDaemon, string) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.API.Token = token
	cfg.API.Metrics = metrics
	td := newTestDaemonWithConfig(t, cfg)
	td.start(t)
	return td, "http://" + td.APIAddr()
}

func TestAPIServerRequiresToken(t *testing.T) {
	_, base := startAPI(t, "s3cret", false)
	ctx := context.Background()

	_, err := api.NewClient(base, "", nil).Status(ctx)
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %v", err)
	}

	status, err := api.NewClient(base, "s3cret", nil).Status(ctx)
	if err != nil {
		t.Fatalf("Status with token: %v", err)
	}
	if !status.Running || status.Music.Name != "music" {
		t.Fatalf("unexpected status %+v", status)
	}
}

func TestAPIServerMusicRoutes(t *testing.T) {
	_, base := startAPI(t, "", false)
	client := api.NewClient(base, "", nil)
	ctx := context.Background()

	songs, err := client.Songs(ctx)
	if err != nil || len(songs) == 0 {
		t.Fatalf("Songs: %v (%d)", err, len(songs))
	}

	_, err = client.Entries(ctx, "bogus")
	var apiErr *api.Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Kind != "validation" {
		t.Fatalf("expected 400 validation error, got %v", err)
	}

	resp, err := client.Retry(ctx, "does-not-exist")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if resp.Retried || resp.Entry != nil {
		t.Fatalf("expected unknown retry to report false, got %+v", resp)
	}

	_, err = client.Play(ctx, api.PlayRequest{SongID: ""})
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty song id, got %v", err)
	}
}

func TestAPIServerRejectsMalformedBody(t *testing.T) {
	_, base := startAPI(t, "", false)

	resp, err := http.Post(base+"/api/music/play", "application/json", strings.NewReader(`{"songId": "s1", "volume": 11}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", resp.StatusCode)
	}
}

func TestAPIServerMetrics(t *testing.T) {
	td, base := startAPI(t, "", true)
	if _, err := td.Play(context.Background(), "s2", false); err != nil {
		t.Fatalf("Play: %v", err)
	}

	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `drq_queue_entries_enqueued_total{queue="music"} 1`) {
		t.Fatalf("expected enqueue counter in metrics output:\n%s", body)
	}
}

func TestAPIServerHidesMetricsWhenDisabled(t *testing.T) {
	_, base := startAPI(t, "", false)
	resp, err := http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("get metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 when metrics disabled, got %d", resp.StatusCode)
	}
}
