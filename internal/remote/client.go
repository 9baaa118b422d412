package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"

	"drq/internal/config"
	"drq/internal/logging"
	"drq/internal/services"
	"drq/internal/venue"
)

const (
	userAgent = "drq/0.1.0"
	component = "remote"

	DefaultCheckTimeout   = 5 * time.Second
	DefaultRequestTimeout = 10 * time.Second
	DefaultBatchTimeout   = 8 * time.Second
)

// Options configures a Client. Zero timeouts fall back to the defaults.
type Options struct {
	Endpoint       string
	CheckTimeout   time.Duration
	RequestTimeout time.Duration
	BatchTimeout   time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client is the venue sync collaborator.
type Client struct {
	endpoint       string
	checkTimeout   time.Duration
	requestTimeout time.Duration
	batchTimeout   time.Duration
	http           *http.Client
	logger         *slog.Logger
}

// New builds a client for opts.Endpoint.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		endpoint:       strings.TrimSpace(opts.Endpoint),
		checkTimeout:   orDefault(opts.CheckTimeout, DefaultCheckTimeout),
		requestTimeout: orDefault(opts.RequestTimeout, DefaultRequestTimeout),
		batchTimeout:   orDefault(opts.BatchTimeout, DefaultBatchTimeout),
		http:           httpClient,
		logger:         logging.NewComponentLogger(opts.Logger, component),
	}
}

// NewFromConfig builds a client from the [sync] section.
func NewFromConfig(cfg *config.Config, logger *slog.Logger) *Client {
	return New(Options{
		Endpoint:       cfg.Sync.Endpoint,
		CheckTimeout:   cfg.CheckTimeout(),
		RequestTimeout: cfg.RequestTimeout(),
		BatchTimeout:   cfg.BatchTimeout(),
		Logger:         logger,
	})
}

// Endpoint returns the configured sync URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Check sends HEAD to the endpoint. Any HTTP response, whatever its status,
// proves the network path works.
func (c *Client) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.checkTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "check", "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		classified := classify("check", err)
		c.logger.Debug("connectivity check failed",
			logging.String(logging.FieldEventType, "remote_check_failed"),
			logging.ErrorKind(classified),
			logging.Error(err),
		)
		if errors.Is(classified, services.ErrNoConnection) {
			return classified
		}
		// A check that cannot complete for any reason means offline.
		return services.Wrap(services.ErrNoConnection, component, "check", "endpoint unreachable", classified)
	}
	drain(resp)
	return nil
}

type wireVenue struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"createdAt"`
}

func toWire(v venue.Venue) wireVenue {
	return wireVenue{
		ID:        v.ID,
		Name:      v.Name,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		CreatedAt: v.CreatedAt.UTC(),
	}
}

// SendVenue pushes one venue as {"venue": {...}}.
func (c *Client) SendVenue(ctx context.Context, v venue.Venue) error {
	body := struct {
		Venue wireVenue `json:"venue"`
	}{Venue: toWire(v)}
	if err := c.post(ctx, "send_venue", c.requestTimeout, body); err != nil {
		return err
	}
	c.logger.Debug("venue sent",
		logging.String(logging.FieldEventType, "remote_venue_sent"),
		logging.String("venue_id", v.ID),
	)
	return nil
}

// SendBatch pushes venues as {"venues": [...]}. The batch either lands as a
// whole or not at all from the caller's point of view.
func (c *Client) SendBatch(ctx context.Context, venues []venue.Venue) error {
	body := struct {
		Venues []wireVenue `json:"venues"`
	}{Venues: make([]wireVenue, 0, len(venues))}
	for _, v := range venues {
		body.Venues = append(body.Venues, toWire(v))
	}
	if err := c.post(ctx, "send_batch", c.batchTimeout, body); err != nil {
		return err
	}
	c.logger.Debug("venue batch sent",
		logging.String(logging.FieldEventType, "remote_batch_sent"),
		logging.Int("count", len(venues)),
	)
	return nil
}

func (c *Client) post(ctx context.Context, op string, timeout time.Duration, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, op, "encode body", err)
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return services.Wrap(services.ErrValidation, component, op, "build request", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classify(op, err)
	}
	defer drain(resp)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return services.ServerError(component, op, resp.StatusCode)
	}
	return nil
}

// classify maps a transport failure onto a services marker.
func classify(op string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, component, op, "request timed out", err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return services.Wrap(services.ErrTimeout, component, op, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return services.Wrap(services.ErrUnknown, component, op, "request canceled", err)
	case isConnectionError(err):
		return services.Wrap(services.ErrNoConnection, component, op, "endpoint unreachable", err)
	default:
		return services.Wrap(services.ErrUnknown, component, op, fmt.Sprintf("request failed: %v", err), nil)
	}
}

func isConnectionError(err error) bool {
	var (
		opErr  *net.OpError
		dnsErr *net.DNSError
	)
	return errors.As(err, &opErr) ||
		errors.As(err, &dnsErr) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, io.EOF)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

func orDefault(value, fallback time.Duration) time.Duration {
	if value <= 0 {
		return fallback
	}
	return value
}
