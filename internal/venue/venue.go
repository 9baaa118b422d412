package venue

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/segmentio/ksuid"

	"drq/internal/services"
)

// ErrNotFound reports an unknown venue id.
var ErrNotFound = errors.New("venue not found")

// Venue is a saved location.
type Venue struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Synced    bool      `json:"synced"`
	CreatedAt time.Time `json:"createdAt"`
}

// RecordID identifies the venue for reconciliation.
func (v Venue) RecordID() string { return v.ID }

// New validates input and builds an unsynced venue stamped with now.
func New(name string, latitude, longitude float64, now time.Time) (Venue, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Venue{}, services.Wrap(services.ErrValidation, "venue", "create", "name is required", nil)
	}
	if math.IsNaN(latitude) || latitude < -90 || latitude > 90 {
		return Venue{}, services.Wrap(services.ErrValidation, "venue", "create", fmt.Sprintf("latitude %v out of range", latitude), nil)
	}
	if math.IsNaN(longitude) || longitude < -180 || longitude > 180 {
		return Venue{}, services.Wrap(services.ErrValidation, "venue", "create", fmt.Sprintf("longitude %v out of range", longitude), nil)
	}
	id, err := ksuid.NewRandomWithTime(now)
	if err != nil {
		return Venue{}, fmt.Errorf("generate venue id: %w", err)
	}
	return Venue{
		ID:        id.String(),
		Name:      name,
		Latitude:  latitude,
		Longitude: longitude,
		CreatedAt: now,
	}, nil
}

// Repository is the durable venue table.
type Repository interface {
	Insert(ctx context.Context, v Venue) error
	Get(ctx context.Context, id string) (Venue, error)
	All(ctx context.Context) ([]Venue, error)
	// Unsynced returns venues with synced=false, oldest first. limit <= 0 returns all.
	Unsynced(ctx context.Context, limit int) ([]Venue, error)
	CountUnsynced(ctx context.Context) (int, error)
	MarkSynced(ctx context.Context, ids ...string) error
}

// Remote is the venue service collaborator.
type Remote interface {
	Check(ctx context.Context) error
	SendVenue(ctx context.Context, v Venue) error
}
