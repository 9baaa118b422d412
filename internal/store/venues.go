package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"drq/internal/venue"
)

const venueColumns = "id, name, latitude, longitude, synced, created_at"

// VenueRepo implements venue.Repository on the venues table.
type VenueRepo struct {
	db *DB
}

// Venues returns the venue repository for this database.
func (d *DB) Venues() *VenueRepo {
	return &VenueRepo{db: d}
}

func scanVenue(scanner interface{ Scan(dest ...any) error }) (venue.Venue, error) {
	var (
		v          venue.Venue
		synced     sql.NullInt64
		createdRaw sql.NullString
	)
	if err := scanner.Scan(&v.ID, &v.Name, &v.Latitude, &v.Longitude, &synced, &createdRaw); err != nil {
		return venue.Venue{}, err
	}
	v.Synced = synced.Int64 != 0
	v.CreatedAt = parseTimeString(createdRaw.String)
	return v, nil
}

func (r *VenueRepo) Insert(ctx context.Context, v venue.Venue) error {
	_, err := r.db.execWithRetry(ctx,
		"INSERT INTO venues ("+venueColumns+") VALUES (?, ?, ?, ?, ?, ?)",
		v.ID, v.Name, v.Latitude, v.Longitude, boolToInt(v.Synced), formatTime(v.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert venue: %w", err)
	}
	return nil
}

func (r *VenueRepo) Get(ctx context.Context, id string) (venue.Venue, error) {
	ctx = ensureContext(ctx)
	row := r.db.db.QueryRowContext(ctx, "SELECT "+venueColumns+" FROM venues WHERE id = ?", id)
	v, err := scanVenue(row)
	if errors.Is(err, sql.ErrNoRows) {
		return venue.Venue{}, fmt.Errorf("%w: %s", venue.ErrNotFound, id)
	}
	if err != nil {
		return venue.Venue{}, fmt.Errorf("get venue: %w", err)
	}
	return v, nil
}

// All returns every venue, newest first.
func (r *VenueRepo) All(ctx context.Context) ([]venue.Venue, error) {
	return r.query(ctx, "SELECT "+venueColumns+" FROM venues ORDER BY created_at DESC, id DESC")
}

// Unsynced returns unsynced venues oldest first. limit <= 0 returns all.
func (r *VenueRepo) Unsynced(ctx context.Context, limit int) ([]venue.Venue, error) {
	query := "SELECT " + venueColumns + " FROM venues WHERE synced = 0 ORDER BY created_at ASC, id ASC"
	if limit > 0 {
		return r.query(ctx, query+" LIMIT ?", limit)
	}
	return r.query(ctx, query)
}

func (r *VenueRepo) CountUnsynced(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := r.db.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM venues WHERE synced = 0").Scan(&count); err != nil {
		return 0, fmt.Errorf("count unsynced venues: %w", err)
	}
	return count, nil
}

// MarkSynced flips synced to 1 for ids. Already-synced or unknown ids are ignored.
func (r *VenueRepo) MarkSynced(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	query := fmt.Sprintf("UPDATE venues SET synced = 1 WHERE synced = 0 AND id IN (%s)", makePlaceholders(len(ids)))
	if _, err := r.db.execWithRetry(ctx, query, args...); err != nil {
		return fmt.Errorf("mark venues synced: %w", err)
	}
	return nil
}

func (r *VenueRepo) query(ctx context.Context, query string, args ...any) ([]venue.Venue, error) {
	ctx = ensureContext(ctx)
	rows, err := r.db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query venues: %w", err)
	}
	defer rows.Close()

	var out []venue.Venue
	for rows.Next() {
		v, err := scanVenue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan venue: %w", err)
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate venues: %w", err)
	}
	return out, nil
}
