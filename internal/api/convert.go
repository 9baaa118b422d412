package api

import (
	"sort"
	"time"

	"drq/internal/playback"
	"drq/internal/queue"
	"drq/internal/reconcile"
	"drq/internal/venue"
)

// TitleFunc resolves a song id to a display label. A nil TitleFunc leaves
// Entry.Title empty.
type TitleFunc func(songID string) string

// FromEntry converts a music queue entry to its API representation.
func FromEntry(entry queue.Entry[string], title TitleFunc) Entry {
	dto := Entry{
		ID:        entry.ID,
		SongID:    entry.Ref,
		Status:    string(entry.Status),
		Attempts:  entry.Attempts,
		LastError: entry.LastError,
		ForceFail: entry.ForceFail,
		CreatedAt: formatTime(entry.CreatedAt),
		UpdatedAt: formatTime(entry.UpdatedAt),
	}
	if entry.Status == queue.StatusPending {
		dto.NextAttemptAt = formatTime(entry.NextAttemptAt)
	}
	if title != nil {
		dto.Title = title(entry.Ref)
	}
	return dto
}

// FromEntries converts entries, preserving order.
func FromEntries(entries []queue.Entry[string], title TitleFunc) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, entry := range entries {
		out = append(out, FromEntry(entry, title))
	}
	return out
}

// FromSong converts a catalog song.
func FromSong(song playback.Song) Song {
	return Song{
		ID:      song.ID,
		Title:   song.Title,
		Artist:  song.Artist,
		Corrupt: song.Corrupt,
	}
}

// FromSongs converts the catalog, preserving order.
func FromSongs(songs []playback.Song) []Song {
	out := make([]Song, 0, len(songs))
	for _, song := range songs {
		out = append(out, FromSong(song))
	}
	return out
}

// FromVenue converts a saved venue.
func FromVenue(v venue.Venue) Venue {
	return Venue{
		ID:        v.ID,
		Name:      v.Name,
		Latitude:  v.Latitude,
		Longitude: v.Longitude,
		Synced:    v.Synced,
		CreatedAt: formatTime(v.CreatedAt),
	}
}

// FromVenues converts venues, preserving order.
func FromVenues(venues []venue.Venue) []Venue {
	out := make([]Venue, 0, len(venues))
	for _, v := range venues {
		out = append(out, FromVenue(v))
	}
	return out
}

// FromSweep converts a reconciliation result.
func FromSweep(result reconcile.Result) Sweep {
	return Sweep{
		CorrelationID: result.CorrelationID,
		Outcome:       string(result.Outcome),
		Skipped:       result.Skipped,
		Attempted:     result.Attempted,
		Synced:        result.Synced,
		Remaining:     result.Remaining,
		Error:         result.Error,
		DurationMs:    result.Duration.Milliseconds(),
	}
}

// FromStats builds a queue summary.
func FromStats(name string, stats queue.Stats, draining bool) QueueStatus {
	return QueueStatus{
		Name:      name,
		Pending:   stats.Pending,
		Succeeded: stats.Succeeded,
		Failed:    stats.Failed,
		Draining:  draining,
	}
}

// SortEntriesNewestFirst orders entries by CreatedAt descending, breaking ties by ID descending.
func SortEntriesNewestFirst(entries []Entry) []Entry {
	if len(entries) == 0 {
		return nil
	}
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		ti := ParseTime(sorted[i].CreatedAt)
		tj := ParseTime(sorted[j].CreatedAt)
		if ti.Equal(tj) {
			return sorted[i].ID > sorted[j].ID
		}
		return ti.After(tj)
	})
	return sorted
}

// ParseTime parses an API timestamp. Invalid or empty values yield the zero time.
func ParseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}
