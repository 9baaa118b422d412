package api

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// Entry describes a music queue entry in a transport-friendly format.
type Entry struct {
	ID            string `json:"id"`
	SongID        string `json:"songId"`
	Title         string `json:"title,omitempty"`
	Status        string `json:"status"`
	Attempts      int    `json:"attempts"`
	LastError     string `json:"lastError,omitempty"`
	ForceFail     bool   `json:"forceFail,omitempty"`
	CreatedAt     string `json:"createdAt,omitempty"`
	UpdatedAt     string `json:"updatedAt,omitempty"`
	NextAttemptAt string `json:"nextAttemptAt,omitempty"`
}

// Song is a catalog entry.
type Song struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist,omitempty"`
	Corrupt bool   `json:"corrupt,omitempty"`
}

// Venue is a saved location and its sync state.
type Venue struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Synced    bool    `json:"synced"`
	CreatedAt string  `json:"createdAt,omitempty"`
}

// Sweep reports one reconciliation pass.
type Sweep struct {
	CorrelationID string `json:"correlationId,omitempty"`
	Outcome       string `json:"outcome"`
	Skipped       bool   `json:"skipped,omitempty"`
	Attempted     int    `json:"attempted"`
	Synced        int    `json:"synced"`
	Remaining     int    `json:"remaining"`
	Error         string `json:"error,omitempty"`
	DurationMs    int64  `json:"durationMs"`
}

// QueueStatus summarizes a queue engine.
type QueueStatus struct {
	Name      string `json:"name"`
	Pending   int    `json:"pending"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Draining  bool   `json:"draining"`
}

// SyncStatus summarizes the venue reconciliation loop.
type SyncStatus struct {
	Endpoint     string `json:"endpoint"`
	Pending      int    `json:"pending"`
	Sweeps       int    `json:"sweeps"`
	LastSweep    *Sweep `json:"lastSweep,omitempty"`
	Schedule     string `json:"schedule"`
	NextSweepAt  string `json:"nextSweepAt,omitempty"`
	NetworkWatch bool   `json:"networkWatch"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool        `json:"running"`
	PID          int         `json:"pid"`
	StartedAt    string      `json:"startedAt,omitempty"`
	Backend      string      `json:"backend"`
	DatabasePath string      `json:"databasePath"`
	LockFilePath string      `json:"lockFilePath"`
	Music        QueueStatus `json:"music"`
	Sync         SyncStatus  `json:"sync"`
}

// PlayRequest is the body of POST /api/music/play.
type PlayRequest struct {
	SongID    string `json:"songId"`
	ForceFail bool   `json:"forceFail,omitempty"`
}

// AddVenueRequest is the body of POST /api/venues.
type AddVenueRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// EntryResponse wraps a single entry.
type EntryResponse struct {
	Entry Entry `json:"entry"`
}

// EntryListResponse wraps a collection of entries.
type EntryListResponse struct {
	Entries []Entry `json:"entries"`
}

// RetryResponse reports whether a failed entry was reset.
type RetryResponse struct {
	Retried bool   `json:"retried"`
	Entry   *Entry `json:"entry,omitempty"`
}

// ClearResponse reports how many entries were removed.
type ClearResponse struct {
	Removed int `json:"removed"`
}

// SongListResponse wraps the catalog.
type SongListResponse struct {
	Songs []Song `json:"songs"`
}

// VenueResponse wraps a single venue.
type VenueResponse struct {
	Venue Venue `json:"venue"`
}

// VenueListResponse wraps a collection of venues.
type VenueListResponse struct {
	Venues []Venue `json:"venues"`
}

// SweepResponse wraps a sweep result.
type SweepResponse struct {
	Sweep Sweep `json:"sweep"`
}

// VenueRetryResponse reports a manual per-venue retry.
type VenueRetryResponse struct {
	Synced int    `json:"synced"`
	Failed int    `json:"failed"`
	Total  int    `json:"total"`
	Online bool   `json:"online"`
	Error  string `json:"error,omitempty"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
