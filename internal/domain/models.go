package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/cesargomez89/musicdl/internal/constants"
)

// ItemID identifies one submitted item. IDs increase monotonically and are
// never reused within a process.
type ItemID uint64

// Item describes one track to acquire. It is a value type and is copied
// wherever it is handed over.
type Item struct {
	Title    string  `json:"title" yaml:"title"`
	Artist   string  `json:"artist" yaml:"artist"`
	Album    string  `json:"album" yaml:"album"`
	Duration float64 `json:"duration" yaml:"duration"`
	// TrackPosition is the 1-based position on the album; 0 means unknown.
	TrackPosition uint32 `json:"track_position,omitempty" yaml:"track_position,omitempty"`
	CoverURL      string `json:"cover_url,omitempty" yaml:"cover_url,omitempty"`
	AlbumMember   bool   `json:"album_member" yaml:"album_member"`
}

// Query is the search query handed to the fetcher.
func (i Item) Query() string {
	return fmt.Sprintf("%s - %s", i.Artist, i.Title)
}

// Label is the human readable name used in logs.
func (i Item) Label() string {
	return fmt.Sprintf("%s - %s", i.Artist, i.Title)
}

// DurationString formats the duration as m:ss.
func (i Item) DurationString() string {
	secs := int(i.Duration)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// Meta returns the tags written into the produced file.
func (i Item) Meta() TrackMeta {
	return TrackMeta{
		Title:  i.Title,
		Artist: i.Artist,
		Album:  i.Album,
		Track:  i.TrackPosition,
	}
}

// State is the coarse status of a download record.
type State string

const (
	StateQueued State = "queued"
	StateActive State = "active"
	StateDone   State = "done"
	StateFailed State = "failed"
)

// IsTerminal reports whether no further transition is allowed.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// Phase is the step a download task is currently in.
type Phase string

const (
	PhaseQueued     Phase = "queued"
	PhaseFetching   Phase = "fetching"
	PhaseCoverFetch Phase = "cover"
	PhaseTagging    Phase = "tagging"
	PhasePlacing    Phase = "placing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Status is the externally visible status of a record. Percent is only
// meaningful while Active, Message only when Failed.
type Status struct {
	State   State   `json:"state"`
	Percent float64 `json:"percent,omitempty"`
	Message string  `json:"message,omitempty"`
}

func (s Status) String() string {
	switch s.State {
	case StateActive:
		return fmt.Sprintf("%.1f%%", s.Percent)
	case StateFailed:
		line, _, _ := strings.Cut(s.Message, "\n")
		return "failed: " + line
	default:
		return string(s.State)
	}
}

// Record tracks one submitted item for the lifetime of its batch.
type Record struct {
	ID       ItemID  `json:"id"`
	BatchID  string  `json:"batch_id"`
	Item     Item    `json:"item"`
	Status   Status  `json:"status"`
	Phase    Phase   `json:"phase"`
	Progress float64 `json:"progress"`
	FilePath string  `json:"file_path,omitempty"`
	Warning  string  `json:"warning,omitempty"`
}

// BatchHandle is returned by a submission.
type BatchHandle struct {
	BatchID string   `json:"batch_id"`
	ItemIDs []ItemID `json:"item_ids"`
}

// Batch is the persisted summary of one submission.
type Batch struct {
	StartedAt  time.Time  `json:"started_at" db:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty" db:"finished_at"`
	ID         string     `json:"id" db:"id"`
	Total      int        `json:"total" db:"total"`
	Completed  int        `json:"completed" db:"completed"`
}

// Download is the persisted outcome of one item.
type Download struct {
	CompletedAt time.Time `json:"completed_at" db:"completed_at"`
	ID          int64     `json:"id" db:"id"`
	ItemID      ItemID    `json:"item_id" db:"item_id"`
	BatchID     string    `json:"batch_id" db:"batch_id"`
	Title       string    `json:"title" db:"title"`
	Artist      string    `json:"artist" db:"artist"`
	Album       string    `json:"album" db:"album"`
	State       State     `json:"state" db:"state"`
	Error       string    `json:"error,omitempty" db:"error"`
	Warning     string    `json:"warning,omitempty" db:"warning"`
	FilePath    string    `json:"file_path,omitempty" db:"file_path"`
	FileHash    string    `json:"file_hash,omitempty" db:"file_hash"`
}

// LogEntry is one block of the session log.
type LogEntry struct {
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	ID        int64     `json:"id" db:"id"`
	ItemID    ItemID    `json:"item_id" db:"item_id"`
	BatchID   string    `json:"batch_id" db:"batch_id"`
	Label     string    `json:"label" db:"label"`
	Body      string    `json:"body" db:"body"`
	Failed    bool      `json:"failed" db:"failed"`
}

// Text renders the block with its header line.
func (e LogEntry) Text() string {
	if e.Failed {
		return fmt.Sprintf(constants.LogFailHeaderFormat, e.Label) + "\n" + e.Body
	}
	return fmt.Sprintf(constants.LogHeaderFormat, e.Label) + "\n" + e.Body
}
