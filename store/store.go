// Package store keeps a log of finished searches so that positions can be
// looked up again by search id or by position hash.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrNotFound      = errors.New("search record not found")
	ErrUnknownDriver = errors.New("unknown store driver")
)

// Record is the persisted summary of one search.
type Record struct {
	ID            string    `json:"id" bson:"_id"`
	GameID        string    `json:"game_id,omitempty" bson:"game_id,omitempty"`
	Hash          string    `json:"hash" bson:"hash"`
	MoveNumber    int       `json:"move_number" bson:"move_number"`
	Turn          string    `json:"turn" bson:"turn"`
	Action        string    `json:"action" bson:"action"`
	ExpectedScore float64   `json:"expected_score" bson:"expected_score"`
	WinRate       float64   `json:"win_rate" bson:"win_rate"`
	Rollouts      int       `json:"rollouts" bson:"rollouts"`
	DurationMs    int64     `json:"duration_ms" bson:"duration_ms"`
	StopReason    string    `json:"stop_reason" bson:"stop_reason"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
}

type Store interface {
	Save(ctx context.Context, rec Record) error
	// Load returns ErrNotFound when no record has the given id.
	Load(ctx context.Context, id string) (Record, error)
	// ByHash returns every record of the position, oldest first.
	ByHash(ctx context.Context, hash string) ([]Record, error)
	Close() error
}

// Options select and address a backend. Path is used by badger, URL by redis
// and mongo, Database by mongo only.
type Options struct {
	Driver   string
	Path     string
	URL      string
	Database string
}

// Open connects to the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "badger":
		return OpenBadger(opts.Path)
	case "redis":
		return OpenRedis(ctx, opts.URL)
	case "mongo":
		return OpenMongo(ctx, opts.URL, opts.Database)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

// FormatHash renders a position hash the way records store it.
func FormatHash(h uint64) string {
	return fmt.Sprintf("%016x", h)
}

func sortByTime(recs []Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].CreatedAt.Before(recs[j].CreatedAt)
	})
}
