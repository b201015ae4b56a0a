package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// ErrNotFound reports a lookup for a record that does not exist.
var ErrNotFound = eris.New("store: record not found")

// ErrDuplicateKey reports an insert that collided with a persisted
// dedup key. The orchestrator treats it as a duplicate outcome, not a
// failure: two workers can both pass the gate before either inserts.
var ErrDuplicateKey = eris.New("store: duplicate key")

// RecordFilter specifies criteria for listing building records.
type RecordFilter struct {
	Approved    *bool `json:"approved,omitempty"`
	Residential *bool `json:"residential,omitempty"`
	Verified    *bool `json:"verified,omitempty"`
	Limit       int   `json:"limit,omitempty"`
	Offset      int   `json:"offset,omitempty"`
}

// Store defines the persistence interface for the outreach pipeline.
// The key lookups back the dedup gate; Insert enforces the same keys
// with unique indexes so a race between workers resolves to
// ErrDuplicateKey instead of a double insert.
type Store interface {
	// Dedup keys
	HasAddressKey(ctx context.Context, normalized string) (bool, error)
	HasStandardizedKey(ctx context.Context, standardized string) (bool, error)
	HasNameKey(ctx context.Context, name string) (bool, error)

	// Records
	InsertRecord(ctx context.Context, b model.Building, contact *model.ResolvedContact, keys model.KeySet) (*model.Record, error)
	GetRecord(ctx context.Context, id string) (*model.Record, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error)
	SetContact(ctx context.Context, id string, contact *model.ResolvedContact) error
	ApproveRecord(ctx context.Context, id string) error

	// Outreach log
	LogOutreach(ctx context.Context, recordID, subject, body, status string) (*model.OutreachLog, error)
	ListOutreach(ctx context.Context, recordID string) ([]model.OutreachLog, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the configured driver.
func Open(ctx context.Context, driver, databaseURL string) (Store, error) {
	switch driver {
	case "sqlite", "":
		return NewSQLite(databaseURL)
	case "postgres":
		return NewPostgres(ctx, databaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
