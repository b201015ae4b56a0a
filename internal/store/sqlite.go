package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Empty keys are excluded from the unique indexes: a building with no
// name must not collide with every other nameless building.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS records (
	id               TEXT PRIMARY KEY,
	building         TEXT NOT NULL,
	contact          TEXT,
	approved         INTEGER NOT NULL DEFAULT 0,
	residential      INTEGER NOT NULL DEFAULT 0,
	verified         INTEGER NOT NULL DEFAULT 0,
	key_address      TEXT NOT NULL DEFAULT '',
	key_standardized TEXT NOT NULL DEFAULT '',
	key_name         TEXT NOT NULL DEFAULT '',
	created_at       DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at       DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS outreach_log (
	id        TEXT PRIMARY KEY,
	record_id TEXT NOT NULL REFERENCES records(id),
	subject   TEXT NOT NULL,
	body      TEXT NOT NULL,
	status    TEXT NOT NULL,
	sent_at   DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_records_key_address ON records(key_address) WHERE key_address <> '';
CREATE UNIQUE INDEX IF NOT EXISTS ux_records_key_standardized ON records(key_standardized) WHERE key_standardized <> '';
CREATE UNIQUE INDEX IF NOT EXISTS ux_records_key_name ON records(key_name) WHERE key_name <> '';
CREATE INDEX IF NOT EXISTS idx_records_approved ON records(approved);
CREATE INDEX IF NOT EXISTS idx_outreach_log_record_id ON outreach_log(record_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) HasAddressKey(ctx context.Context, normalized string) (bool, error) {
	return s.hasKey(ctx, "key_address", normalized)
}

func (s *SQLiteStore) HasStandardizedKey(ctx context.Context, standardized string) (bool, error) {
	return s.hasKey(ctx, "key_standardized", standardized)
}

func (s *SQLiteStore) HasNameKey(ctx context.Context, name string) (bool, error) {
	return s.hasKey(ctx, "key_name", name)
}

func (s *SQLiteStore) hasKey(ctx context.Context, column, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM records WHERE `+column+` = ?)`, value,
	).Scan(&exists)
	return exists, eris.Wrapf(err, "sqlite: lookup %s", column)
}

func (s *SQLiteStore) InsertRecord(ctx context.Context, b model.Building, contact *model.ResolvedContact, keys model.KeySet) (*model.Record, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	buildingJSON, err := json.Marshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal building")
	}
	var contactJSON sql.NullString
	if contact != nil {
		data, err := json.Marshal(contact)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: marshal contact")
		}
		contactJSON = sql.NullString{String: string(data), Valid: true}
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO records (id, building, contact, approved, residential, verified, key_address, key_standardized, key_name, created_at, updated_at)
		 VALUES (?, ?, ?, 0, ?, ?, ?, ?, ?, ?, ?)`,
		id, string(buildingJSON), contactJSON,
		b.ResidentialConfirmed, contact != nil && contact.Verified,
		keys.NormalizedAddress, keys.StandardizedAddress, keys.Name,
		now, now,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, eris.Wrap(ErrDuplicateKey, err.Error())
		}
		return nil, eris.Wrap(err, "sqlite: insert record")
	}

	return &model.Record{
		ID:        id,
		Building:  b,
		Contact:   contact,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, building, contact, approved, created_at, updated_at FROM records WHERE id = ?`,
		id,
	)
	return scanRecord(row)
}

func (s *SQLiteStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error) {
	query := `SELECT id, building, contact, approved, created_at, updated_at FROM records WHERE 1=1`
	var args []any

	if filter.Approved != nil {
		query += ` AND approved = ?`
		args = append(args, *filter.Approved)
	}
	if filter.Residential != nil {
		query += ` AND residential = ?`
		args = append(args, *filter.Residential)
	}
	if filter.Verified != nil {
		query += ` AND verified = ?`
		args = append(args, *filter.Verified)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) SetContact(ctx context.Context, id string, contact *model.ResolvedContact) error {
	contactJSON, err := json.Marshal(contact)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal contact")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET contact = ?, verified = ?, updated_at = ? WHERE id = ?`,
		string(contactJSON), contact != nil && contact.Verified, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: set contact %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) ApproveRecord(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET approved = 1, updated_at = ? WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: approve record %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) LogOutreach(ctx context.Context, recordID, subject, body, status string) (*model.OutreachLog, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outreach_log (id, record_id, subject, body, status, sent_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, recordID, subject, body, status, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: log outreach for %s", recordID)
	}

	return &model.OutreachLog{
		ID:       id,
		RecordID: recordID,
		Subject:  subject,
		Body:     body,
		Status:   status,
		SentAt:   now,
	}, nil
}

func (s *SQLiteStore) ListOutreach(ctx context.Context, recordID string) ([]model.OutreachLog, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, subject, body, status, sent_at FROM outreach_log WHERE record_id = ? ORDER BY sent_at DESC`,
		recordID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list outreach for %s", recordID)
	}
	defer rows.Close()

	var logs []model.OutreachLog
	for rows.Next() {
		var l model.OutreachLog
		if err := rows.Scan(&l.ID, &l.RecordID, &l.Subject, &l.Body, &l.Status, &l.SentAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan outreach log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "sqlite: list outreach iterate")
}

// helpers

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "record %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (*model.Record, error) {
	var r model.Record
	var buildingJSON string
	var contactJSON sql.NullString

	err := row.Scan(&r.ID, &buildingJSON, &contactJSON, &r.Approved, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "get record")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan record")
	}

	if err := json.Unmarshal([]byte(buildingJSON), &r.Building); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal building")
	}
	if contactJSON.Valid {
		r.Contact = &model.ResolvedContact{}
		if err := json.Unmarshal([]byte(contactJSON.String), r.Contact); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal contact")
		}
	}
	return &r, nil
}
