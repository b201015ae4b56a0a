package store

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/brooks-street/outreach-pipeline/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    *pgxpool.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection
// for the hottest store operations.
var preparedStatements = map[string]string{
	"has_key_address":      `SELECT EXISTS(SELECT 1 FROM records WHERE key_address = $1)`,
	"has_key_standardized": `SELECT EXISTS(SELECT 1 FROM records WHERE key_standardized = $1)`,
	"has_key_name":         `SELECT EXISTS(SELECT 1 FROM records WHERE key_name = $1)`,
	"insert_record":        `INSERT INTO records (id, building, contact, approved, residential, verified, key_address, key_standardized, key_name, created_at, updated_at) VALUES ($1, $2, $3, false, $4, $5, $6, $7, $8, $9, $10)`,
	"get_record":           `SELECT id, building, contact, approved, created_at, updated_at FROM records WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS records (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	building         JSONB NOT NULL,
	contact          JSONB,
	approved         BOOLEAN NOT NULL DEFAULT false,
	residential      BOOLEAN NOT NULL DEFAULT false,
	verified         BOOLEAN NOT NULL DEFAULT false,
	key_address      TEXT NOT NULL DEFAULT '',
	key_standardized TEXT NOT NULL DEFAULT '',
	key_name         TEXT NOT NULL DEFAULT '',
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS outreach_log (
	id        TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	record_id TEXT NOT NULL REFERENCES records(id),
	subject   TEXT NOT NULL,
	body      TEXT NOT NULL,
	status    TEXT NOT NULL,
	sent_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS ux_records_key_address ON records(key_address) WHERE key_address <> '';
CREATE UNIQUE INDEX IF NOT EXISTS ux_records_key_standardized ON records(key_standardized) WHERE key_standardized <> '';
CREATE UNIQUE INDEX IF NOT EXISTS ux_records_key_name ON records(key_name) WHERE key_name <> '';
CREATE INDEX IF NOT EXISTS idx_records_approved ON records(approved);
CREATE INDEX IF NOT EXISTS idx_outreach_log_record_id ON outreach_log(record_id);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) HasAddressKey(ctx context.Context, normalized string) (bool, error) {
	return s.hasKey(ctx, "has_key_address", normalized)
}

func (s *PostgresStore) HasStandardizedKey(ctx context.Context, standardized string) (bool, error) {
	return s.hasKey(ctx, "has_key_standardized", standardized)
}

func (s *PostgresStore) HasNameKey(ctx context.Context, name string) (bool, error) {
	return s.hasKey(ctx, "has_key_name", name)
}

func (s *PostgresStore) hasKey(ctx context.Context, stmt, value string) (bool, error) {
	if value == "" {
		return false, nil
	}
	var exists bool
	err := s.pool.QueryRow(ctx, stmt, value).Scan(&exists)
	return exists, eris.Wrapf(err, "postgres: %s", stmt)
}

// isUniqueViolation reports a Postgres unique_violation error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *PostgresStore) InsertRecord(ctx context.Context, b model.Building, contact *model.ResolvedContact, keys model.KeySet) (*model.Record, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	buildingJSON, err := json.Marshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal building")
	}
	var contactJSON []byte
	if contact != nil {
		contactJSON, err = json.Marshal(contact)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: marshal contact")
		}
	}

	_, err = s.pool.Exec(ctx, "insert_record",
		id, buildingJSON, contactJSON,
		b.ResidentialConfirmed, contact != nil && contact.Verified,
		keys.NormalizedAddress, keys.StandardizedAddress, keys.Name,
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, eris.Wrap(ErrDuplicateKey, err.Error())
		}
		return nil, eris.Wrap(err, "postgres: insert record")
	}

	return &model.Record{
		ID:        id,
		Building:  b,
		Contact:   contact,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, id string) (*model.Record, error) {
	return scanRecordPG(s.pool.QueryRow(ctx, "get_record", id))
}

func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]model.Record, error) {
	query := `SELECT id, building, contact, approved, created_at, updated_at FROM records WHERE 1=1`
	var args []any

	if filter.Approved != nil {
		args = append(args, *filter.Approved)
		query += ` AND approved = $` + strconv.Itoa(len(args))
	}
	if filter.Residential != nil {
		args = append(args, *filter.Residential)
		query += ` AND residential = $` + strconv.Itoa(len(args))
	}
	if filter.Verified != nil {
		args = append(args, *filter.Verified)
		query += ` AND verified = $` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var records []model.Record
	for rows.Next() {
		r, err := scanRecordPG(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) SetContact(ctx context.Context, id string, contact *model.ResolvedContact) error {
	contactJSON, err := json.Marshal(contact)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal contact")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET contact = $1, verified = $2, updated_at = $3 WHERE id = $4`,
		contactJSON, contact != nil && contact.Verified, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: set contact %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "record %s", id)
	}
	return nil
}

func (s *PostgresStore) ApproveRecord(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE records SET approved = true, updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: approve record %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "record %s", id)
	}
	return nil
}

func (s *PostgresStore) LogOutreach(ctx context.Context, recordID, subject, body, status string) (*model.OutreachLog, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO outreach_log (id, record_id, subject, body, status, sent_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, recordID, subject, body, status, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: log outreach for %s", recordID)
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

func (s *PostgresStore) ListOutreach(ctx context.Context, recordID string) ([]model.OutreachLog, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, record_id, subject, body, status, sent_at FROM outreach_log WHERE record_id = $1 ORDER BY sent_at DESC`,
		recordID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list outreach for %s", recordID)
	}
	defer rows.Close()

	var logs []model.OutreachLog
	for rows.Next() {
		var l model.OutreachLog
		if err := rows.Scan(&l.ID, &l.RecordID, &l.Subject, &l.Body, &l.Status, &l.SentAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan outreach log")
		}
		logs = append(logs, l)
	}
	return logs, eris.Wrap(rows.Err(), "postgres: list outreach iterate")
}

func scanRecordPG(row pgx.Row) (*model.Record, error) {
	var r model.Record
	var buildingJSON []byte
	var contactJSON []byte

	err := row.Scan(&r.ID, &buildingJSON, &contactJSON, &r.Approved, &r.CreatedAt, &r.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, eris.Wrap(ErrNotFound, "get record")
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan record")
	}

	if err := json.Unmarshal(buildingJSON, &r.Building); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal building")
	}
	if len(contactJSON) > 0 {
		r.Contact = &model.ResolvedContact{}
		if err := json.Unmarshal(contactJSON, r.Contact); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal contact")
		}
	}
	return &r, nil
}

