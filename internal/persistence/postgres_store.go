package persistence

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/felixbrock/crayon/internal/domain"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS prompt (
	id          TEXT PRIMARY KEY,
	useragent   TEXT NOT NULL DEFAULT '',
	ip_address  TEXT NOT NULL DEFAULT '',
	session_id  TEXT NOT NULL,
	timestamp   BIGINT NOT NULL,
	prompt      TEXT NOT NULL DEFAULT '',
	response    TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS objectives (
	id                        TEXT PRIMARY KEY,
	useragent                 TEXT NOT NULL DEFAULT '',
	ip_address                TEXT NOT NULL DEFAULT '',
	session_id                TEXT NOT NULL,
	timestamp                 BIGINT NOT NULL,
	user_objectives           TEXT[] NOT NULL DEFAULT '{}',
	selected_objectives       TEXT[] NOT NULL DEFAULT '{}',
	guardrail_response        TEXT NOT NULL DEFAULT '',
	generated_prompt_response TEXT NOT NULL DEFAULT ''
);`

// PostgresStore is the self-hosted alternative to SupabaseStore. It writes
// the same two record types into plain tables.
type PostgresStore struct {
	DB *sql.DB
}

func OpenPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	if _, err = db.ExecContext(ctx, postgresSchema); err != nil {
		db.Close()
		return nil, err
	}

	return &PostgresStore{DB: db}, nil
}

func (s *PostgresStore) InsertPrompt(ctx context.Context, record domain.PromptLog) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO prompt (id, useragent, ip_address, session_id, timestamp, prompt, response)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.Id,
		record.UserAgent,
		record.IpAddress,
		record.SessionId,
		record.Timestamp,
		record.Prompt,
		record.Response,
	)
	return err
}

func (s *PostgresStore) InsertObjectives(ctx context.Context, record domain.ObjectivesLog) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO objectives (id, useragent, ip_address, session_id, timestamp,
			user_objectives, selected_objectives, guardrail_response, generated_prompt_response)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.Id,
		record.UserAgent,
		record.IpAddress,
		record.SessionId,
		record.Timestamp,
		pq.Array(record.UserObjectives),
		pq.Array(record.SelectedObjectives),
		record.GuardrailResponse,
		record.GeneratedPromptResponse,
	)
	return err
}

func (s *PostgresStore) Close() error {
	return s.DB.Close()
}
