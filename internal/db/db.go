package db

import (
	"fmt"
	"log"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// Connect initializes the database connection and runs migrations.
func Connect(dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return db, nil
}

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS candidate_profiles (
            user_id BIGINT PRIMARY KEY,
            display_name TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS recruiter_profiles (
            user_id BIGINT PRIMARY KEY,
            company_name TEXT NOT NULL DEFAULT '',
            display_name TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        );`,
		`CREATE TABLE IF NOT EXISTS conversations (
            id BIGSERIAL PRIMARY KEY,
            job_id BIGINT NOT NULL DEFAULT 0,
            candidate_id BIGINT NOT NULL,
            recruiter_id BIGINT NOT NULL,
            last_message_text TEXT NOT NULL DEFAULT '',
            last_message_at TIMESTAMPTZ,
            total_message_count BIGINT NOT NULL DEFAULT 0,
            candidate_unread_count BIGINT NOT NULL DEFAULT 0,
            recruiter_unread_count BIGINT NOT NULL DEFAULT 0,
            candidate_hidden_at TIMESTAMPTZ,
            recruiter_hidden_at TIMESTAMPTZ,
            last_sequence BIGINT NOT NULL DEFAULT 0,
            status TEXT NOT NULL DEFAULT 'active',
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(candidate_id, recruiter_id)
        );`,
		`CREATE TABLE IF NOT EXISTS messages (
            id BIGSERIAL PRIMARY KEY,
            conversation_id BIGINT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            sender_id BIGINT NOT NULL,
            receiver_id BIGINT NOT NULL,
            body TEXT NOT NULL,
            msg_type TEXT NOT NULL DEFAULT 'text',
            sequence BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'sent',
            is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_at TIMESTAMPTZ,
            deleted_by BIGINT,
            sent_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            UNIQUE(conversation_id, sequence)
        );`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_order
            ON messages (conversation_id, sent_at DESC, sequence DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_candidate
            ON conversations (candidate_id, updated_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_recruiter
            ON conversations (recruiter_id, updated_at DESC);`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}
	log.Println("database migrations applied")
	return nil
}
