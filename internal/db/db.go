package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type Database struct {
	Conn *sql.DB
}

func NewDatabase(dsn string) (*Database, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(25)
	conn.SetConnMaxLifetime(5 * time.Minute)
	return &Database{Conn: conn}, nil
}

func (d *Database) AutoMigrate() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            username VARCHAR(50) UNIQUE NOT NULL,
            password VARCHAR(255) NOT NULL,
            coins BIGINT NOT NULL DEFAULT 0,
            reputation BIGINT NOT NULL DEFAULT 0,
            supported_dreams INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS favorites (
            user_id TEXT REFERENCES users(id) ON DELETE CASCADE,
            wish_id TEXT NOT NULL,
            PRIMARY KEY (user_id, wish_id)
        )`,

		`CREATE TABLE IF NOT EXISTS wishes (
            id TEXT PRIMARY KEY,
            creator_id TEXT NOT NULL REFERENCES users(id),
            title TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            image_url TEXT NOT NULL DEFAULT '',
            amount BIGINT NOT NULL,
            status VARCHAR(10) NOT NULL CHECK (status IN ('open', 'accepted', 'fulfilled')) DEFAULT 'open',
            like_count INT NOT NULL DEFAULT 0,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		// pair_key is the sorted "a|b" join of the two participant ids, so
		// concurrent find-or-create calls for one pair converge on one row.
		`CREATE TABLE IF NOT EXISTS conversations (
            id TEXT PRIMARY KEY,
            pair_key TEXT UNIQUE NOT NULL,
            participant_a TEXT NOT NULL,
            participant_b TEXT NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id TEXT PRIMARY KEY,
            conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
            seq BIGSERIAL,
            sender_id TEXT NOT NULL,
            content TEXT NOT NULL,
            message_type VARCHAR(12) NOT NULL CHECK (message_type IN ('text', 'proof', 'transaction')) DEFAULT 'text',
            related_id TEXT NOT NULL DEFAULT '',
            wish_id TEXT NOT NULL DEFAULT '',
            dreamer_id TEXT NOT NULL DEFAULT '',
            proof_text TEXT NOT NULL DEFAULT '',
            file_url TEXT NOT NULL DEFAULT '',
            approval VARCHAR(10) CHECK (approval IN ('pending', 'approved', 'rejected')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_messages_conversation_seq ON messages (conversation_id, seq)`,

		`CREATE TABLE IF NOT EXISTS message_reads (
            message_id TEXT REFERENCES messages(id) ON DELETE CASCADE,
            user_id TEXT NOT NULL,
            PRIMARY KEY (message_id, user_id)
        )`,

		`CREATE TABLE IF NOT EXISTS dreams (
            id TEXT PRIMARY KEY,
            wish_id TEXT NOT NULL REFERENCES wishes(id),
            wish_owner_id TEXT NOT NULL,
            dreamer_id TEXT NOT NULL,
            start_date TIMESTAMPTZ NOT NULL,
            end_date TIMESTAMPTZ NOT NULL,
            status VARCHAR(12) NOT NULL CHECK (status IN ('in-progress', 'fulfilled')) DEFAULT 'in-progress',
            chat_id TEXT NOT NULL,
            proof_text TEXT NOT NULL DEFAULT '',
            proof_file_url TEXT NOT NULL DEFAULT '',
            approval VARCHAR(10) CHECK (approval IN ('pending', 'approved', 'rejected')),
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_dreams_status_end_date ON dreams (status, end_date)`,

		`CREATE TABLE IF NOT EXISTS transactions (
            id BIGSERIAL PRIMARY KEY,
            user_id TEXT NOT NULL,
            amount BIGINT NOT NULL,
            type VARCHAR(20) NOT NULL CHECK (type IN ('make-wish', 'dream-completion', 'registration-bonus', 'invitation-bonus')),
            related_id TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
	}

	for _, query := range queries {
		_, err := d.Conn.Exec(query)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}
