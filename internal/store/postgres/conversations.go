package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
)

type conversations struct {
	q dbtx
}

// PairKey returns the deterministic key for an unordered participant pair.
func PairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (r *conversations) FindOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	key := PairKey(userA, userB)
	a, b, _ := strings.Cut(key, "|")

	// The unique pair_key makes concurrent calls for one pair converge on a
	// single row; the losing insert is a no-op and the select sees the winner.
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO conversations (id, pair_key, participant_a, participant_b)
         VALUES ($1, $2, $3, $4) ON CONFLICT (pair_key) DO NOTHING`,
		uuid.NewString(), key, a, b)
	if err != nil {
		return nil, err
	}

	c := &model.Conversation{}
	err = r.q.QueryRowContext(ctx,
		`SELECT id, participant_a, participant_b, created_at FROM conversations WHERE pair_key = $1`,
		key,
	).Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *conversations) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	c := &model.Conversation{}
	err := r.q.QueryRowContext(ctx,
		`SELECT id, participant_a, participant_b, created_at FROM conversations WHERE id = $1`,
		id,
	).Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, err
	}
	return c, nil
}

func (r *conversations) ListByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, participant_a, participant_b, created_at FROM conversations
         WHERE participant_a = $1 OR participant_b = $1`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Conversation
	for rows.Next() {
		c := &model.Conversation{}
		if err := rows.Scan(&c.ID, &c.ParticipantA, &c.ParticipantB, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *conversations) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM conversations WHERE id = $1`, id)
	return err
}
