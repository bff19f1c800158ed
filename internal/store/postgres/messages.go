package postgres

import (
	"context"
	"database/sql"
	"errors"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
)

type messages struct {
	q dbtx
}

const messageColumns = `id, conversation_id, seq, sender_id, content, message_type,
       related_id, wish_id, dreamer_id, proof_text, file_url, approval, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*model.Message, error) {
	m := &model.Message{}
	var approval sql.NullString
	err := row.Scan(
		&m.ID, &m.ConversationID, &m.Seq, &m.SenderID, &m.Content, &m.Type,
		&m.RelatedID, &m.WishID, &m.DreamerID, &m.ProofText, &m.FileURL, &approval, &m.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approval.Valid {
		m.Approval = model.Approval(approval.String)
	}
	return m, nil
}

func (r *messages) Append(ctx context.Context, m *model.Message) error {
	var approval any
	if m.Approval != "" {
		approval = string(m.Approval)
	}
	query := `INSERT INTO messages (id, conversation_id, sender_id, content, message_type,
                  related_id, wish_id, dreamer_id, proof_text, file_url, approval)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
              RETURNING seq, created_at`
	return r.q.QueryRowContext(ctx, query,
		m.ID, m.ConversationID, m.SenderID, m.Content, m.Type,
		m.RelatedID, m.WishID, m.DreamerID, m.ProofText, m.FileURL, approval,
	).Scan(&m.Seq, &m.CreatedAt)
}

func (r *messages) GetByID(ctx context.Context, id string) (*model.Message, error) {
	m, err := scanMessage(r.q.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("message not found")
		}
		return nil, err
	}
	return m, nil
}

func (r *messages) ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY seq ASC`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *messages) LastInConversation(ctx context.Context, conversationID string) (*model.Message, error) {
	m, err := scanMessage(r.q.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE conversation_id = $1 ORDER BY seq DESC LIMIT 1`,
		conversationID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *messages) MarkRead(ctx context.Context, conversationID, userID string) error {
	// Self-authored messages are excluded by definition; the conflict clause
	// makes repeated calls no-ops.
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO message_reads (message_id, user_id)
         SELECT m.id, $2 FROM messages m
         WHERE m.conversation_id = $1 AND m.sender_id <> $2
         ON CONFLICT DO NOTHING`,
		conversationID, userID)
	return err
}

func (r *messages) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages m
         WHERE m.conversation_id = $1 AND m.sender_id <> $2
           AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = $2)`,
		conversationID, userID,
	).Scan(&n)
	return n, err
}

func (r *messages) UnreadTotal(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages m
         JOIN conversations c ON c.id = m.conversation_id
         WHERE (c.participant_a = $1 OR c.participant_b = $1)
           AND m.sender_id <> $1
           AND NOT EXISTS (SELECT 1 FROM message_reads r WHERE r.message_id = m.id AND r.user_id = $1)`,
		userID,
	).Scan(&n)
	return n, err
}

func (r *messages) CompareAndSetApproval(ctx context.Context, messageID string, from, to model.Approval) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE messages SET approval = $3 WHERE id = $1 AND approval = $2`,
		messageID, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
