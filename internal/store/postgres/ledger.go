package postgres

import (
	"context"

	"wishwell/internal/model"
)

type ledger struct {
	q dbtx
}

func (r *ledger) Append(ctx context.Context, t *model.Transaction) error {
	query := `INSERT INTO transactions (user_id, amount, type, related_id)
              VALUES ($1, $2, $3, $4) RETURNING id, created_at`
	return r.q.QueryRowContext(ctx, query,
		t.UserID, t.Amount, t.Type, t.RelatedID,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *ledger) ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, user_id, amount, type, related_id, created_at
         FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Transaction
	for rows.Next() {
		t := &model.Transaction{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.RelatedID, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
