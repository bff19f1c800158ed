package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
)

type dreams struct {
	q dbtx
}

const dreamColumns = `id, wish_id, wish_owner_id, dreamer_id, start_date, end_date,
       status, chat_id, proof_text, proof_file_url, approval, created_at`

func scanDream(row interface{ Scan(...any) error }) (*model.Dream, error) {
	d := &model.Dream{}
	var approval sql.NullString
	err := row.Scan(
		&d.ID, &d.WishID, &d.WishOwnerID, &d.DreamerID, &d.StartDate, &d.EndDate,
		&d.Status, &d.ChatID, &d.ProofText, &d.ProofFileURL, &approval, &d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if approval.Valid {
		d.Approval = model.Approval(approval.String)
	}
	return d, nil
}

func (r *dreams) Create(ctx context.Context, d *model.Dream) error {
	query := `INSERT INTO dreams (id, wish_id, wish_owner_id, dreamer_id, start_date, end_date, status, chat_id)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING created_at`
	return r.q.QueryRowContext(ctx, query,
		d.ID, d.WishID, d.WishOwnerID, d.DreamerID, d.StartDate, d.EndDate, d.Status, d.ChatID,
	).Scan(&d.CreatedAt)
}

func (r *dreams) GetByID(ctx context.Context, id string) (*model.Dream, error) {
	d, err := scanDream(r.q.QueryRowContext(ctx,
		`SELECT `+dreamColumns+` FROM dreams WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("dream not found")
		}
		return nil, err
	}
	return d, nil
}

func (r *dreams) ListInProgressByDreamer(ctx context.Context, dreamerID string) ([]*model.Dream, error) {
	return r.list(ctx,
		`SELECT `+dreamColumns+` FROM dreams WHERE dreamer_id = $1 AND status = 'in-progress' ORDER BY created_at DESC`,
		dreamerID)
}

func (r *dreams) ListExpired(ctx context.Context, cutoff time.Time) ([]*model.Dream, error) {
	return r.list(ctx,
		`SELECT `+dreamColumns+` FROM dreams WHERE status = 'in-progress' AND end_date < $1`,
		cutoff)
}

func (r *dreams) list(ctx context.Context, query string, args ...any) ([]*model.Dream, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Dream
	for rows.Next() {
		d, err := scanDream(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *dreams) SetProof(ctx context.Context, id, proofText, fileURL string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE dreams SET proof_text = $2, proof_file_url = $3, approval = 'pending' WHERE id = $1`,
		id, proofText, fileURL)
	return err
}

func (r *dreams) SetApproval(ctx context.Context, id string, a model.Approval) error {
	_, err := r.q.ExecContext(ctx, `UPDATE dreams SET approval = $2 WHERE id = $1`, id, a)
	return err
}

func (r *dreams) MarkFulfilled(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE dreams SET status = 'fulfilled', approval = 'approved' WHERE id = $1`, id)
	return err
}

func (r *dreams) CountInProgressByChat(ctx context.Context, chatID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM dreams WHERE chat_id = $1 AND status = 'in-progress'`, chatID,
	).Scan(&n)
	return n, err
}

func (r *dreams) Delete(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `DELETE FROM dreams WHERE id = $1`, id)
	return err
}
