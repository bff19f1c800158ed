package postgres

import (
	"context"
	"database/sql"
	"errors"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
)

type wishes struct {
	q dbtx
}

func (r *wishes) Create(ctx context.Context, w *model.Wish) error {
	query := `INSERT INTO wishes (id, creator_id, title, description, image_url, amount, status)
              VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`
	return r.q.QueryRowContext(ctx, query,
		w.ID, w.CreatorID, w.Title, w.Description, w.ImageURL, w.Amount, w.Status,
	).Scan(&w.CreatedAt)
}

func (r *wishes) GetByID(ctx context.Context, id string) (*model.Wish, error) {
	w := &model.Wish{}
	query := `SELECT id, creator_id, title, description, image_url, amount, status, like_count, created_at
              FROM wishes WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&w.ID, &w.CreatorID, &w.Title, &w.Description, &w.ImageURL, &w.Amount, &w.Status, &w.LikeCount, &w.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("wish not found")
		}
		return nil, err
	}
	return w, nil
}

func (r *wishes) List(ctx context.Context, status model.WishStatus) ([]*model.Wish, error) {
	query := `SELECT id, creator_id, title, description, image_url, amount, status, like_count, created_at
              FROM wishes`
	args := []any{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Wish
	for rows.Next() {
		w := &model.Wish{}
		if err := rows.Scan(&w.ID, &w.CreatorID, &w.Title, &w.Description, &w.ImageURL, &w.Amount, &w.Status, &w.LikeCount, &w.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *wishes) CompareAndSetStatus(ctx context.Context, id string, from, to model.WishStatus) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE wishes SET status = $3 WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *wishes) AdjustLikeCount(ctx context.Context, id string, delta int) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE wishes SET like_count = like_count + $2 WHERE id = $1`, id, delta)
	return err
}
