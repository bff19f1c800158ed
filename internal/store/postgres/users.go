package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
)

// Postgres error code for unique constraint violations.
const uniqueViolation = "23505"

type users struct {
	q dbtx
}

func (r *users) Create(ctx context.Context, u *model.User) error {
	query := `INSERT INTO users (id, username, password, coins, reputation, supported_dreams)
              VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	err := r.q.QueryRowContext(ctx, query,
		u.ID, u.Username, u.Password, u.Coins, u.Reputation, u.SupportedDreams,
	).Scan(&u.CreatedAt)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.FailedPrecondition("username taken")
	}
	return err
}

func (r *users) GetByID(ctx context.Context, id string) (*model.User, error) {
	u := &model.User{}
	query := `SELECT id, username, password, coins, reputation, supported_dreams, created_at
              FROM users WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&u.ID, &u.Username, &u.Password, &u.Coins, &u.Reputation, &u.SupportedDreams, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

func (r *users) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	u := &model.User{}
	query := `SELECT id, username, password, coins, reputation, supported_dreams, created_at
              FROM users WHERE username = $1`
	err := r.q.QueryRowContext(ctx, query, username).Scan(
		&u.ID, &u.Username, &u.Password, &u.Coins, &u.Reputation, &u.SupportedDreams, &u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return u, nil
}

func (r *users) AdjustBalance(ctx context.Context, id string, delta int64) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET coins = coins + $2 WHERE id = $1`, id, delta)
	return err
}

func (r *users) Debit(ctx context.Context, id string, amount int64) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE users SET coins = coins - $2 WHERE id = $1 AND coins >= $2`, id, amount)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *users) AdjustReputation(ctx context.Context, id string, delta int64) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET reputation = reputation + $2 WHERE id = $1`, id, delta)
	return err
}

func (r *users) IncrementSupportedDreams(ctx context.Context, id string) error {
	_, err := r.q.ExecContext(ctx, `UPDATE users SET supported_dreams = supported_dreams + 1 WHERE id = $1`, id)
	return err
}

func (r *users) Leaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	query := `SELECT id, username, password, coins, reputation, supported_dreams, created_at
              FROM users ORDER BY reputation DESC, coins DESC LIMIT $1`
	rows, err := r.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		u := &model.User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.Coins, &u.Reputation, &u.SupportedDreams, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *users) HasFavorite(ctx context.Context, userID, wishID string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM favorites WHERE user_id = $1 AND wish_id = $2)`,
		userID, wishID,
	).Scan(&exists)
	return exists, err
}

func (r *users) AddFavorite(ctx context.Context, userID, wishID string) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO favorites (user_id, wish_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, wishID)
	return err
}

func (r *users) RemoveFavorite(ctx context.Context, userID, wishID string) error {
	_, err := r.q.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND wish_id = $2`, userID, wishID)
	return err
}
