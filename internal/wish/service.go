// Package wish implements the wish catalog: creating a staked wish and
// reading it back. Status transitions belong to the dream lifecycle.
package wish

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
	"wishwell/internal/store"
)

var (
	ErrInvalidAmount     = apperr.InvalidArg("amount must be a positive multiple of 5")
	ErrInsufficientCoins = apperr.FailedPrecondition("not enough coins to stake this wish")
)

type CreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
	Amount      int64  `json:"amount"`
}

type Service struct {
	store store.Store
	log   zerolog.Logger
}

func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log}
}

// Create stakes the amount out of the creator's balance, opens the wish and
// appends the make-wish ledger entry, all in one transaction. The debit is
// conditional on the balance covering the stake.
func (s *Service) Create(ctx context.Context, creatorID string, req *CreateRequest) (*model.Wish, error) {
	if req.Title == "" {
		return nil, apperr.InvalidArg("title is required")
	}
	if req.Amount <= 0 || req.Amount%5 != 0 {
		return nil, ErrInvalidAmount
	}

	w := &model.Wish{
		ID:          uuid.NewString(),
		CreatorID:   creatorID,
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		Amount:      req.Amount,
		Status:      model.WishOpen,
	}

	err := s.store.WithTx(ctx, func(ts store.Store) error {
		ok, err := ts.Users().Debit(ctx, creatorID, req.Amount)
		if err != nil {
			return err
		}
		if !ok {
			return ErrInsufficientCoins
		}
		if err := ts.Wishes().Create(ctx, w); err != nil {
			return err
		}
		return ts.Ledger().Append(ctx, &model.Transaction{
			UserID:    creatorID,
			Amount:    -req.Amount,
			Type:      model.TxMakeWish,
			RelatedID: w.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Wish, error) {
	return s.store.Wishes().GetByID(ctx, id)
}

// List returns wishes, optionally filtered by status.
func (s *Service) List(ctx context.Context, status model.WishStatus) ([]*model.Wish, error) {
	switch status {
	case "", model.WishOpen, model.WishAccepted, model.WishFulfilled:
		return s.store.Wishes().List(ctx, status)
	default:
		return nil, apperr.InvalidArg("unknown wish status")
	}
}
