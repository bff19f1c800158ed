// Package ledger exposes the append-only transaction history and the
// invitation bonus routine.
package ledger

import (
	"context"

	"github.com/rs/zerolog"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
	"wishwell/internal/store"
)

type Service struct {
	store store.Store
	log   zerolog.Logger
}

func NewService(st store.Store, log zerolog.Logger) *Service {
	return &Service{store: st, log: log}
}

// History returns the user's transactions, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]*model.Transaction, error) {
	return s.store.Ledger().ListByUser(ctx, userID)
}

// InvitationBonus credits amount to the inviter and records it. relatedID
// identifies the invited account.
func (s *Service) InvitationBonus(ctx context.Context, inviterID string, amount int64, relatedID string) error {
	if amount <= 0 {
		return apperr.InvalidArg("bonus amount must be positive")
	}
	return s.store.WithTx(ctx, func(ts store.Store) error {
		if err := ts.Users().AdjustBalance(ctx, inviterID, amount); err != nil {
			return err
		}
		return ts.Ledger().Append(ctx, &model.Transaction{
			UserID:    inviterID,
			Amount:    amount,
			Type:      model.TxInvitationBonus,
			RelatedID: relatedID,
		})
	})
}
