package dream

import (
	"context"
	"fmt"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
	"wishwell/internal/store"
)

// Settlement bonuses applied on approval.
const (
	dreamerReputationBonus = 50
	ownerReputationBonus   = 10
)

type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Decide settles a pending proof. The state-mutating writes run in a single
// transaction gated on the proof message still being pending, so a repeated
// or concurrent decision is rejected instead of crediting twice.
// Notifications are post-commit and best-effort: a failure there is logged,
// never surfaced, because the settlement is already durable.
func (s *Service) Decide(ctx context.Context, callerID, dreamID, messageID string, decision Decision) error {
	dream, err := s.store.Dreams().GetByID(ctx, dreamID)
	if err != nil {
		return err
	}
	if dream.WishOwnerID != callerID {
		return ErrNotOwner
	}

	// A proof message settles only the dream it references; without this
	// check the owner of one dream could resolve another dream's proof.
	msg, err := s.store.Messages().GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.Type != model.MessageProof || msg.RelatedID != dream.ID {
		return ErrNotDreamProof
	}

	switch decision {
	case DecisionApprove:
		return s.approve(ctx, dream, messageID)
	case DecisionReject:
		return s.reject(ctx, dream, messageID)
	default:
		return apperr.InvalidArg("decision must be approve or reject")
	}
}

func (s *Service) approve(ctx context.Context, dream *model.Dream, messageID string) error {
	var amount int64
	err := s.store.WithTx(ctx, func(ts store.Store) error {
		ok, err := ts.Messages().CompareAndSetApproval(ctx, messageID, model.ApprovalPending, model.ApprovalApproved)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}

		wish, err := ts.Wishes().GetByID(ctx, dream.WishID)
		if err != nil {
			return err
		}
		amount = wish.Amount

		if err := ts.Users().AdjustBalance(ctx, dream.DreamerID, amount); err != nil {
			return err
		}
		if err := ts.Users().IncrementSupportedDreams(ctx, dream.DreamerID); err != nil {
			return err
		}
		if err := ts.Users().AdjustReputation(ctx, dream.DreamerID, dreamerReputationBonus); err != nil {
			return err
		}
		if err := ts.Users().AdjustReputation(ctx, wish.CreatorID, ownerReputationBonus); err != nil {
			return err
		}

		ok, err = ts.Wishes().CompareAndSetStatus(ctx, wish.ID, model.WishAccepted, model.WishFulfilled)
		if err != nil {
			return err
		}
		if !ok {
			return apperr.FailedPrecondition("wish is not in accepted state")
		}

		if err := ts.Dreams().MarkFulfilled(ctx, dream.ID); err != nil {
			return err
		}

		return ts.Ledger().Append(ctx, &model.Transaction{
			UserID:    dream.DreamerID,
			Amount:    amount,
			Type:      model.TxDreamCompletion,
			RelatedID: dream.ID,
		})
	})
	if err != nil {
		return err
	}

	s.notify(ctx, dream.DreamerID, "Your dream proof has been approved. Congratulations!", model.MessageText)
	s.notify(ctx, dream.DreamerID, fmt.Sprintf("Coin transaction notice: you received %d coins.", amount), model.MessageTransaction)
	s.publishChatEvent(ctx, dream.ChatID)
	return nil
}

func (s *Service) reject(ctx context.Context, dream *model.Dream, messageID string) error {
	err := s.store.WithTx(ctx, func(ts store.Store) error {
		ok, err := ts.Messages().CompareAndSetApproval(ctx, messageID, model.ApprovalPending, model.ApprovalRejected)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyResolved
		}
		// Status stays in-progress so the dreamer can resubmit.
		return ts.Dreams().SetApproval(ctx, dream.ID, model.ApprovalRejected)
	})
	if err != nil {
		return err
	}

	s.notify(ctx, dream.DreamerID, "Your dream proof was not approved. Please submit a new one.", model.MessageText)
	s.publishChatEvent(ctx, dream.ChatID)
	return nil
}

func (s *Service) notify(ctx context.Context, userID, content string, t model.MessageType) {
	if err := s.engine.Notify(ctx, userID, content, t); err != nil {
		s.log.Error().Err(err).Str("user", userID).Msg("settlement notification failed")
	}
}

func (s *Service) publishChatEvent(ctx context.Context, chatID string) {
	conv, err := s.store.Conversations().GetByID(ctx, chatID)
	if err != nil {
		return
	}
	s.engine.PublishConversationEvent(ctx, conv)
}
