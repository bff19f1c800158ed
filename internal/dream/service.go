// Package dream implements the fulfillment lifecycle: committing to a wish,
// submitting proof, the approval settlement, and the expiry sweep.
package dream

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"wishwell/internal/apperr"
	"wishwell/internal/chat"
	"wishwell/internal/model"
	"wishwell/internal/store"
)

var (
	ErrWishNotOpen        = apperr.FailedPrecondition("wish is not open")
	ErrOwnWish            = apperr.FailedPrecondition("you cannot fulfill your own wish")
	ErrEndDateInPast      = apperr.InvalidArg("end date cannot be earlier than today")
	ErrNotDreamer         = apperr.PermissionDenied("only the dreamer can submit proof")
	ErrNotOwner           = apperr.PermissionDenied("only the wish owner can decide on a proof")
	ErrDreamNotInProgress = apperr.FailedPrecondition("dream is not in progress")
	ErrProofPending       = apperr.FailedPrecondition("a proof is already awaiting review")
	ErrProofRequired      = apperr.InvalidArg("proof description is required")
	ErrNotDreamProof      = apperr.InvalidArg("message is not a proof for this dream")
	ErrAlreadyResolved    = apperr.AlreadyResolved("this proof has already been resolved")
)

const greeting = "Hi! I'm here to make your wish come true!"

type Service struct {
	store  store.Store
	engine *chat.Engine
	log    zerolog.Logger
}

func NewService(st store.Store, engine *chat.Engine, log zerolog.Logger) *Service {
	return &Service{store: st, engine: engine, log: log}
}

// Commit starts a dream against an open wish: the wish flips to accepted, a
// conversation between owner and dreamer is opened and the dreamer's greeting
// posted, all in one transaction. The status flip is a compare-and-swap, so
// of two concurrent dreamers exactly one wins.
func (s *Service) Commit(ctx context.Context, wishID, dreamerID string, endDate time.Time) (*model.Dream, error) {
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if endDate.Before(today) {
		return nil, ErrEndDateInPast
	}

	wish, err := s.store.Wishes().GetByID(ctx, wishID)
	if err != nil {
		return nil, err
	}
	if wish.CreatorID == dreamerID {
		return nil, ErrOwnWish
	}
	if wish.Status != model.WishOpen {
		return nil, ErrWishNotOpen
	}

	var (
		dream *model.Dream
		conv  *model.Conversation
	)
	err = s.store.WithTx(ctx, func(ts store.Store) error {
		ok, err := ts.Wishes().CompareAndSetStatus(ctx, wishID, model.WishOpen, model.WishAccepted)
		if err != nil {
			return err
		}
		if !ok {
			return ErrWishNotOpen
		}

		conv, err = ts.Conversations().FindOrCreate(ctx, wish.CreatorID, dreamerID)
		if err != nil {
			return err
		}

		dream = &model.Dream{
			ID:          uuid.NewString(),
			WishID:      wishID,
			WishOwnerID: wish.CreatorID,
			DreamerID:   dreamerID,
			StartDate:   now,
			EndDate:     endDate,
			Status:      model.DreamInProgress,
			ChatID:      conv.ID,
		}
		if err := ts.Dreams().Create(ctx, dream); err != nil {
			return err
		}

		return ts.Messages().Append(ctx, chat.NewTextMessage(conv.ID, dreamerID, greeting))
	})
	if err != nil {
		return nil, err
	}

	s.engine.PublishConversationEvent(ctx, conv)
	return dream, nil
}

// SubmitProof stores the proof on the dream and posts the proof message the
// owner acts on into the shared conversation. A rejected proof may be
// resubmitted; approval resets to pending.
func (s *Service) SubmitProof(ctx context.Context, dreamID, callerID, proofText, fileURL string) error {
	if proofText == "" {
		return ErrProofRequired
	}

	dream, err := s.store.Dreams().GetByID(ctx, dreamID)
	if err != nil {
		return err
	}
	if dream.DreamerID != callerID {
		return ErrNotDreamer
	}
	if dream.Status != model.DreamInProgress {
		return ErrDreamNotInProgress
	}
	if dream.Approval == model.ApprovalPending {
		return ErrProofPending
	}

	err = s.store.WithTx(ctx, func(ts store.Store) error {
		if err := ts.Dreams().SetProof(ctx, dreamID, proofText, fileURL); err != nil {
			return err
		}
		msg := chat.NewProofMessage(dream.ChatID, dream.ID, dream.WishID, dream.DreamerID, proofText, fileURL)
		return ts.Messages().Append(ctx, msg)
	})
	if err != nil {
		return err
	}

	if conv, err := s.store.Conversations().GetByID(ctx, dream.ChatID); err == nil {
		s.engine.PublishConversationEvent(ctx, conv)
	}
	return nil
}

// ListInProgress returns the caller's active dreams.
func (s *Service) ListInProgress(ctx context.Context, dreamerID string) ([]*model.Dream, error) {
	return s.store.Dreams().ListInProgressByDreamer(ctx, dreamerID)
}

// Sweep expires every in-progress dream whose end date has passed: the dream
// is deleted, the conversation (messages included) goes with it once no other
// in-progress dream uses it, and the wish reverts to open. Each dream is
// handled in its own transaction; one failure does not abort the rest.
func (s *Service) Sweep(ctx context.Context) (int, error) {
	expired, err := s.store.Dreams().ListExpired(ctx, time.Now())
	if err != nil {
		return 0, err
	}

	count := 0
	for _, d := range expired {
		err := s.store.WithTx(ctx, func(ts store.Store) error {
			if err := ts.Dreams().Delete(ctx, d.ID); err != nil {
				return err
			}
			// The conversation is shared by every dream between this pair;
			// it goes only when the last in-progress dream does.
			active, err := ts.Dreams().CountInProgressByChat(ctx, d.ChatID)
			if err != nil {
				return err
			}
			if active == 0 {
				if err := ts.Conversations().Delete(ctx, d.ChatID); err != nil {
					return err
				}
			}
			ok, err := ts.Wishes().CompareAndSetStatus(ctx, d.WishID, model.WishAccepted, model.WishOpen)
			if err != nil {
				return err
			}
			if !ok {
				s.log.Warn().Str("wish", d.WishID).Msg("sweep: wish was not in accepted state")
			}
			return nil
		})
		if err != nil {
			s.log.Error().Err(err).Str("dream", d.ID).Msg("sweep: expiring dream failed")
			continue
		}
		count++
	}

	if count > 0 {
		s.log.Info().Int("expired", count).Msg("expired dreams swept")
	}
	return count, nil
}
