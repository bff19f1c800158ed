// Package store defines the persistence interfaces the services are written
// against. The postgres sub-package implements them; tests use the in-memory
// implementation in storetest.
package store

import (
	"context"
	"time"

	"wishwell/internal/model"
)

// Store groups the per-aggregate repositories. WithTx runs fn against a
// transaction-scoped Store and commits iff fn returns nil; every multi-write
// sequence in the dream and wish flows goes through it.
type Store interface {
	Users() Users
	Wishes() Wishes
	Dreams() Dreams
	Conversations() Conversations
	Messages() Messages
	Ledger() Ledger
	WithTx(ctx context.Context, fn func(Store) error) error
}

type Users interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	AdjustBalance(ctx context.Context, id string, delta int64) error
	// Debit subtracts amount only if the balance covers it.
	Debit(ctx context.Context, id string, amount int64) (bool, error)
	AdjustReputation(ctx context.Context, id string, delta int64) error
	IncrementSupportedDreams(ctx context.Context, id string) error
	Leaderboard(ctx context.Context, limit int) ([]*model.User, error)
	HasFavorite(ctx context.Context, userID, wishID string) (bool, error)
	AddFavorite(ctx context.Context, userID, wishID string) error
	RemoveFavorite(ctx context.Context, userID, wishID string) error
}

type Wishes interface {
	Create(ctx context.Context, w *model.Wish) error
	GetByID(ctx context.Context, id string) (*model.Wish, error)
	List(ctx context.Context, status model.WishStatus) ([]*model.Wish, error)
	// CompareAndSetStatus transitions id from->to and reports whether the
	// guard held. All wish status changes go through this gate.
	CompareAndSetStatus(ctx context.Context, id string, from, to model.WishStatus) (bool, error)
	AdjustLikeCount(ctx context.Context, id string, delta int) error
}

type Dreams interface {
	Create(ctx context.Context, d *model.Dream) error
	GetByID(ctx context.Context, id string) (*model.Dream, error)
	ListInProgressByDreamer(ctx context.Context, dreamerID string) ([]*model.Dream, error)
	// ListExpired returns in-progress dreams whose end date is before cutoff.
	ListExpired(ctx context.Context, cutoff time.Time) ([]*model.Dream, error)
	// SetProof stores the proof payload and resets approval to pending.
	SetProof(ctx context.Context, id, proofText, fileURL string) error
	SetApproval(ctx context.Context, id string, a model.Approval) error
	// MarkFulfilled sets status=fulfilled and approval=approved.
	MarkFulfilled(ctx context.Context, id string) error
	// CountInProgressByChat counts in-progress dreams whose chat is chatID.
	// Conversations are shared per participant pair, so the sweep needs this
	// before it may delete one.
	CountInProgressByChat(ctx context.Context, chatID string) (int, error)
	Delete(ctx context.Context, id string) error
}

type Conversations interface {
	// FindOrCreate returns the single conversation for the unordered pair,
	// creating it atomically when absent.
	FindOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error)
	GetByID(ctx context.Context, id string) (*model.Conversation, error)
	ListByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error)
	// Delete removes the conversation and, by cascade, its messages.
	Delete(ctx context.Context, id string) error
}

type Messages interface {
	Append(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id string) (*model.Message, error)
	ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error)
	// LastInConversation returns (nil, nil) for an empty conversation.
	LastInConversation(ctx context.Context, conversationID string) (*model.Message, error)
	// MarkRead adds userID to the read set of every message in the
	// conversation not authored by userID. Idempotent.
	MarkRead(ctx context.Context, conversationID, userID string) error
	UnreadCount(ctx context.Context, conversationID, userID string) (int, error)
	UnreadTotal(ctx context.Context, userID string) (int, error)
	// CompareAndSetApproval flips the proof message's approval from->to and
	// reports whether the guard held. This is the settlement re-entry gate.
	CompareAndSetApproval(ctx context.Context, messageID string, from, to model.Approval) (bool, error)
}

type Ledger interface {
	Append(ctx context.Context, t *model.Transaction) error
	ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error)
}
