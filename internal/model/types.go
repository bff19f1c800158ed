// Package model holds the shared entity types for the wishwell service.
package model

import "time"

// SystemSender is the synthetic participant used for automated notifications.
// It is never a row in the users table.
const SystemSender = "system"

// Approval is the tri-state review status shared by dreams and proof messages.
type Approval string

const (
	ApprovalPending  Approval = "pending"
	ApprovalApproved Approval = "approved"
	ApprovalRejected Approval = "rejected"
)

type WishStatus string

const (
	WishOpen      WishStatus = "open"
	WishAccepted  WishStatus = "accepted"
	WishFulfilled WishStatus = "fulfilled"
)

type DreamStatus string

const (
	DreamInProgress DreamStatus = "in-progress"
	DreamFulfilled  DreamStatus = "fulfilled"
)

type MessageType string

const (
	MessageText        MessageType = "text"
	MessageProof       MessageType = "proof"
	MessageTransaction MessageType = "transaction"
)

type TransactionType string

const (
	TxMakeWish          TransactionType = "make-wish"
	TxDreamCompletion   TransactionType = "dream-completion"
	TxRegistrationBonus TransactionType = "registration-bonus"
	TxInvitationBonus   TransactionType = "invitation-bonus"
)

type User struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	Password        string    `json:"-"`
	Coins           int64     `json:"coins"`
	Reputation      int64     `json:"reputation"`
	SupportedDreams int       `json:"supported_dreams"`
	CreatedAt       time.Time `json:"created_at"`
}

// Level is derived at read time so it can never go stale against the
// balance and reputation it is computed from.
func (u *User) Level() int {
	return 1 + int(u.Coins/100+u.Reputation/50)
}

type Wish struct {
	ID          string     `json:"id"`
	CreatorID   string     `json:"creator_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	ImageURL    string     `json:"image_url,omitempty"`
	Amount      int64      `json:"amount"`
	Status      WishStatus `json:"status"`
	LikeCount   int        `json:"like_count"`
	CreatedAt   time.Time  `json:"created_at"`
}

type Dream struct {
	ID           string      `json:"id"`
	WishID       string      `json:"wish_id"`
	WishOwnerID  string      `json:"wish_owner_id"`
	DreamerID    string      `json:"dreamer_id"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	Status       DreamStatus `json:"status"`
	ChatID       string      `json:"chat_id"`
	ProofText    string      `json:"proof_text,omitempty"`
	ProofFileURL string      `json:"proof_file_url,omitempty"`
	// Approval is empty until the first proof submission.
	Approval  Approval  `json:"approval,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type Conversation struct {
	ID           string    `json:"id"`
	ParticipantA string    `json:"participant_a"`
	ParticipantB string    `json:"participant_b"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsSystem reports whether one side of the conversation is the system sender.
func (c *Conversation) IsSystem() bool {
	return c.ParticipantA == SystemSender || c.ParticipantB == SystemSender
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

// Has reports whether userID is one of the two participants.
func (c *Conversation) Has(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}

type Message struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`

	// Seq is assigned by the store and totally orders messages by arrival.
	Seq      int64       `json:"seq"`
	SenderID string      `json:"sender_id"`
	Content  string      `json:"content"`
	Type     MessageType `json:"message_type"`

	// Proof payload, set only on proof-typed messages.
	RelatedID string   `json:"related_id,omitempty"`
	WishID    string   `json:"wish_id,omitempty"`
	DreamerID string   `json:"dreamer_id,omitempty"`
	ProofText string   `json:"proof_text,omitempty"`
	FileURL   string   `json:"file_url,omitempty"`
	Approval  Approval `json:"approval,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

type Transaction struct {
	ID        int64           `json:"id"`
	UserID    string          `json:"user_id"`
	Amount    int64           `json:"amount"`
	Type      TransactionType `json:"type"`
	RelatedID string          `json:"related_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ParticipantSummary is the display identity of the other side of a
// conversation as shown in the inbox.
type ParticipantSummary struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	System   bool   `json:"system"`
}

// InboxEntry is one row of a user's live inbox view.
type InboxEntry struct {
	ConversationID string             `json:"conversation_id"`
	Other          ParticipantSummary `json:"other"`
	// LastMessage is nil for a conversation with no messages yet; Preview
	// then carries the placeholder text.
	LastMessage *Message `json:"last_message,omitempty"`
	Preview     string   `json:"preview"`
	UnreadCount int      `json:"unread_count"`
}
