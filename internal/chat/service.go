package chat

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
	"wishwell/internal/store"
)

// SystemDisplayName is the fixed display identity of the system sender.
const SystemDisplayName = "System Notifications"

const noMessagesPreview = "No messages yet"

// Engine is the messaging engine: it owns conversations and messages,
// computes unread counts and inbox views, and fans live updates out through
// the Bus.
type Engine struct {
	store store.Store
	bus   Bus
	log   zerolog.Logger
}

func NewEngine(st store.Store, bus Bus, log zerolog.Logger) *Engine {
	return &Engine{store: st, bus: bus, log: log}
}

// FindOrCreateConversation returns the single conversation for the unordered
// pair, creating it if absent.
func (e *Engine) FindOrCreateConversation(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	if userA == userB {
		return nil, apperr.InvalidArg("cannot open a conversation with yourself")
	}
	return e.store.Conversations().FindOrCreate(ctx, userA, userB)
}

// PostTextMessage appends a text message. System conversations are not
// repliable by human senders.
func (e *Engine) PostTextMessage(ctx context.Context, conversationID, senderID, content string) (*model.Message, error) {
	if content == "" {
		return nil, apperr.InvalidArg("message content is required")
	}
	conv, err := e.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if senderID != model.SystemSender {
		if !conv.Has(senderID) {
			return nil, apperr.PermissionDenied("not a participant of this conversation")
		}
		if conv.IsSystem() {
			return nil, apperr.FailedPrecondition("system notifications cannot be replied to")
		}
	}

	msg := NewTextMessage(conversationID, senderID, content)
	if err := e.store.Messages().Append(ctx, msg); err != nil {
		return nil, err
	}
	e.PublishConversationEvent(ctx, conv)
	return msg, nil
}

// MarkRead adds userID to the read set of every foreign message in the
// conversation. Safe to call repeatedly.
func (e *Engine) MarkRead(ctx context.Context, conversationID, userID string) error {
	conv, err := e.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return err
	}
	if !conv.Has(userID) {
		return apperr.PermissionDenied("not a participant of this conversation")
	}
	if err := e.store.Messages().MarkRead(ctx, conversationID, userID); err != nil {
		return err
	}
	// The reader's own badge counts changed; their other sessions refresh.
	if err := e.bus.PublishInbox(ctx, userID); err != nil {
		e.log.Warn().Err(err).Str("user", userID).Msg("publish inbox event failed")
	}
	return nil
}

// Messages returns the conversation's messages in timestamp order.
func (e *Engine) Messages(ctx context.Context, conversationID, userID string) ([]*model.Message, error) {
	conv, err := e.store.Conversations().GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conv.Has(userID) {
		return nil, apperr.PermissionDenied("not a participant of this conversation")
	}
	return e.store.Messages().ListByConversation(ctx, conversationID)
}

// Inbox computes the aggregate inbox view for userID: one entry per
// conversation, sorted by last-message time descending, empty conversations
// last. A failure resolving one conversation degrades that entry only.
func (e *Engine) Inbox(ctx context.Context, userID string) ([]model.InboxEntry, error) {
	convs, err := e.store.Conversations().ListByParticipant(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries := make([]model.InboxEntry, 0, len(convs))
	for _, conv := range convs {
		entries = append(entries, e.inboxEntry(ctx, conv, userID))
	}

	sort.SliceStable(entries, func(i, j int) bool {
		li, lj := entries[i].LastMessage, entries[j].LastMessage
		switch {
		case li == nil:
			return false
		case lj == nil:
			return true
		default:
			return li.Seq > lj.Seq
		}
	})
	return entries, nil
}

func (e *Engine) inboxEntry(ctx context.Context, conv *model.Conversation, userID string) model.InboxEntry {
	entry := model.InboxEntry{
		ConversationID: conv.ID,
		Other:          e.participantSummary(ctx, conv.Other(userID)),
		Preview:        noMessagesPreview,
	}

	last, err := e.store.Messages().LastInConversation(ctx, conv.ID)
	if err != nil {
		e.log.Warn().Err(err).Str("conversation", conv.ID).Msg("inbox: last message lookup failed")
		entry.Preview = "conversation unavailable"
		return entry
	}
	if last != nil {
		entry.LastMessage = last
		entry.Preview = last.Content
	}

	unread, err := e.store.Messages().UnreadCount(ctx, conv.ID, userID)
	if err != nil {
		e.log.Warn().Err(err).Str("conversation", conv.ID).Msg("inbox: unread count failed")
		return entry
	}
	entry.UnreadCount = unread
	return entry
}

// participantSummary resolves the display identity of the other side. A
// deleted or unresolvable profile degrades to a fallback identity rather than
// failing the inbox.
func (e *Engine) participantSummary(ctx context.Context, participantID string) model.ParticipantSummary {
	if participantID == model.SystemSender {
		return model.ParticipantSummary{ID: model.SystemSender, Username: SystemDisplayName, System: true}
	}
	u, err := e.store.Users().GetByID(ctx, participantID)
	if err != nil {
		return model.ParticipantSummary{ID: participantID, Username: "Unknown"}
	}
	return model.ParticipantSummary{ID: u.ID, Username: u.Username}
}

// UnreadTotal is the badge count: unread messages summed over every
// conversation of userID.
func (e *Engine) UnreadTotal(ctx context.Context, userID string) (int, error) {
	return e.store.Messages().UnreadTotal(ctx, userID)
}

// Notify appends a system notification to the (system, userID) conversation,
// creating it on first use.
func (e *Engine) Notify(ctx context.Context, userID, content string, t model.MessageType) error {
	conv, err := e.store.Conversations().FindOrCreate(ctx, model.SystemSender, userID)
	if err != nil {
		return err
	}
	if err := e.store.Messages().Append(ctx, NewSystemMessage(conv.ID, content, t)); err != nil {
		return err
	}
	if err := e.bus.PublishInbox(ctx, userID); err != nil {
		e.log.Warn().Err(err).Str("user", userID).Msg("publish inbox event failed")
	}
	return nil
}

// PublishConversationEvent nudges every human participant's inbox. Callers
// that write messages inside a transaction fire this after commit.
func (e *Engine) PublishConversationEvent(ctx context.Context, conv *model.Conversation) {
	for _, p := range []string{conv.ParticipantA, conv.ParticipantB} {
		if p == model.SystemSender {
			continue
		}
		if err := e.bus.PublishInbox(ctx, p); err != nil {
			e.log.Warn().Err(err).Str("user", p).Msg("publish inbox event failed")
		}
	}
}
