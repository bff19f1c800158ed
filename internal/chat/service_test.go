package chat

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
	"wishwell/internal/store/storetest"
)

func newTestEngine(t *testing.T) (*Engine, *storetest.Mem) {
	t.Helper()
	st := storetest.New()
	return NewEngine(st, NewMemoryBus(), zerolog.Nop()), st
}

func seedUser(t *testing.T, st *storetest.Mem, id, username string) {
	t.Helper()
	require.NoError(t, st.Users().Create(context.Background(), &model.User{ID: id, Username: username}))
}

func TestFindOrCreateConversation(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	seedUser(t, st, "alice", "alice")
	seedUser(t, st, "bob", "bob")

	first, err := engine.FindOrCreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	// The reversed pair resolves to the same conversation.
	second, err := engine.FindOrCreateConversation(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	_, err = engine.FindOrCreateConversation(ctx, "alice", "alice")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))
}

func TestPostTextMessageRules(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	seedUser(t, st, "alice", "alice")
	seedUser(t, st, "bob", "bob")

	conv, err := engine.FindOrCreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	msg, err := engine.PostTextMessage(ctx, conv.ID, "alice", "hello")
	require.NoError(t, err)
	assert.Equal(t, model.MessageText, msg.Type)
	assert.NotZero(t, msg.Seq)

	_, err = engine.PostTextMessage(ctx, conv.ID, "alice", "")
	assert.Equal(t, apperr.CodeInvalidArgument, apperr.CodeOf(err))

	_, err = engine.PostTextMessage(ctx, conv.ID, "mallory", "hi")
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))

	_, err = engine.PostTextMessage(ctx, "no-such-conversation", "alice", "hi")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestSystemConversationNotRepliable(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	seedUser(t, st, "bob", "bob")

	require.NoError(t, engine.Notify(ctx, "bob", "welcome aboard", model.MessageText))

	conv, err := st.Conversations().FindOrCreate(ctx, model.SystemSender, "bob")
	require.NoError(t, err)

	_, err = engine.PostTextMessage(ctx, conv.ID, "bob", "thanks!")
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
}

func TestUnreadCounts(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	seedUser(t, st, "alice", "alice")
	seedUser(t, st, "bob", "bob")

	conv, err := engine.FindOrCreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	for _, content := range []string{"one", "two", "three"} {
		_, err := engine.PostTextMessage(ctx, conv.ID, "alice", content)
		require.NoError(t, err)
	}
	_, err = engine.PostTextMessage(ctx, conv.ID, "bob", "reply")
	require.NoError(t, err)

	// A sender's own messages never count against them.
	bobUnread, err := st.Messages().UnreadCount(ctx, conv.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 3, bobUnread)

	aliceUnread, err := st.Messages().UnreadCount(ctx, conv.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, aliceUnread)

	require.NoError(t, engine.MarkRead(ctx, conv.ID, "bob"))
	bobUnread, err = st.Messages().UnreadCount(ctx, conv.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, 0, bobUnread)

	// Marking read again is a no-op, and alice's count is untouched.
	require.NoError(t, engine.MarkRead(ctx, conv.ID, "bob"))
	aliceUnread, err = st.Messages().UnreadCount(ctx, conv.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, aliceUnread)

	total, err := engine.UnreadTotal(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, total)

	err = engine.MarkRead(ctx, conv.ID, "mallory")
	assert.Equal(t, apperr.CodePermissionDenied, apperr.CodeOf(err))
}

func TestInboxOrderingAndPreviews(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	seedUser(t, st, "alice", "alice")
	seedUser(t, st, "bob", "bob")
	seedUser(t, st, "carol", "carol")
	seedUser(t, st, "dave", "dave")

	withBob, err := engine.FindOrCreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)
	withCarol, err := engine.FindOrCreateConversation(ctx, "alice", "carol")
	require.NoError(t, err)
	withDave, err := engine.FindOrCreateConversation(ctx, "alice", "dave")
	require.NoError(t, err)

	_, err = engine.PostTextMessage(ctx, withBob.ID, "bob", "first")
	require.NoError(t, err)
	_, err = engine.PostTextMessage(ctx, withCarol.ID, "carol", "second")
	require.NoError(t, err)

	entries, err := engine.Inbox(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Most recent activity first, the empty conversation last.
	assert.Equal(t, withCarol.ID, entries[0].ConversationID)
	assert.Equal(t, "carol", entries[0].Other.Username)
	assert.Equal(t, "second", entries[0].Preview)
	assert.Equal(t, 1, entries[0].UnreadCount)

	assert.Equal(t, withBob.ID, entries[1].ConversationID)
	assert.Equal(t, "first", entries[1].Preview)

	assert.Equal(t, withDave.ID, entries[2].ConversationID)
	assert.Nil(t, entries[2].LastMessage)
	assert.Equal(t, noMessagesPreview, entries[2].Preview)
	assert.Equal(t, 0, entries[2].UnreadCount)
}

func TestInboxDegradedParticipants(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	seedUser(t, st, "alice", "alice")

	// A conversation whose other side no longer resolves to a profile.
	_, err := st.Conversations().FindOrCreate(ctx, "alice", "ghost")
	require.NoError(t, err)

	require.NoError(t, engine.Notify(ctx, "alice", "system says hi", model.MessageText))

	entries, err := engine.Inbox(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, SystemDisplayName, entries[0].Other.Username)
	assert.True(t, entries[0].Other.System)
	assert.Equal(t, "system says hi", entries[0].Preview)

	assert.Equal(t, "Unknown", entries[1].Other.Username)
	assert.Equal(t, "ghost", entries[1].Other.ID)
}

func waitForInbox(t *testing.T, sub *InboxSubscription, cond func([]model.InboxEntry) bool) []model.InboxEntry {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case entries, ok := <-sub.Updates():
			require.True(t, ok, "subscription closed before the expected update arrived")
			if cond(entries) {
				return entries
			}
		case <-deadline:
			t.Fatal("timed out waiting for inbox update")
			return nil
		}
	}
}

func TestSubscribeInboxDeliversUpdates(t *testing.T) {
	engine, st := newTestEngine(t)
	ctx := context.Background()
	seedUser(t, st, "alice", "alice")
	seedUser(t, st, "bob", "bob")

	conv, err := engine.FindOrCreateConversation(ctx, "alice", "bob")
	require.NoError(t, err)

	sub, err := engine.SubscribeInbox(ctx, "bob")
	require.NoError(t, err)
	defer sub.Close()

	waitForInbox(t, sub, func(entries []model.InboxEntry) bool {
		return len(entries) == 1 && entries[0].UnreadCount == 0
	})

	_, err = engine.PostTextMessage(ctx, conv.ID, "alice", "are you there?")
	require.NoError(t, err)

	entries := waitForInbox(t, sub, func(entries []model.InboxEntry) bool {
		return len(entries) == 1 && entries[0].UnreadCount == 1
	})
	assert.Equal(t, "are you there?", entries[0].Preview)

	require.NoError(t, engine.MarkRead(ctx, conv.ID, "bob"))
	waitForInbox(t, sub, func(entries []model.InboxEntry) bool {
		return len(entries) == 1 && entries[0].UnreadCount == 0
	})
}

func TestSubscriptionCloseReleasesUpdates(t *testing.T) {
	engine, st := newTestEngine(t)
	seedUser(t, st, "bob", "bob")

	sub, err := engine.SubscribeInbox(context.Background(), "bob")
	require.NoError(t, err)

	sub.Close()
	sub.Close() // idempotent

	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-sub.Updates():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("updates channel was not closed after Close")
		}
	}
}
