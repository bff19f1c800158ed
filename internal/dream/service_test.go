package dream

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishwell/internal/apperr"
	"wishwell/internal/chat"
	"wishwell/internal/model"
	"wishwell/internal/store/storetest"
)

type fixture struct {
	st      *storetest.Mem
	engine  *chat.Engine
	service *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := storetest.New()
	engine := chat.NewEngine(st, chat.NewMemoryBus(), zerolog.Nop())
	return &fixture{st: st, engine: engine, service: NewService(st, engine, zerolog.Nop())}
}

func (f *fixture) seedUser(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.st.Users().Create(context.Background(), &model.User{ID: id, Username: id}))
}

func (f *fixture) seedOpenWish(t *testing.T, id, creatorID string, amount int64) {
	t.Helper()
	require.NoError(t, f.st.Wishes().Create(context.Background(), &model.Wish{
		ID:        id,
		CreatorID: creatorID,
		Title:     "a wish",
		Amount:    amount,
		Status:    model.WishOpen,
	}))
}

func tomorrow() time.Time { return time.Now().Add(24 * time.Hour) }

func TestCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "owner")
	f.seedUser(t, "dreamer")
	f.seedOpenWish(t, "w1", "owner", 50)

	dream, err := f.service.Commit(ctx, "w1", "dreamer", tomorrow())
	require.NoError(t, err)

	assert.Equal(t, "w1", dream.WishID)
	assert.Equal(t, "owner", dream.WishOwnerID)
	assert.Equal(t, "dreamer", dream.DreamerID)
	assert.Equal(t, model.DreamInProgress, dream.Status)
	assert.NotEmpty(t, dream.ChatID)

	wish, err := f.st.Wishes().GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, model.WishAccepted, wish.Status)

	conv, err := f.st.Conversations().GetByID(ctx, dream.ChatID)
	require.NoError(t, err)
	assert.True(t, conv.Has("owner"))
	assert.True(t, conv.Has("dreamer"))

	msgs, err := f.st.Messages().ListByConversation(ctx, dream.ChatID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.Equal(t, "dreamer", msgs[0].SenderID)
	assert.Equal(t, greeting, msgs[0].Content)
}

func TestCommitValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "owner")
	f.seedUser(t, "dreamer")
	f.seedOpenWish(t, "w1", "owner", 50)

	_, err := f.service.Commit(ctx, "w1", "owner", tomorrow())
	assert.ErrorIs(t, err, ErrOwnWish)

	_, err = f.service.Commit(ctx, "w1", "dreamer", time.Now().Add(-48*time.Hour))
	assert.ErrorIs(t, err, ErrEndDateInPast)

	_, err = f.service.Commit(ctx, "missing", "dreamer", tomorrow())
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.service.Commit(ctx, "w1", "dreamer", tomorrow())
	require.NoError(t, err)
	_, err = f.service.Commit(ctx, "w1", "dreamer", tomorrow())
	assert.ErrorIs(t, err, ErrWishNotOpen)
}

func TestCommitConcurrentSingleWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "owner")
	f.seedOpenWish(t, "w1", "owner", 50)

	const dreamers = 8
	errs := make([]error, dreamers)
	var wg sync.WaitGroup
	for i := 0; i < dreamers; i++ {
		id := string(rune('a' + i))
		f.seedUser(t, id)
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = f.service.Commit(ctx, "w1", id, tomorrow())
		}(i, id)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.ErrorIs(t, err, ErrWishNotOpen)
		}
	}
	assert.Equal(t, 1, wins)
}

func TestSubmitProof(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "owner")
	f.seedUser(t, "dreamer")
	f.seedOpenWish(t, "w1", "owner", 50)

	dream, err := f.service.Commit(ctx, "w1", "dreamer", tomorrow())
	require.NoError(t, err)

	err = f.service.SubmitProof(ctx, dream.ID, "dreamer", "", "")
	assert.ErrorIs(t, err, ErrProofRequired)

	err = f.service.SubmitProof(ctx, dream.ID, "owner", "done it", "")
	assert.ErrorIs(t, err, ErrNotDreamer)

	require.NoError(t, f.service.SubmitProof(ctx, dream.ID, "dreamer", "done it", "https://files/proof.jpg"))

	updated, err := f.st.Dreams().GetByID(ctx, dream.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, updated.Approval)
	assert.Equal(t, "done it", updated.ProofText)
	assert.Equal(t, "https://files/proof.jpg", updated.ProofFileURL)

	// A pending proof blocks resubmission until it is decided.
	err = f.service.SubmitProof(ctx, dream.ID, "dreamer", "again", "")
	assert.ErrorIs(t, err, ErrProofPending)

	msgs, err := f.st.Messages().ListByConversation(ctx, dream.ChatID)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	proof := msgs[1]
	assert.Equal(t, model.MessageProof, proof.Type)
	assert.Equal(t, model.SystemSender, proof.SenderID)
	assert.Equal(t, dream.ID, proof.RelatedID)
	assert.Equal(t, "w1", proof.WishID)
	assert.Equal(t, "dreamer", proof.DreamerID)
	assert.Equal(t, model.ApprovalPending, proof.Approval)
}

func TestListInProgress(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "owner")
	f.seedUser(t, "dreamer")
	f.seedOpenWish(t, "w1", "owner", 50)

	dream, err := f.service.Commit(ctx, "w1", "dreamer", tomorrow())
	require.NoError(t, err)

	active, err := f.service.ListInProgress(ctx, "dreamer")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, dream.ID, active[0].ID)

	none, err := f.service.ListInProgress(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSweepExpiresDreams(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "owner")
	f.seedUser(t, "dreamer")
	f.seedUser(t, "other")
	f.seedOpenWish(t, "w1", "owner", 50)
	f.seedOpenWish(t, "w2", "owner", 25)

	conv, err := f.st.Conversations().FindOrCreate(ctx, "owner", "dreamer")
	require.NoError(t, err)
	require.NoError(t, f.st.Messages().Append(ctx, chat.NewTextMessage(conv.ID, "dreamer", "hello")))

	ok, err := f.st.Wishes().CompareAndSetStatus(ctx, "w1", model.WishOpen, model.WishAccepted)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.st.Dreams().Create(ctx, &model.Dream{
		ID:          "d-expired",
		WishID:      "w1",
		WishOwnerID: "owner",
		DreamerID:   "dreamer",
		EndDate:     time.Now().Add(-24 * time.Hour),
		Status:      model.DreamInProgress,
		ChatID:      conv.ID,
	}))

	// A live dream in the same sweep window must survive.
	live, err := f.service.Commit(ctx, "w2", "other", tomorrow())
	require.NoError(t, err)

	count, err := f.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = f.st.Dreams().GetByID(ctx, "d-expired")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = f.st.Conversations().GetByID(ctx, conv.ID)
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	wish, err := f.st.Wishes().GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, model.WishOpen, wish.Status)

	_, err = f.st.Dreams().GetByID(ctx, live.ID)
	assert.NoError(t, err)

	// Nothing left to expire on the next run.
	count, err = f.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestSweepKeepsSharedConversation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "owner")
	f.seedUser(t, "dreamer")
	f.seedOpenWish(t, "w1", "owner", 50)
	f.seedOpenWish(t, "w2", "owner", 25)

	// Both dreams are between the same pair, so they share one conversation.
	live, err := f.service.Commit(ctx, "w2", "dreamer", tomorrow())
	require.NoError(t, err)

	ok, err := f.st.Wishes().CompareAndSetStatus(ctx, "w1", model.WishOpen, model.WishAccepted)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, f.st.Dreams().Create(ctx, &model.Dream{
		ID:          "d-expired",
		WishID:      "w1",
		WishOwnerID: "owner",
		DreamerID:   "dreamer",
		EndDate:     time.Now().Add(-24 * time.Hour),
		Status:      model.DreamInProgress,
		ChatID:      live.ChatID,
	}))

	count, err := f.service.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The conversation and its history survive for the live dream.
	_, err = f.st.Conversations().GetByID(ctx, live.ChatID)
	require.NoError(t, err)
	msgs, err := f.st.Messages().ListByConversation(ctx, live.ChatID)
	require.NoError(t, err)
	assert.NotEmpty(t, msgs)

	require.NoError(t, f.service.SubmitProof(ctx, live.ID, "dreamer", "still going", ""))

	wish, err := f.st.Wishes().GetByID(ctx, "w1")
	require.NoError(t, err)
	assert.Equal(t, model.WishOpen, wish.Status)
}
