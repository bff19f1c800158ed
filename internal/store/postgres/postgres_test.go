package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
	"wishwell/internal/store"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db), mock
}

func TestWithTxCommits(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE wishes SET status").
		WithArgs("w1", model.WishOpen, model.WishAccepted).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.WithTx(ctx, func(ts store.Store) error {
		ok, err := ts.Wishes().CompareAndSetStatus(ctx, "w1", model.WishOpen, model.WishAccepted)
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxRollsBackOnError(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err := st.WithTx(ctx, func(ts store.Store) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxNestedReusesTransaction(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE users SET reputation").
		WithArgs("u1", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := st.WithTx(ctx, func(outer store.Store) error {
		return outer.WithTx(ctx, func(inner store.Store) error {
			return inner.Users().AdjustReputation(ctx, "u1", 10)
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompareAndSetApprovalGuards(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE messages SET approval").
		WithArgs("m1", model.ApprovalPending, model.ApprovalApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := st.Messages().CompareAndSetApproval(ctx, "m1", model.ApprovalPending, model.ApprovalApproved)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second flip matches zero rows once the guard no longer holds.
	mock.ExpectExec("UPDATE messages SET approval").
		WithArgs("m1", model.ApprovalPending, model.ApprovalApproved).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err = st.Messages().CompareAndSetApproval(ctx, "m1", model.ApprovalPending, model.ApprovalApproved)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitIsConditional(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec("UPDATE users SET coins").
		WithArgs("u1", int64(50)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := st.Users().Debit(ctx, "u1", 50)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateUsername(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

	err := st.Users().Create(ctx, &model.User{ID: "u1", Username: "alice"})
	assert.Equal(t, apperr.CodeFailedPrecondition, apperr.CodeOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLastInConversationEmpty(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery("FROM messages WHERE conversation_id").
		WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "conversation_id", "seq", "sender_id", "content", "message_type",
			"related_id", "wish_id", "dreamer_id", "proof_text", "file_url", "approval", "created_at",
		}))

	last, err := st.Messages().LastInConversation(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, last)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAppendAssignsSequence(t *testing.T) {
	st, mock := newMockStore(t)
	ctx := context.Background()
	now := time.Now()

	mock.ExpectQuery("INSERT INTO messages").
		WillReturnRows(sqlmock.NewRows([]string{"seq", "created_at"}).AddRow(int64(7), now))

	msg := &model.Message{ID: "m1", ConversationID: "c1", SenderID: "u1", Content: "hi", Type: model.MessageText}
	require.NoError(t, st.Messages().Append(ctx, msg))
	assert.Equal(t, int64(7), msg.Seq)
	assert.Equal(t, now, msg.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}
