// Package storetest provides an in-memory store.Store for service tests.
// Guard semantics (conditional debits, compare-and-set updates) match the
// postgres implementation; transactional rollback is not emulated, so tests
// exercise the success and guard paths, not crash recovery.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wishwell/internal/apperr"
	"wishwell/internal/model"
	"wishwell/internal/store"
)

type Mem struct {
	mu        sync.Mutex
	users     map[string]*model.User
	favorites map[string]map[string]bool
	wishes    map[string]*model.Wish
	dreams    map[string]*model.Dream
	convs     map[string]*model.Conversation
	convByKey map[string]string
	msgs      map[string]*model.Message
	reads     map[string]map[string]bool
	ledger    []*model.Transaction
	seq       int64
}

func New() *Mem {
	return &Mem{
		users:     make(map[string]*model.User),
		favorites: make(map[string]map[string]bool),
		wishes:    make(map[string]*model.Wish),
		dreams:    make(map[string]*model.Dream),
		convs:     make(map[string]*model.Conversation),
		convByKey: make(map[string]string),
		msgs:      make(map[string]*model.Message),
		reads:     make(map[string]map[string]bool),
	}
}

func (m *Mem) Users() store.Users                 { return usersRepo{m} }
func (m *Mem) Wishes() store.Wishes               { return wishesRepo{m} }
func (m *Mem) Dreams() store.Dreams               { return dreamsRepo{m} }
func (m *Mem) Conversations() store.Conversations { return convsRepo{m} }
func (m *Mem) Messages() store.Messages           { return msgsRepo{m} }
func (m *Mem) Ledger() store.Ledger               { return ledgerRepo{m} }

func (m *Mem) WithTx(ctx context.Context, fn func(store.Store) error) error {
	return fn(m)
}

// --- users ---

type usersRepo struct{ m *Mem }

func (r usersRepo) Create(ctx context.Context, u *model.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, existing := range r.m.users {
		if existing.Username == u.Username {
			return apperr.FailedPrecondition("username taken")
		}
	}
	u.CreatedAt = time.Now()
	cp := *u
	r.m.users[u.ID] = &cp
	return nil
}

func (r usersRepo) GetByID(ctx context.Context, id string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok {
		return nil, apperr.NotFound("user not found")
	}
	cp := *u
	return &cp, nil
}

func (r usersRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for _, u := range r.m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NotFound("user not found")
}

func (r usersRepo) AdjustBalance(ctx context.Context, id string, delta int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[id]; ok {
		u.Coins += delta
	}
	return nil
}

func (r usersRepo) Debit(ctx context.Context, id string, amount int64) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	u, ok := r.m.users[id]
	if !ok || u.Coins < amount {
		return false, nil
	}
	u.Coins -= amount
	return true, nil
}

func (r usersRepo) AdjustReputation(ctx context.Context, id string, delta int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[id]; ok {
		u.Reputation += delta
	}
	return nil
}

func (r usersRepo) IncrementSupportedDreams(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if u, ok := r.m.users[id]; ok {
		u.SupportedDreams++
	}
	return nil
}

func (r usersRepo) Leaderboard(ctx context.Context, limit int) ([]*model.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	out := make([]*model.User, 0, len(r.m.users))
	for _, u := range r.m.users {
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Reputation != out[j].Reputation {
			return out[i].Reputation > out[j].Reputation
		}
		return out[i].Coins > out[j].Coins
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r usersRepo) HasFavorite(ctx context.Context, userID, wishID string) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	return r.m.favorites[userID][wishID], nil
}

func (r usersRepo) AddFavorite(ctx context.Context, userID, wishID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if r.m.favorites[userID] == nil {
		r.m.favorites[userID] = make(map[string]bool)
	}
	r.m.favorites[userID][wishID] = true
	return nil
}

func (r usersRepo) RemoveFavorite(ctx context.Context, userID, wishID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.favorites[userID], wishID)
	return nil
}

// --- wishes ---

type wishesRepo struct{ m *Mem }

func (r wishesRepo) Create(ctx context.Context, w *model.Wish) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w.CreatedAt = time.Now()
	cp := *w
	r.m.wishes[w.ID] = &cp
	return nil
}

func (r wishesRepo) GetByID(ctx context.Context, id string) (*model.Wish, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w, ok := r.m.wishes[id]
	if !ok {
		return nil, apperr.NotFound("wish not found")
	}
	cp := *w
	return &cp, nil
}

func (r wishesRepo) List(ctx context.Context, status model.WishStatus) ([]*model.Wish, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Wish
	for _, w := range r.m.wishes {
		if status == "" || w.Status == status {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r wishesRepo) CompareAndSetStatus(ctx context.Context, id string, from, to model.WishStatus) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	w, ok := r.m.wishes[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	return true, nil
}

func (r wishesRepo) AdjustLikeCount(ctx context.Context, id string, delta int) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if w, ok := r.m.wishes[id]; ok {
		w.LikeCount += delta
	}
	return nil
}

// --- dreams ---

type dreamsRepo struct{ m *Mem }

func (r dreamsRepo) Create(ctx context.Context, d *model.Dream) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d.CreatedAt = time.Now()
	cp := *d
	r.m.dreams[d.ID] = &cp
	return nil
}

func (r dreamsRepo) GetByID(ctx context.Context, id string) (*model.Dream, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	d, ok := r.m.dreams[id]
	if !ok {
		return nil, apperr.NotFound("dream not found")
	}
	cp := *d
	return &cp, nil
}

func (r dreamsRepo) ListInProgressByDreamer(ctx context.Context, dreamerID string) ([]*model.Dream, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Dream
	for _, d := range r.m.dreams {
		if d.DreamerID == dreamerID && d.Status == model.DreamInProgress {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r dreamsRepo) ListExpired(ctx context.Context, cutoff time.Time) ([]*model.Dream, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Dream
	for _, d := range r.m.dreams {
		if d.Status == model.DreamInProgress && d.EndDate.Before(cutoff) {
			cp := *d
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r dreamsRepo) SetProof(ctx context.Context, id, proofText, fileURL string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if d, ok := r.m.dreams[id]; ok {
		d.ProofText = proofText
		d.ProofFileURL = fileURL
		d.Approval = model.ApprovalPending
	}
	return nil
}

func (r dreamsRepo) SetApproval(ctx context.Context, id string, a model.Approval) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if d, ok := r.m.dreams[id]; ok {
		d.Approval = a
	}
	return nil
}

func (r dreamsRepo) MarkFulfilled(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if d, ok := r.m.dreams[id]; ok {
		d.Status = model.DreamFulfilled
		d.Approval = model.ApprovalApproved
	}
	return nil
}

func (r dreamsRepo) CountInProgressByChat(ctx context.Context, chatID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for _, d := range r.m.dreams {
		if d.ChatID == chatID && d.Status == model.DreamInProgress {
			n++
		}
	}
	return n, nil
}

func (r dreamsRepo) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	delete(r.m.dreams, id)
	return nil
}

// --- conversations ---

type convsRepo struct{ m *Mem }

func pairKey(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "|" + b
}

func (r convsRepo) FindOrCreate(ctx context.Context, userA, userB string) (*model.Conversation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	key := pairKey(userA, userB)
	if id, ok := r.m.convByKey[key]; ok {
		cp := *r.m.convs[id]
		return &cp, nil
	}
	a, b := userA, userB
	if a > b {
		a, b = b, a
	}
	r.m.seq++
	c := &model.Conversation{
		ID:           fmt.Sprintf("conv-%d", r.m.seq),
		ParticipantA: a,
		ParticipantB: b,
		CreatedAt:    time.Now(),
	}
	r.m.convs[c.ID] = c
	r.m.convByKey[key] = c.ID
	cp := *c
	return &cp, nil
}

func (r convsRepo) GetByID(ctx context.Context, id string) (*model.Conversation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.convs[id]
	if !ok {
		return nil, apperr.NotFound("conversation not found")
	}
	cp := *c
	return &cp, nil
}

func (r convsRepo) ListByParticipant(ctx context.Context, userID string) ([]*model.Conversation, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Conversation
	for _, c := range r.m.convs {
		if c.Has(userID) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r convsRepo) Delete(ctx context.Context, id string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	c, ok := r.m.convs[id]
	if !ok {
		return nil
	}
	delete(r.m.convs, id)
	delete(r.m.convByKey, pairKey(c.ParticipantA, c.ParticipantB))
	for mid, msg := range r.m.msgs {
		if msg.ConversationID == id {
			delete(r.m.msgs, mid)
			delete(r.m.reads, mid)
		}
	}
	return nil
}

// --- messages ---

type msgsRepo struct{ m *Mem }

func (r msgsRepo) Append(ctx context.Context, msg *model.Message) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.convs[msg.ConversationID]; !ok {
		return apperr.NotFound("conversation not found")
	}
	r.m.seq++
	msg.Seq = r.m.seq
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	cp := *msg
	r.m.msgs[msg.ID] = &cp
	return nil
}

func (r msgsRepo) GetByID(ctx context.Context, id string) (*model.Message, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	msg, ok := r.m.msgs[id]
	if !ok {
		return nil, apperr.NotFound("message not found")
	}
	cp := *msg
	return &cp, nil
}

func (r msgsRepo) ListByConversation(ctx context.Context, conversationID string) ([]*model.Message, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Message
	for _, msg := range r.m.msgs {
		if msg.ConversationID == conversationID {
			cp := *msg
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r msgsRepo) LastInConversation(ctx context.Context, conversationID string) (*model.Message, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var last *model.Message
	for _, msg := range r.m.msgs {
		if msg.ConversationID == conversationID && (last == nil || msg.Seq > last.Seq) {
			last = msg
		}
	}
	if last == nil {
		return nil, nil
	}
	cp := *last
	return &cp, nil
}

func (r msgsRepo) MarkRead(ctx context.Context, conversationID, userID string) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, msg := range r.m.msgs {
		if msg.ConversationID != conversationID || msg.SenderID == userID {
			continue
		}
		if r.m.reads[id] == nil {
			r.m.reads[id] = make(map[string]bool)
		}
		r.m.reads[id][userID] = true
	}
	return nil
}

func (r msgsRepo) UnreadCount(ctx context.Context, conversationID, userID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for id, msg := range r.m.msgs {
		if msg.ConversationID == conversationID && msg.SenderID != userID && !r.m.reads[id][userID] {
			n++
		}
	}
	return n, nil
}

func (r msgsRepo) UnreadTotal(ctx context.Context, userID string) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	n := 0
	for id, msg := range r.m.msgs {
		conv, ok := r.m.convs[msg.ConversationID]
		if !ok || !conv.Has(userID) {
			continue
		}
		if msg.SenderID != userID && !r.m.reads[id][userID] {
			n++
		}
	}
	return n, nil
}

func (r msgsRepo) CompareAndSetApproval(ctx context.Context, messageID string, from, to model.Approval) (bool, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	msg, ok := r.m.msgs[messageID]
	if !ok || msg.Approval != from {
		return false, nil
	}
	msg.Approval = to
	return true, nil
}

// --- ledger ---

type ledgerRepo struct{ m *Mem }

func (r ledgerRepo) Append(ctx context.Context, t *model.Transaction) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	t.ID = int64(len(r.m.ledger) + 1)
	t.CreatedAt = time.Now()
	cp := *t
	r.m.ledger = append(r.m.ledger, &cp)
	return nil
}

func (r ledgerRepo) ListByUser(ctx context.Context, userID string) ([]*model.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	var out []*model.Transaction
	for _, t := range r.m.ledger {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}
