package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"gochat/internal/chat/models"
	"gochat/internal/common"
)

// MemoryStore keeps messages and conversations in process. It backs the
// "memory" store driver and the service tests.
type MemoryStore struct {
	mu            sync.RWMutex
	messages      map[string]*models.Message
	conversations map[string]*models.Conversation
	direct        map[string]string
	seq           map[string]int64
	next          int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:      make(map[string]*models.Message),
		conversations: make(map[string]*models.Conversation),
		direct:        make(map[string]string),
		seq:           make(map[string]int64),
	}
}

// Messages returns the store's MessageRepository view.
func (s *MemoryStore) Messages() MessageRepository { return memoryMessages{s} }

// Conversations returns the store's ConversationRepository view.
func (s *MemoryStore) Conversations() ConversationRepository { return memoryConversations{s} }

type memoryMessages struct{ s *MemoryStore }

func (r memoryMessages) Create(ctx context.Context, msg *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if msg.ID == "" {
		msg.ID = models.NewID()
	}
	if _, ok := r.s.messages[msg.ID]; ok {
		return common.ConflictError("message %s already exists", msg.ID)
	}
	r.s.next++
	r.s.seq[msg.ID] = r.s.next
	r.s.messages[msg.ID] = msg.Clone()
	return nil
}

func (r memoryMessages) GetByID(ctx context.Context, id string) (*models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	msg, ok := r.s.messages[id]
	if !ok {
		return nil, common.NotFoundError("message %s", id)
	}
	return msg.Clone(), nil
}

func (r memoryMessages) FindByIDs(ctx context.Context, ids []string) ([]*models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*models.Message, 0, len(ids))
	for _, id := range ids {
		if msg, ok := r.s.messages[id]; ok {
			out = append(out, msg.Clone())
		}
	}
	return out, nil
}

func (r memoryMessages) Update(ctx context.Context, msg *models.Message) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.messages[msg.ID]; !ok {
		return common.NotFoundError("message %s", msg.ID)
	}
	r.s.messages[msg.ID] = msg.Clone()
	return nil
}

func (r memoryMessages) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.messages[id]; !ok {
		return common.NotFoundError("message %s", id)
	}
	delete(r.s.messages, id)
	delete(r.s.seq, id)
	return nil
}

func (r memoryMessages) List(ctx context.Context, q MessageQuery) ([]*models.Message, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	scope := make(map[string]struct{}, len(q.ConversationIDs))
	for _, id := range q.ConversationIDs {
		scope[id] = struct{}{}
	}
	needle := strings.ToLower(q.Text)

	var out []*models.Message
	for _, msg := range r.s.messages {
		if len(scope) > 0 {
			if _, ok := scope[msg.ConversationID]; !ok {
				continue
			}
		}
		if q.PinnedOnly && !msg.Pinned {
			continue
		}
		if needle != "" && !matchesText(msg, needle) {
			continue
		}
		out = append(out, msg.Clone())
	}

	seq := r.s.seq
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch q.Sort {
		case SortTimestampDesc:
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.After(b.Timestamp)
			}
			return seq[a.ID] > seq[b.ID]
		case SortPinnedAtDesc:
			at, bt := pinnedAt(a), pinnedAt(b)
			if !at.Equal(bt) {
				return at.After(bt)
			}
			return seq[a.ID] > seq[b.ID]
		default:
			if !a.Timestamp.Equal(b.Timestamp) {
				return a.Timestamp.Before(b.Timestamp)
			}
			return seq[a.ID] < seq[b.ID]
		}
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func matchesText(msg *models.Message, needle string) bool {
	if strings.Contains(strings.ToLower(msg.Text), needle) {
		return true
	}
	for _, a := range msg.Attachments {
		if strings.Contains(strings.ToLower(a.Name), needle) {
			return true
		}
	}
	return false
}

func pinnedAt(m *models.Message) time.Time {
	if m.PinnedAt == nil {
		return time.Time{}
	}
	return *m.PinnedAt
}

type memoryConversations struct{ s *MemoryStore }

func (r memoryConversations) Create(ctx context.Context, conv *models.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if conv.ID == "" {
		conv.ID = models.NewID()
	}
	if conv.DirectKey != "" {
		if _, ok := r.s.direct[conv.DirectKey]; ok {
			return common.ConflictError("direct conversation already exists")
		}
		r.s.direct[conv.DirectKey] = conv.ID
	}
	r.s.conversations[conv.ID] = conv.Clone()
	return nil
}

func (r memoryConversations) GetByID(ctx context.Context, id string) (*models.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	conv, ok := r.s.conversations[id]
	if !ok {
		return nil, common.NotFoundError("conversation %s", id)
	}
	return conv.Clone(), nil
}

func (r memoryConversations) FindDirect(ctx context.Context, userA, userB string) (*models.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.direct[models.DirectKey(userA, userB)]
	if !ok {
		return nil, common.NotFoundError("direct conversation")
	}
	return r.s.conversations[id].Clone(), nil
}

func (r memoryConversations) ListByParticipant(ctx context.Context, userID string) ([]*models.Conversation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*models.Conversation
	for _, conv := range r.s.conversations {
		if conv.HasParticipant(userID) {
			out = append(out, conv.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r memoryConversations) Update(ctx context.Context, conv *models.Conversation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.conversations[conv.ID]
	if !ok {
		return common.NotFoundError("conversation %s", conv.ID)
	}
	next := conv.Clone()
	next.LastMessage = stored.LastMessage
	next.LastMessageTime = stored.LastMessageTime
	r.s.conversations[conv.ID] = next
	return nil
}

func (r memoryConversations) UpdatePreview(ctx context.Context, id, text string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	conv, ok := r.s.conversations[id]
	if !ok {
		return common.NotFoundError("conversation %s", id)
	}
	conv.LastMessage = text
	conv.LastMessageTime = at
	return nil
}
