package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"gochat/internal/chat/guard"
	"gochat/internal/chat/models"
	"gochat/internal/chat/repository"
	"gochat/internal/common"
)

type fakeResolver struct {
	users map[string]common.UserProjection
	err   error
	calls int
}

func newFakeResolver(ids ...string) *fakeResolver {
	r := &fakeResolver{users: make(map[string]common.UserProjection)}
	for _, id := range ids {
		r.users[id] = common.UserProjection{ID: id, Username: id + "-name", Avatar: "/media/" + id}
	}
	return r
}

func (r *fakeResolver) ResolveUsers(ctx context.Context, ids []string) (map[string]common.UserProjection, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	out := make(map[string]common.UserProjection, len(ids))
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

type published struct {
	ConversationID string
	Event          string
	Payload        interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []published
}

func (p *recordingPublisher) Publish(conversationID, event string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{ConversationID: conversationID, Event: event, Payload: payload})
}

func (p *recordingPublisher) all() []published {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]published(nil), p.events...)
}

type recordingEvictor struct {
	mu      sync.Mutex
	evicted map[string][]string
}

func (e *recordingEvictor) EvictUsers(conversationID string, userIDs ...string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted == nil {
		e.evicted = make(map[string][]string)
	}
	e.evicted[conversationID] = append(e.evicted[conversationID], userIDs...)
	return len(userIDs)
}

func (e *recordingEvictor) users(conversationID string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.evicted[conversationID]...)
}

// clock advances one second per reading so stored timestamps are distinct.
type clock struct {
	mu sync.Mutex
	t  time.Time
}

func newClock() *clock {
	return &clock{t: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

type fixture struct {
	store     *repository.MemoryStore
	resolver  *fakeResolver
	publisher *recordingPublisher
	rooms     *recordingEvictor
	clock     *clock
	convs     ConversationService
	messages  MessageService
	queries   QueryService
}

func newFixture(t *testing.T, policy guard.Policy) *fixture {
	t.Helper()
	f := &fixture{
		store:     repository.NewMemoryStore(),
		resolver:  newFakeResolver("alice", "bob", "carol", "dave"),
		publisher: &recordingPublisher{},
		rooms:     &recordingEvictor{},
		clock:     newClock(),
	}
	g := guard.New(policy)
	projector := NewProjector(f.resolver)
	log := zerolog.Nop()

	convs := NewConversationService(f.store.Conversations(), f.resolver, g, f.rooms, log)
	convs.(*conversationService).now = f.clock.Now
	msgs := NewMessageService(f.store.Messages(), convs, g, projector, f.publisher, log)
	msgs.(*messageService).now = f.clock.Now

	f.convs = convs
	f.messages = msgs
	f.queries = NewQueryService(f.store.Messages(), f.store.Conversations(), g, projector, 3)
	return f
}

func (f *fixture) direct(t *testing.T, a, b string) *models.Conversation {
	t.Helper()
	conv, _, err := f.convs.FindOrCreateDirect(context.Background(), a, b)
	require.NoError(t, err)
	return conv
}

func (f *fixture) group(t *testing.T, creator string, others ...string) *models.Conversation {
	t.Helper()
	conv, err := f.convs.CreateGroup(context.Background(), creator, GroupInput{Name: "team", Participants: others})
	require.NoError(t, err)
	return conv
}

func (f *fixture) send(t *testing.T, conversationID, sender, text string) *models.MessageView {
	t.Helper()
	view, err := f.messages.Send(context.Background(), SendInput{ConversationID: conversationID, SenderID: sender, Text: text})
	require.NoError(t, err)
	return view
}

var errBoom = errors.New("database connection failed")
