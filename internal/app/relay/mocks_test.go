package relay_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"duochat/internal/app/relay"
)

// mockMessageStore is a testify mock over the message store interface.
type mockMessageStore struct {
	mock.Mock
}

func (m *mockMessageStore) Append(ctx context.Context, msg relay.Message) (relay.Message, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(relay.Message), args.Error(1)
}

func (m *mockMessageStore) FindByChat(ctx context.Context, chatID string) ([]relay.Message, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]relay.Message), args.Error(1)
}

// mockConversationStore is a testify mock over the conversation store interface.
type mockConversationStore struct {
	mock.Mock
}

func (m *mockConversationStore) Upsert(ctx context.Context, conv relay.Conversation) error {
	args := m.Called(ctx, conv)
	return args.Error(0)
}

func (m *mockConversationStore) FindByIdentity(ctx context.Context, identity string) ([]relay.Conversation, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]relay.Conversation), args.Error(1)
}

// memBlockStore is an in-memory block store. failErr, when set, makes every
// call fail, simulating a broken backend.
type memBlockStore struct {
	mu        sync.Mutex
	relations map[[2]string]struct{}
	failErr   error
}

func newMemBlockStore() *memBlockStore {
	return &memBlockStore{relations: make(map[[2]string]struct{})}
}

func (s *memBlockStore) Add(_ context.Context, blocker, blocked string) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.relations[[2]string{blocker, blocked}] = struct{}{}
	return nil
}

func (s *memBlockStore) Remove(_ context.Context, blocker, blocked string) error {
	if s.failErr != nil {
		return s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.relations, [2]string{blocker, blocked})
	return nil
}

func (s *memBlockStore) Exists(_ context.Context, blocker, blocked string) (bool, error) {
	if s.failErr != nil {
		return false, s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.relations[[2]string{blocker, blocked}]
	return ok, nil
}

func (s *memBlockStore) ListBlockedBy(_ context.Context, blocker string) ([]string, error) {
	if s.failErr != nil {
		return nil, s.failErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	blocked := make([]string, 0)
	for pair := range s.relations {
		if pair[0] == blocker {
			blocked = append(blocked, pair[1])
		}
	}
	return blocked, nil
}

// fakeSession implements relay.Session and records every delivered event.
type fakeSession struct {
	handleID string
	pinned   string

	mu       sync.Mutex
	identity string
	events   []relay.Event
}

func newFakeSession(pinned string) *fakeSession {
	return &fakeSession{handleID: uuid.New().String(), pinned: pinned}
}

func (f *fakeSession) HandleID() string       { return f.handleID }
func (f *fakeSession) PinnedIdentity() string { return f.pinned }

func (f *fakeSession) Identity() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity
}

func (f *fakeSession) SetIdentity(identity string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.identity = identity
}

func (f *fakeSession) Deliver(ev relay.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, ev)
}

// eventsOfType returns every delivered event of the given type, in order.
func (f *fakeSession) eventsOfType(t relay.EventType) []relay.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []relay.Event
	for _, ev := range f.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// lastErrorCode returns the code of the most recent error event, or 0.
func (f *fakeSession) lastErrorCode(t *testing.T) int {
	t.Helper()
	errorEvents := f.eventsOfType(relay.TypeError)
	if len(errorEvents) == 0 {
		return 0
	}
	var payload relay.ErrorPayload
	require.NoError(t, json.Unmarshal(errorEvents[len(errorEvents)-1].Payload, &payload))
	return payload.Code
}

// testEnv bundles a gateway with its backing doubles.
type testEnv struct {
	gateway  *relay.Gateway
	messages *mockMessageStore
	convs    *mockConversationStore
	blocks   *memBlockStore
}

func newTestEnv() *testEnv {
	messages := &mockMessageStore{}
	convs := &mockConversationStore{}
	blocks := newMemBlockStore()

	return &testEnv{
		gateway:  relay.NewGateway(messages, convs, blocks),
		messages: messages,
		convs:    convs,
		blocks:   blocks,
	}
}

// join connects a fake session and announces identity through the normal
// dispatch path.
func (e *testEnv) join(t *testing.T, identity string) *fakeSession {
	t.Helper()
	s := newFakeSession("")
	e.dispatch(t, s, relay.TypeJoin, relay.JoinPayload{Identity: identity})
	require.Equal(t, identity, s.Identity())
	return s
}

// dispatch builds an event envelope and runs it through the gateway.
func (e *testEnv) dispatch(t *testing.T, s *fakeSession, eventType relay.EventType, payload any) {
	t.Helper()
	ev, err := relay.NewEvent(eventType, payload)
	require.NoError(t, err)
	e.gateway.Dispatch(context.Background(), s, ev)
}
