package usecase

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	memrepo "homelink/internal/adapter/repository"
	"homelink/internal/domain/entity"
	"homelink/internal/domain/repository"
	"homelink/internal/domain/service"
	"homelink/internal/infrastructure/realtime"
	"homelink/pkg/errors"
)

// Monday 4 March 2024, 10:00 UTC.
var baseTime = time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []entity.MessageEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event entity.MessageEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) Events() []entity.MessageEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]entity.MessageEvent(nil), p.events...)
}

// flakyConversationRepo wraps a repository and injects failures.
type flakyConversationRepo struct {
	repository.ConversationRepository

	mu              sync.Mutex
	getCalls        int
	createCalls     int
	getErr          func(call int) error
	listErr         error
	recordErr       error
	hideFirstLookup bool
}

func (r *flakyConversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	r.mu.Lock()
	r.getCalls++
	call := r.getCalls
	r.mu.Unlock()

	if r.getErr != nil {
		if err := r.getErr(call); err != nil {
			return nil, err
		}
	}
	if r.hideFirstLookup && call == 1 {
		return nil, errors.NotFound("Conversation", nil)
	}
	return r.ConversationRepository.GetByID(ctx, id)
}

func (r *flakyConversationRepo) ListActiveByParticipant(ctx context.Context, userID string) ([]*entity.Conversation, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	return r.ConversationRepository.ListActiveByParticipant(ctx, userID)
}

func (r *flakyConversationRepo) Create(ctx context.Context, conversation *entity.Conversation) error {
	r.mu.Lock()
	r.createCalls++
	r.mu.Unlock()
	return r.ConversationRepository.Create(ctx, conversation)
}

func (r *flakyConversationRepo) RecordMessage(ctx context.Context, conversationID string, summary *entity.MessageSummary, senderID string, recipientIDs []string) error {
	if r.recordErr != nil {
		return r.recordErr
	}
	return r.ConversationRepository.RecordMessage(ctx, conversationID, summary, senderID, recipientIDs)
}

// failingStore rejects every write.
type failingStore struct {
	*realtime.MemoryStore
}

var errRealtimeDown = stderrors.New("realtime store unreachable")

func (s failingStore) Set(ctx context.Context, path string, value interface{}) error {
	return errRealtimeDown
}

func (s failingStore) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	return errRealtimeDown
}

type fixture struct {
	clock         *testClock
	conversations *flakyConversationRepo
	messages      repository.MessageRepository
	users         *memrepo.MemoryUserRepository
	store         service.RealtimeStore
	events        *recordingPublisher

	enricher  *Enricher
	directory *ConversationDirectory
	delivery  *Delivery
	ledger    *MessageLedger
	counter   *WeeklyCounter
	messaging *MessagingUseCase
}

type fixtureOption func(*fixture)

func withStore(store service.RealtimeStore) fixtureOption {
	return func(f *fixture) { f.store = store }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		clock:         &testClock{t: baseTime},
		conversations: &flakyConversationRepo{ConversationRepository: memrepo.NewMemoryConversationRepository()},
		messages:      memrepo.NewMemoryMessageRepository(),
		users: memrepo.NewMemoryUserRepository(
			&entity.User{ID: "u1", DisplayName: "Rita Renter", Role: entity.RoleRenter},
			&entity.User{ID: "u2", DisplayName: "Lars Landlord", Role: entity.RoleLandlord, VerificationStatus: entity.VerificationStatusVerified},
			&entity.User{ID: "u3", DisplayName: "Ann Agent", Role: entity.RoleAgent},
		),
		store:  realtime.NewMemoryStore(),
		events: &recordingPublisher{},
	}
	for _, opt := range opts {
		opt(f)
	}
	t.Cleanup(func() { f.store.Close() })

	f.enricher = NewEnricher(f.users)
	f.directory = NewConversationDirectory(f.conversations)
	f.directory.now = f.clock.Now
	f.delivery = NewDelivery(f.store, f.conversations, f.messages, f.enricher)
	f.delivery.now = f.clock.Now
	f.ledger = NewMessageLedger(f.conversations, f.messages, f.delivery, f.events)
	f.ledger.now = f.clock.Now
	f.counter = NewWeeklyCounter(f.messages)
	f.counter.now = f.clock.Now
	f.messaging = NewMessagingUseCase(
		f.directory, f.ledger, f.delivery, f.counter, f.enricher,
		f.conversations, f.users, nil, SendPolicy{WeeklyCap: 3},
	)
	f.messaging.now = f.clock.Now
	return f
}

func (f *fixture) conversation(t *testing.T, a, b, listing string) *entity.Conversation {
	t.Helper()
	conversation, _, err := f.directory.FindOrCreate(context.Background(), a, b, listing)
	if err != nil {
		t.Fatalf("find or create: %v", err)
	}
	return conversation
}

func (f *fixture) append(t *testing.T, conversationID, senderID, content string) *entity.Message {
	t.Helper()
	message, err := f.ledger.Append(context.Background(), AppendInput{
		ConversationID: conversationID,
		SenderID:       senderID,
		SenderRole:     entity.RoleRenter,
		Content:        content,
		Type:           entity.MessageTypeText,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	return message
}

func (f *fixture) reload(t *testing.T, conversationID string) *entity.Conversation {
	t.Helper()
	conversation, err := f.conversations.GetByID(context.Background(), conversationID)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	return conversation
}
