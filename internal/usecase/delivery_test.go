package usecase

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homelink/internal/domain/entity"
	"homelink/internal/infrastructure/realtime"
)

func waitFor[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for render")
		var zero T
		return zero
	}
}

func TestMirrorJoinsWriteErrors(t *testing.T) {
	f := newFixture(t, withStore(failingStore{realtime.NewMemoryStore()}))
	conversation := f.conversation(t, "u1", "u2", "")

	err := f.delivery.Mirror(context.Background(), conversation, &entity.Message{
		ID:             "m1",
		ConversationID: conversation.ID,
		SenderID:       "u1",
		Content:        "hi",
		Type:           entity.MessageTypeText,
		SentAt:         baseTime,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, errRealtimeDown)

	// message, summary and the joined inbox pings
	joined, ok := err.(interface{ Unwrap() []error })
	require.True(t, ok)
	assert.Len(t, joined.Unwrap(), 3)
	assert.True(t, stderrors.Is(joined.Unwrap()[2], errRealtimeDown))
}

func TestWatchConversationRefetchesFromLedger(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conversation := f.conversation(t, "u1", "u2", "")
	f.append(t, conversation.ID, "u1", "first")

	renders := make(chan []*MessageView, 8)
	unsubscribe, err := f.delivery.WatchConversation(ctx, conversation.ID, func(views []*MessageView) {
		renders <- views
	})
	require.NoError(t, err)
	defer unsubscribe()

	initial := waitFor(t, renders)
	require.Len(t, initial, 1)
	assert.Equal(t, "first", initial[0].Content)
	assert.Equal(t, "Rita Renter", initial[0].SenderName)

	f.clock.Advance(time.Second)
	f.append(t, conversation.ID, "u2", "second")

	var latest []*MessageView
	assert.Eventually(t, func() bool {
		select {
		case latest = <-renders:
		default:
		}
		return len(latest) == 2
	}, 2*time.Second, 10*time.Millisecond)
	require.Len(t, latest, 2)
	assert.Equal(t, "second", latest[1].Content)
	assert.Equal(t, "Lars Landlord", latest[1].SenderName)
}

func TestWatchInboxRendersEnrichedConversations(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	renders := make(chan []*ConversationView, 8)
	unsubscribe, err := f.delivery.WatchInbox(ctx, "u2", func(views []*ConversationView) {
		renders <- views
	})
	require.NoError(t, err)

	assert.Empty(t, waitFor(t, renders))

	conversation := f.conversation(t, "u1", "u2", "listing1")
	f.append(t, conversation.ID, "u1", "is it still available?")

	var latest []*ConversationView
	assert.Eventually(t, func() bool {
		select {
		case latest = <-renders:
		default:
		}
		return len(latest) == 1 && latest[0].UnreadCount == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.Len(t, latest, 1)
	assert.Equal(t, "Rita Renter", latest[0].OtherUser.DisplayName)
	assert.Equal(t, "is it still available?", latest[0].LastMessage.Content)

	unsubscribe()
	f.append(t, conversation.ID, "u1", "hello?")
	select {
	case <-renders:
		t.Fatal("render after unsubscribe")
	case <-time.After(100 * time.Millisecond):
	}
}
