package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"homelink/internal/domain/entity"
	"homelink/pkg/errors"
)

func TestWeekStart(t *testing.T) {
	berlin := time.FixedZone("CET", 3600)
	monday := time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		at   time.Time
		want time.Time
	}{
		{"monday just after midnight", time.Date(2024, 3, 4, 0, 0, 1, 0, time.UTC), monday},
		{"wednesday", time.Date(2024, 3, 6, 15, 30, 0, 0, time.UTC), monday},
		{"sunday is the last day", time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC), monday},
		{"next monday", time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC), monday.AddDate(0, 0, 7)},
		{"keeps location", time.Date(2024, 3, 10, 12, 0, 0, 0, berlin), time.Date(2024, 3, 4, 0, 0, 0, 0, berlin)},
		{"across month boundary", time.Date(2024, 3, 2, 8, 0, 0, 0, time.UTC), time.Date(2024, 2, 26, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeekStart(tt.at)
			assert.True(t, tt.want.Equal(got), "want %v, got %v", tt.want, got)
			assert.Equal(t, time.Monday, got.Weekday())
		})
	}
}

func TestCountThisWeekUsesMondayStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sentAt := []time.Time{
		time.Date(2024, 3, 4, 0, 0, 1, 0, time.UTC),     // Monday
		time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC), // Sunday, same week
		time.Date(2024, 3, 11, 0, 0, 1, 0, time.UTC),    // next Monday
	}
	for i, at := range sentAt {
		require.NoError(t, f.messages.Create(ctx, &entity.Message{
			ID:             string(rune('a' + i)),
			ConversationID: "c1",
			SenderID:       "u1",
			Content:        "x",
			Type:           entity.MessageTypeText,
			SentAt:         at,
		}))
	}
	require.NoError(t, f.messages.Create(ctx, &entity.Message{
		ID: "other", ConversationID: "c1", SenderID: "u2", Type: entity.MessageTypeText, SentAt: sentAt[0],
	}))

	f.clock.Set(time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC))
	count, err := f.counter.CountThisWeek(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	f.clock.Set(time.Date(2024, 3, 13, 9, 0, 0, 0, time.UTC))
	count, err = f.counter.CountThisWeek(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = f.counter.CountThisWeek(ctx, "")
	assert.True(t, errors.Is(err, errors.CodeInvalidInput))
}
