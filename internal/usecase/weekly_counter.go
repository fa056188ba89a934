package usecase

import (
	"context"
	"time"

	"homelink/internal/domain/repository"
	"homelink/pkg/errors"
)

// WeekStart returns Monday 00:00:00 of the week containing t, in t's
// location. Sunday is the last day of the week.
func WeekStart(t time.Time) time.Time {
	weekday := int(t.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	day := t.AddDate(0, 0, -(weekday - 1))
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}

// WeekEnd is the exclusive end of the week starting at start. It is computed
// by calendar so a DST change inside the week does not shift it.
func WeekEnd(start time.Time) time.Time {
	return start.AddDate(0, 0, 7)
}

type WeeklyCounter struct {
	messageRepo repository.MessageRepository
	now         func() time.Time
}

func NewWeeklyCounter(messageRepo repository.MessageRepository) *WeeklyCounter {
	return &WeeklyCounter{
		messageRepo: messageRepo,
		now:         time.Now,
	}
}

// CountThisWeek counts the messages userID sent since this week's Monday.
// The count is read from the document store on every call.
func (c *WeeklyCounter) CountThisWeek(ctx context.Context, userID string) (int, error) {
	return c.CountWeekOf(ctx, userID, c.now())
}

// CountWeekOf counts userID's messages in the week containing t.
func (c *WeeklyCounter) CountWeekOf(ctx context.Context, userID string, t time.Time) (int, error) {
	if userID == "" {
		return 0, errors.InvalidInput("user id is required", nil)
	}

	start := WeekStart(t)
	count, err := c.messageRepo.CountBySender(ctx, userID, start, WeekEnd(start))
	if err != nil {
		return 0, errors.Wrap(err, "Failed to count weekly messages")
	}
	return count, nil
}
