// Package reminders asks users to return books they have borrowed for too long.
package reminders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/notify"
)

// DefaultBorrowPeriod is how long a loan may stay active before the borrower is reminded.
const DefaultBorrowPeriod = 3 * 24 * time.Hour

// BorrowLister finds active loans.
type BorrowLister interface {
	ListActiveBorrowsBefore(ctx context.Context, cutoff time.Time) ([]models.Holding, error)
}

// Service sends return reminders.
type Service struct {
	lister BorrowLister
	sender notify.Sender
	period time.Duration
	now    func() time.Time
}

// NewService creates a new Service.
func NewService(lister BorrowLister, sender notify.Sender, period time.Duration) *Service {
	return &Service{lister: lister, sender: sender, period: period, now: time.Now}
}

// SendReturnReminders notifies every user whose active loan is older than the borrow period.
// It returns the number of reminders sent. Failed sends are reported but do not stop the run.
func (s *Service) SendReturnReminders(ctx context.Context) (int, error) {
	overdue, err := s.lister.ListActiveBorrowsBefore(ctx, s.now().Add(-s.period))
	if err != nil {
		return 0, fmt.Errorf("failed to list overdue borrows: %w", err)
	}

	var errs []error
	sent := 0
	for _, h := range overdue {
		if err := s.sender.Send(ctx, notify.ReturnReminder(h)); err != nil {
			slog.ErrorContext(ctx, "failed to send return reminder", "holdingId", h.ID, "userId", h.UserID, "error", err)
			errs = append(errs, fmt.Errorf("holding %s: %w", h.ID, err))
			continue
		}
		sent++
	}
	slog.InfoContext(ctx, "return reminders sent", "sent", sent, "overdue", len(overdue))
	return sent, errors.Join(errs...)
}
