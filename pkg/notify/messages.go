package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	"github.com/shopspring/decimal"
)

// LowStockAlert tells management a book is running out.
// restockIn is the delay of the automatic restock, or zero if none was scheduled.
func LowStockAlert(to string, book *models.Book, copiesLeft int, restockIn time.Duration) Message {
	body := fmt.Sprintf("Book %q by %s has only %s left.", book.Title, authors(book), pluralCopies(copiesLeft))
	if restockIn > 0 {
		body += fmt.Sprintf(" It will be automatically restocked in %s.", humanDuration(restockIn))
	} else {
		body += " Please restock."
	}
	return Message{To: to, Subject: "Low Stock Alert", Body: body}
}

// Restocked tells management a scheduled restock has been applied.
func Restocked(to string, book *models.Book) Message {
	return Message{
		To:      to,
		Subject: "Book Restocked",
		Body: fmt.Sprintf("Book %q by %s has been automatically restocked. New stock: %s.",
			book.Title, authors(book), pluralCopies(book.Copies)),
	}
}

// MilestoneReached tells management a user's wallet went above the milestone.
func MilestoneReached(to, userID string, balance decimal.Decimal) Message {
	return Message{
		To:      to,
		Subject: "Wallet Milestone Reached!",
		Body:    fmt.Sprintf("User %s has reached a wallet balance of %s!", userID, balance.StringFixed(2)),
	}
}

// ReturnReminder asks a user to return a book they have held for too long.
func ReturnReminder(h models.Holding) Message {
	return Message{
		To:      h.UserID,
		Subject: "Book Return Reminder",
		Body: fmt.Sprintf("Dear user,\n\nThis is a reminder that you borrowed the book %q by %s on %s. Please return it as soon as possible.\n\nThank you!",
			h.Book.Title, strings.Join(h.Book.Authors, ", "), h.CreatedAt.Format(time.DateOnly)),
	}
}

func authors(b *models.Book) string {
	return strings.Join(b.Authors, ", ")
}

func pluralCopies(n int) string {
	if n == 1 {
		return "1 copy"
	}
	return fmt.Sprintf("%d copies", n)
}

func humanDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		if d == time.Hour {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", d/time.Hour)
	case d%time.Minute == 0:
		if d == time.Minute {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", d/time.Minute)
	default:
		return d.String()
	}
}
