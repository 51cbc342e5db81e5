package models

// HoldingSummary is a user's holding state as read inside one transaction.
// ActiveBorrows maps a book ID to the ID of the user's ACTIVE BORROWED holding for it.
// Bought maps a book ID to the number of BOUGHT holdings the user has for it.
type HoldingSummary struct {
	UserID        string
	ActiveBorrows map[string]string
	Bought        map[string]int
	Version       int64
}

// NewHoldingSummary returns an empty summary for userID.
func NewHoldingSummary(userID string) *HoldingSummary {
	return &HoldingSummary{
		UserID:        userID,
		ActiveBorrows: map[string]string{},
		Bought:        map[string]int{},
	}
}

func (s *HoldingSummary) ActiveBorrowCount() int {
	return len(s.ActiveBorrows)
}

// ActiveBorrow returns the ID of the active borrowed holding for bookID, if any.
func (s *HoldingSummary) ActiveBorrow(bookID string) (string, bool) {
	id, ok := s.ActiveBorrows[bookID]
	return id, ok
}

// BoughtCount returns the total number of BOUGHT holdings across all books.
func (s *HoldingSummary) BoughtCount() int {
	total := 0
	for _, n := range s.Bought {
		total += n
	}
	return total
}

func (s *HoldingSummary) HasBought(bookID string) bool {
	return s.Bought[bookID] > 0
}
