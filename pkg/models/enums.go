package models

import "fmt"

// HoldingType defines how a user holds a book.
type HoldingType string

const (
	BORROWED HoldingType = "BORROWED"
	BOUGHT   HoldingType = "BOUGHT"
)

// Valid reports whether t is a known holding type.
func (t HoldingType) Valid() bool {
	switch t {
	case BORROWED, BOUGHT:
		return true
	}
	return false
}

// ParseHoldingType converts s into a HoldingType.
func ParseHoldingType(s string) (HoldingType, error) {
	t := HoldingType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid holding type %q", s)
	}
	return t, nil
}

// HoldingStatus defines the lifecycle state of a holding.
type HoldingStatus string

const (
	ACTIVE   HoldingStatus = "ACTIVE"
	RETURNED HoldingStatus = "RETURNED"
)

func (s HoldingStatus) Valid() bool {
	switch s {
	case ACTIVE, RETURNED:
		return true
	}
	return false
}

// ParseHoldingStatus converts s into a HoldingStatus.
func ParseHoldingStatus(s string) (HoldingStatus, error) {
	st := HoldingStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("invalid holding status %q", s)
	}
	return st, nil
}

// ActionType defines the kind of inventory-affecting action recorded in the action log.
type ActionType string

const (
	BORROW            ActionType = "BORROW"
	RETURN            ActionType = "RETURN"
	BUY               ActionType = "BUY"
	RESTOCK           ActionType = "RESTOCK"
	RESTOCK_COMPLETED ActionType = "RESTOCK_COMPLETED"
)

func (t ActionType) Valid() bool {
	switch t {
	case BORROW, RETURN, BUY, RESTOCK, RESTOCK_COMPLETED:
		return true
	}
	return false
}

// ParseActionType converts s into an ActionType.
func ParseActionType(s string) (ActionType, error) {
	t := ActionType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid action type %q", s)
	}
	return t, nil
}

// MovementType defines the direction of a wallet movement.
type MovementType string

const (
	CREDIT MovementType = "CREDIT"
	DEBIT  MovementType = "DEBIT"
)

func (t MovementType) Valid() bool {
	switch t {
	case CREDIT, DEBIT:
		return true
	}
	return false
}

// ParseMovementType converts s into a MovementType.
func ParseMovementType(s string) (MovementType, error) {
	t := MovementType(s)
	if !t.Valid() {
		return "", fmt.Errorf("invalid movement type %q", s)
	}
	return t, nil
}

// RestockStatus defines the possible states of a scheduled restock.
type RestockStatus string

const (
	PENDING   RestockStatus = "PENDING"
	COMPLETED RestockStatus = "COMPLETED"
)

func (s RestockStatus) Valid() bool {
	switch s {
	case PENDING, COMPLETED:
		return true
	}
	return false
}
