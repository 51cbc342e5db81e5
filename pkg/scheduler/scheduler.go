package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/chris/library-ledger/pkg/models"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Scheduler defines the interface for a component that runs a restock at a later time.
type Scheduler interface {
	// ScheduleRestock enqueues a restock for processing once delay has elapsed.
	ScheduleRestock(ctx context.Context, task models.Restock, delay time.Duration) error
}

// EncodeRestock serializes a restock task as a queue message body.
func EncodeRestock(task models.Restock) (string, error) {
	body, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("failed to marshal restock %s: %w", task.ID, err)
	}
	return string(body), nil
}

// DecodeRestock parses a queue message body produced by EncodeRestock.
func DecodeRestock(body string) (models.Restock, error) {
	var task models.Restock
	if err := json.UnmarshalFromString(body, &task); err != nil {
		return models.Restock{}, fmt.Errorf("failed to unmarshal restock message: %w", err)
	}
	if task.ID == "" {
		return models.Restock{}, fmt.Errorf("restock message has no id")
	}
	return task, nil
}
