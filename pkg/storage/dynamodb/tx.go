package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/shopspring/decimal"
)

// txn buffers the writes of one InTx call.
type txn struct {
	s     *Store
	items []types.TransactWriteItem

	// summaries touched by the transaction, written once at commit
	dirty map[string]*models.HoldingSummary
}

var _ storage.Tx = (*txn)(nil)

// InTx runs fn and commits its buffered writes with a single TransactWriteItems call.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	tx := &txn{s: s, dirty: map[string]*models.HoldingSummary{}}
	if err := fn(ctx, tx); err != nil {
		return err
	}

	items, err := tx.writeItems()
	if err != nil {
		return err
	}
	if len(items) == 0 {
		return nil
	}

	_, err = s.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		return mapTransactError(err)
	}
	return nil
}

// mapTransactError turns a cancelled transaction caused by a failed condition or a
// concurrent transaction into storage.ErrConflict.
func mapTransactError(err error) error {
	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for _, reason := range canceled.CancellationReasons {
			switch aws.ToString(reason.Code) {
			case "ConditionalCheckFailed", "TransactionConflict":
				return fmt.Errorf("%w: %s", storage.ErrConflict, aws.ToString(canceled.Message))
			}
		}
		return fmt.Errorf("transaction canceled: %w", err)
	}
	var conflict *types.TransactionConflictException
	if errors.As(err, &conflict) {
		return fmt.Errorf("%w: %s", storage.ErrConflict, aws.ToString(conflict.Message))
	}
	return fmt.Errorf("failed to execute transaction: %w", err)
}

func (t *txn) writeItems() ([]types.TransactWriteItem, error) {
	items := t.items
	for userID, summary := range t.dirty {
		activeAV, err := attributevalue.Marshal(summary.ActiveBorrows)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal active borrows: %w", err)
		}
		boughtAV, err := attributevalue.Marshal(summary.Bought)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal purchases: %w", err)
		}

		condition := "version = :version"
		if summary.Version == 0 {
			condition = "attribute_not_exists(version) OR version = :version"
		}
		items = append(items, types.TransactWriteItem{
			Update: &types.Update{
				TableName:           aws.String(t.s.Tables.Members),
				Key:                 keyOf("user_id", userID),
				UpdateExpression:    aws.String("SET active_borrows = :active, bought = :bought, version = :next"),
				ConditionExpression: aws.String(condition),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":active":  activeAV,
					":bought":  boughtAV,
					":version": number(summary.Version),
					":next":    number(summary.Version + 1),
				},
			},
		})
	}
	return items, nil
}

func number(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func (t *txn) put(table, idAttr string, record any) error {
	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("failed to marshal item for %s: %w", table, err)
	}
	t.items = append(t.items, types.TransactWriteItem{
		Put: &types.Put{
			TableName:           aws.String(table),
			Item:                item,
			ConditionExpression: aws.String(fmt.Sprintf("attribute_not_exists(%s)", idAttr)),
		},
	})
	return nil
}

func (t *txn) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	return t.s.GetBook(ctx, bookID)
}

func (t *txn) SaveBookCopies(ctx context.Context, book *models.Book, copies int, now time.Time) error {
	t.items = append(t.items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(t.s.Tables.Books),
			Key:                 keyOf("id", book.ID),
			UpdateExpression:    aws.String("SET copies = :copies, version = :next, updated_at = :now"),
			ConditionExpression: aws.String("version = :version"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":copies":  number(int64(copies)),
				":version": number(book.Version),
				":next":    number(book.Version + 1),
				":now":     &types.AttributeValueMemberS{Value: formatTime(now)},
			},
		},
	})
	return nil
}

func (t *txn) GetHoldingSummary(ctx context.Context, userID string) (*models.HoldingSummary, error) {
	var rec memberRecord
	if _, err := t.s.getItem(ctx, t.s.Tables.Members, keyOf("user_id", userID), &rec); err != nil {
		return nil, err
	}
	return rec.summary(userID), nil
}

func (t *txn) CreateHolding(ctx context.Context, summary *models.HoldingSummary, holding *models.Holding) error {
	if err := t.put(t.s.Tables.Holdings, "id", newHoldingRecord(holding)); err != nil {
		return err
	}
	switch holding.Type {
	case models.BORROWED:
		summary.ActiveBorrows[holding.BookID] = holding.ID
	case models.BOUGHT:
		summary.Bought[holding.BookID]++
	}
	t.dirty[summary.UserID] = summary
	return nil
}

func (t *txn) MarkHoldingReturned(ctx context.Context, summary *models.HoldingSummary, holdingID, bookID string, now time.Time) error {
	t.items = append(t.items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(t.s.Tables.Holdings),
			Key:                 keyOf("id", holdingID),
			UpdateExpression:    aws.String("SET #status = :returned, updated_at = :now"),
			ConditionExpression: aws.String("#status = :active AND user_id = :user"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":returned": &types.AttributeValueMemberS{Value: string(models.RETURNED)},
				":active":   &types.AttributeValueMemberS{Value: string(models.ACTIVE)},
				":user":     &types.AttributeValueMemberS{Value: summary.UserID},
				":now":      &types.AttributeValueMemberS{Value: formatTime(now)},
			},
		},
	})
	delete(summary.ActiveBorrows, bookID)
	t.dirty[summary.UserID] = summary
	return nil
}

func (t *txn) AppendAction(ctx context.Context, action *models.Action) error {
	return t.put(t.s.Tables.Actions, "id", newActionRecord(action))
}

func (t *txn) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	return t.s.GetWallet(ctx, walletID)
}

func (t *txn) SaveWalletBalance(ctx context.Context, wallet *models.Wallet, balance decimal.Decimal, milestoneNotified bool, now time.Time) error {
	balanceAV, err := money{balance}.MarshalDynamoDBAttributeValue()
	if err != nil {
		return err
	}
	t.items = append(t.items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(t.s.Tables.Wallets),
			Key:                 keyOf("id", wallet.ID),
			UpdateExpression:    aws.String("SET balance = :balance, milestone_notified = :milestone, version = :next, updated_at = :now"),
			ConditionExpression: aws.String("version = :version"),
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":balance":   balanceAV,
				":milestone": &types.AttributeValueMemberBOOL{Value: milestoneNotified},
				":version":   number(wallet.Version),
				":next":      number(wallet.Version + 1),
				":now":       &types.AttributeValueMemberS{Value: formatTime(now)},
			},
		},
	})
	return nil
}

func (t *txn) AppendMovement(ctx context.Context, movement *models.Movement) error {
	return t.put(t.s.Tables.Movements, "id", newMovementRecord(movement))
}

func (t *txn) CreateRestock(ctx context.Context, restock *models.Restock) error {
	return t.put(t.s.Tables.Restocks, "id", newRestockRecord(restock))
}

func (t *txn) GetRestock(ctx context.Context, restockID string) (*models.Restock, error) {
	var rec restockRecord
	found, err := t.s.getItem(ctx, t.s.Tables.Restocks, keyOf("id", restockID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	r := rec.model()
	return &r, nil
}

func (t *txn) CompleteRestock(ctx context.Context, restock *models.Restock, now time.Time) error {
	t.items = append(t.items, types.TransactWriteItem{
		Update: &types.Update{
			TableName:           aws.String(t.s.Tables.Restocks),
			Key:                 keyOf("id", restock.ID),
			UpdateExpression:    aws.String("SET #status = :completed, completed_at = :now"),
			ConditionExpression: aws.String("#status = :pending"),
			ExpressionAttributeNames: map[string]string{
				"#status": "status",
			},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":completed": &types.AttributeValueMemberS{Value: string(models.COMPLETED)},
				":pending":   &types.AttributeValueMemberS{Value: string(models.PENDING)},
				":now":       &types.AttributeValueMemberS{Value: formatTime(now)},
			},
		},
	})
	return nil
}
