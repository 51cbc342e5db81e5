package dynamodb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/chris/library-ledger/pkg/storage/dynamodb/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestInTx(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Commits Buffered Writes Once", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return aws.ToString(in.TableName) == "books"
		})).Return(&dynamodb.GetItemOutput{Item: bookItem(t, models.Book{ID: "b1", Title: "Dune", Copies: 3, Version: 7})}, nil)
		mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return aws.ToString(in.TableName) == "members"
		})).Return(&dynamodb.GetItemOutput{}, nil)

		var committed *dynamodb.TransactWriteItemsInput
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) { committed = args.Get(1).(*dynamodb.TransactWriteItemsInput) }).
			Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		store := New(mockClient, testTables)
		err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			book, err := tx.GetBook(ctx, "b1")
			if err != nil {
				return err
			}
			summary, err := tx.GetHoldingSummary(ctx, "u1")
			if err != nil {
				return err
			}
			if err := tx.SaveBookCopies(ctx, book, book.Copies-1, now); err != nil {
				return err
			}
			return tx.CreateHolding(ctx, summary, &models.Holding{ID: "h1", UserID: "u1", BookID: "b1", Type: models.BORROWED, Status: models.ACTIVE, CreatedAt: now})
		})
		require.NoError(t, err)
		require.NotNil(t, committed)
		require.Len(t, committed.TransactItems, 3)

		bookUpdate := committed.TransactItems[0].Update
		require.NotNil(t, bookUpdate)
		assert.Equal(t, "version = :version", aws.ToString(bookUpdate.ConditionExpression))
		assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, bookUpdate.ExpressionAttributeValues[":version"])
		assert.Equal(t, &types.AttributeValueMemberN{Value: "2"}, bookUpdate.ExpressionAttributeValues[":copies"])

		assert.NotNil(t, committed.TransactItems[1].Put)

		member := committed.TransactItems[2].Update
		require.NotNil(t, member)
		assert.Equal(t, "members", aws.ToString(member.TableName))
		assert.Contains(t, aws.ToString(member.ConditionExpression), "attribute_not_exists(version)")
		mockClient.AssertExpectations(t)
	})

	t.Run("No Writes Skips Commit", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)

		err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error { return nil })
		assert.NoError(t, err)
		mockClient.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
	})

	t.Run("Callback Error Discards Writes", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		store := New(mockClient, testTables)
		boom := errors.New("boom")

		err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_ = tx.AppendAction(ctx, &models.Action{ID: "a1", BookID: "b1", Type: models.BORROW, CreatedAt: now})
			return boom
		})
		assert.ErrorIs(t, err, boom)
		mockClient.AssertNotCalled(t, "TransactWriteItems", mock.Anything, mock.Anything)
	})

	t.Run("Failed Condition Is A Conflict", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
			Message: aws.String("Transaction cancelled"),
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed")},
			},
		})

		store := New(mockClient, testTables)
		err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.AppendAction(ctx, &models.Action{ID: "a1", BookID: "b1", Type: models.BORROW, CreatedAt: now})
		})
		assert.ErrorIs(t, err, storage.ErrConflict)
		mockClient.AssertExpectations(t)
	})

	t.Run("Other Failures Are Not Conflicts", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, errors.New("throttled"))

		store := New(mockClient, testTables)
		err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			return tx.AppendAction(ctx, &models.Action{ID: "a1", BookID: "b1", Type: models.BORROW, CreatedAt: now})
		})
		assert.Error(t, err)
		assert.NotErrorIs(t, err, storage.ErrConflict)
	})

	t.Run("Missing Restock", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		store := New(mockClient, testTables)
		err := store.InTx(ctx, func(ctx context.Context, tx storage.Tx) error {
			_, err := tx.GetRestock(ctx, "r1")
			return err
		})
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
