package dynamodb

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
	"github.com/chris/library-ledger/pkg/storage/dynamodb/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestCreateWallet(t *testing.T) {
	wallet := &models.Wallet{ID: "w1", UserID: "test-user", Balance: decimal.Zero}

	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("TransactWriteItems", mock.Anything, mock.MatchedBy(func(in *dynamodb.TransactWriteItemsInput) bool {
			return len(in.TransactItems) == 2 && in.TransactItems[1].Update != nil &&
				aws.ToString(in.TransactItems[1].Update.ConditionExpression) == "attribute_not_exists(wallet_id)"
		})).Return(&dynamodb.TransactWriteItemsOutput{}, nil)

		store := New(mockClient, testTables)
		assert.NoError(t, store.CreateWallet(context.Background(), wallet))
		mockClient.AssertExpectations(t)
	})

	t.Run("Conflict", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, &types.TransactionCanceledException{
			CancellationReasons: []types.CancellationReason{
				{Code: aws.String("None")},
				{Code: aws.String("ConditionalCheckFailed")},
			},
		})

		store := New(mockClient, testTables)
		err := store.CreateWallet(context.Background(), wallet)
		assert.ErrorIs(t, err, storage.ErrDuplicate)
		mockClient.AssertExpectations(t)
	})

	t.Run("Storage Error", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("TransactWriteItems", mock.Anything, mock.Anything).Return(nil, errors.New("some other storage error"))

		store := New(mockClient, testTables)
		err := store.CreateWallet(context.Background(), wallet)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create wallet in DynamoDB")
		mockClient.AssertExpectations(t)
	})
}

func TestGetWalletByUserID(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		member, err := attributevalue.MarshalMap(memberRecord{UserID: "test-user", WalletID: "w1"})
		require.NoError(t, err)
		wallet, err := attributevalue.MarshalMap(newWalletRecord(&models.Wallet{ID: "w1", UserID: "test-user", Balance: decimal.RequireFromString("2000.50")}))
		require.NoError(t, err)

		mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return aws.ToString(in.TableName) == "members"
		})).Return(&dynamodb.GetItemOutput{Item: member}, nil)
		mockClient.On("GetItem", mock.Anything, mock.MatchedBy(func(in *dynamodb.GetItemInput) bool {
			return aws.ToString(in.TableName) == "wallets"
		})).Return(&dynamodb.GetItemOutput{Item: wallet}, nil)

		store := New(mockClient, testTables)
		got, err := store.GetWalletByUserID(context.Background(), "test-user")

		require.NoError(t, err)
		assert.Equal(t, "w1", got.ID)
		assert.Equal(t, "2000.5", got.Balance.String())
		mockClient.AssertExpectations(t)
	})

	t.Run("Not Found", func(t *testing.T) {
		mockClient := new(mocks.DynamoDBAPI)
		mockClient.On("GetItem", mock.Anything, mock.Anything).Return(&dynamodb.GetItemOutput{}, nil)

		store := New(mockClient, testTables)
		_, err := store.GetWalletByUserID(context.Background(), "test-user")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		mockClient.AssertExpectations(t)
	})
}

func TestListMovements(t *testing.T) {
	mockClient := new(mocks.DynamoDBAPI)
	item, err := attributevalue.MarshalMap(newMovementRecord(&models.Movement{ID: "m1", WalletID: "w1", Amount: decimal.RequireFromString("5.25"), Type: models.DEBIT}))
	require.NoError(t, err)

	mockClient.On("Query", mock.Anything, mock.MatchedBy(func(in *dynamodb.QueryInput) bool {
		return aws.ToString(in.IndexName) == movementsByWallet && in.FilterExpression == nil
	})).Return(&dynamodb.QueryOutput{Items: []map[string]types.AttributeValue{item}}, nil)

	store := New(mockClient, testTables)
	movements, total, err := store.ListMovements(context.Background(), storage.MovementQuery{WalletID: "w1"}, models.PageRequest{Page: 1, Limit: 10})

	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.True(t, movements[0].Amount.Equal(decimal.RequireFromString("5.25")))
	mockClient.AssertExpectations(t)
}
