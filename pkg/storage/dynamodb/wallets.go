package dynamodb

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
)

// CreateWallet creates a new wallet record and links it to its user.
// The link on the member item is conditional, which keeps one wallet per user.
func (s *Store) CreateWallet(ctx context.Context, wallet *models.Wallet) error {
	walletAV, err := attributevalue.MarshalMap(newWalletRecord(wallet))
	if err != nil {
		return fmt.Errorf("failed to marshal wallet: %w", err)
	}

	input := &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(s.Tables.Wallets),
					Item:                walletAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				Update: &types.Update{
					TableName:           aws.String(s.Tables.Members),
					Key:                 keyOf("user_id", wallet.UserID),
					UpdateExpression:    aws.String("SET wallet_id = :wallet"),
					ConditionExpression: aws.String("attribute_not_exists(wallet_id)"),
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":wallet": &types.AttributeValueMemberS{Value: wallet.ID},
					},
				},
			},
		},
	}

	_, err = s.Client.TransactWriteItems(ctx, input)
	if err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			for _, reason := range canceled.CancellationReasons {
				if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
					return storage.ErrDuplicate
				}
			}
		}
		return fmt.Errorf("failed to create wallet in DynamoDB: %w", err)
	}
	return nil
}

// GetWallet retrieves a wallet by its ID.
func (s *Store) GetWallet(ctx context.Context, walletID string) (*models.Wallet, error) {
	var rec walletRecord
	found, err := s.getItem(ctx, s.Tables.Wallets, keyOf("id", walletID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	w := rec.model()
	return &w, nil
}

// GetWalletByUserID follows the user's member item to their wallet.
func (s *Store) GetWalletByUserID(ctx context.Context, userID string) (*models.Wallet, error) {
	var member memberRecord
	found, err := s.getItem(ctx, s.Tables.Members, keyOf("user_id", userID), &member)
	if err != nil {
		return nil, err
	}
	if !found || member.WalletID == "" {
		return nil, storage.ErrNotFound
	}
	return s.GetWallet(ctx, member.WalletID)
}

// ListMovements queries a wallet's movements newest first.
func (s *Store) ListMovements(ctx context.Context, q storage.MovementQuery, page models.PageRequest) ([]models.Movement, int, error) {
	var conds []expression.ConditionBuilder
	if q.Type != nil {
		conds = append(conds, expression.Name("type").Equal(expression.Value(string(*q.Type))))
	}

	input, err := indexQuery(s.Tables.Movements, movementsByWallet, expression.Key("wallet_id").Equal(expression.Value(q.WalletID)), conds)
	if err != nil {
		return nil, 0, err
	}
	items, err := s.queryAll(ctx, input)
	if err != nil {
		return nil, 0, err
	}

	var records []movementRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal movements: %w", err)
	}
	start, end := page.Window(len(records))
	out := make([]models.Movement, 0, end-start)
	for _, r := range records[start:end] {
		out = append(out, r.model())
	}
	return out, len(records), nil
}
