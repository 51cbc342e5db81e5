package dynamodb

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/chris/library-ledger/pkg/models"
	"github.com/chris/library-ledger/pkg/storage"
)

// CreateBook adds a book to the catalog.
func (s *Store) CreateBook(ctx context.Context, book *models.Book) error {
	item, err := attributevalue.MarshalMap(newBookRecord(book))
	if err != nil {
		return fmt.Errorf("failed to marshal book: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.Tables.Books),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var condCheckFailed *types.ConditionalCheckFailedException
		if errors.As(err, &condCheckFailed) {
			return storage.ErrDuplicate
		}
		return fmt.Errorf("failed to create book in DynamoDB: %w", err)
	}
	return nil
}

// GetBook retrieves a book by its ID.
func (s *Store) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	var rec bookRecord
	found, err := s.getItem(ctx, s.Tables.Books, keyOf("id", bookID), &rec)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, storage.ErrNotFound
	}
	b := rec.model()
	return &b, nil
}

// SearchBooks scans the catalog with a filter expression. The catalog has no index
// that could serve a substring match, so all matches are read and paginated here.
func (s *Store) SearchBooks(ctx context.Context, filter storage.BookFilter, page models.PageRequest) ([]models.Book, int, error) {
	var conds []expression.ConditionBuilder
	if filter.Title != "" {
		conds = append(conds, expression.Contains(expression.Name("title"), filter.Title))
	}
	if filter.Author != "" {
		conds = append(conds, expression.Contains(expression.Name("authors"), filter.Author))
	}
	if filter.Genre != "" {
		conds = append(conds, expression.Contains(expression.Name("genres"), filter.Genre))
	}

	input := &dynamodb.ScanInput{TableName: aws.String(s.Tables.Books)}
	if cond, ok := allOf(conds); ok {
		expr, err := expression.NewBuilder().WithFilter(cond).Build()
		if err != nil {
			return nil, 0, fmt.Errorf("failed to build search filter: %w", err)
		}
		input.FilterExpression = expr.Filter()
		input.ExpressionAttributeNames = expr.Names()
		input.ExpressionAttributeValues = expr.Values()
	}

	items, err := s.scanAll(ctx, input)
	if err != nil {
		return nil, 0, err
	}
	var records []bookRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &records); err != nil {
		return nil, 0, fmt.Errorf("failed to unmarshal books: %w", err)
	}

	books := make([]models.Book, len(records))
	for i, r := range records {
		books[i] = r.model()
	}
	slices.SortFunc(books, func(a, b models.Book) int {
		if c := cmp.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	start, end := page.Window(len(books))
	return books[start:end], len(books), nil
}

// allOf joins conditions with AND. It reports false when there are none.
func allOf(conds []expression.ConditionBuilder) (expression.ConditionBuilder, bool) {
	switch len(conds) {
	case 0:
		return expression.ConditionBuilder{}, false
	case 1:
		return conds[0], true
	default:
		return expression.And(conds[0], conds[1], conds[2:]...), true
	}
}
