package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// dashboardPartition groups every dashboard connection under one index key.
const dashboardPartition = "dashboards"

// connectionRecord is an open API Gateway websocket connection of a staff dashboard.
type connectionRecord struct {
	ConnectionID string `dynamodbav:"connection_id"`
	PK           string `dynamodbav:"pk"`
}

// AddConnection registers a dashboard connection.
func (s *Store) AddConnection(ctx context.Context, connectionID string) error {
	item, err := attributevalue.MarshalMap(connectionRecord{ConnectionID: connectionID, PK: dashboardPartition})
	if err != nil {
		return fmt.Errorf("failed to marshal connection: %w", err)
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.Tables.Connections),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save connection %s: %w", connectionID, err)
	}
	return nil
}

// RemoveConnection forgets a dashboard connection.
func (s *Store) RemoveConnection(ctx context.Context, connectionID string) error {
	_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.Tables.Connections),
		Key:       keyOf("connection_id", connectionID),
	})
	if err != nil {
		return fmt.Errorf("failed to delete connection %s: %w", connectionID, err)
	}
	return nil
}

// GetAllConnections lists every registered dashboard connection ID.
func (s *Store) GetAllConnections(ctx context.Context) ([]string, error) {
	items, err := s.queryAll(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.Tables.Connections),
		IndexName:              aws.String(connectionsIndex),
		KeyConditionExpression: aws.String("pk = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: dashboardPartition},
		},
		ProjectionExpression: aws.String("connection_id"),
	})
	if err != nil {
		return nil, err
	}

	var connections []connectionRecord
	if err := attributevalue.UnmarshalListOfMaps(items, &connections); err != nil {
		return nil, fmt.Errorf("failed to unmarshal connections: %w", err)
	}
	ids := make([]string, len(connections))
	for i, c := range connections {
		ids[i] = c.ConnectionID
	}
	return ids, nil
}
