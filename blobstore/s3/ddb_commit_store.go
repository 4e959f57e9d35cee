package s3

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/hupe1980/visor/blobstore"
)

// DDBCommitStore implements blobstore.Store on top of an object store with
// DynamoDB as the commit index.
//
// Every write goes to a fresh object key. The blob name only becomes visible
// once the name -> object key mapping is recorded in DynamoDB, which gives
// PutIfAbsent first-writer-wins semantics even on plain S3 buckets.
//
// Table schema:
//   - Partition key: base_uri (string) - the bucket/prefix the store serves
//   - Sort key: name (string) - the blob name
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name visor-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=name,AttributeType=S \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=name,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	objects   blobstore.Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// NewDDBCommitStore creates a commit store.
// baseURI ("s3://bucket/prefix") namespaces the entries in the table.
func NewDDBCommitStore(objects blobstore.Store, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		objects:   objects,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

// Get resolves name through the commit index and reads the object.
func (s *DDBCommitStore) Get(ctx context.Context, name string) ([]byte, error) {
	key, err := s.objectKey(ctx, name)
	if err != nil {
		return nil, err
	}
	return s.objects.Get(ctx, key)
}

// Put writes a new object and points name at it.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	prev, err := s.objectKey(ctx, name)
	if err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return err
	}

	key, err := s.stage(ctx, name, data)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, name, key, false); err != nil {
		_ = s.objects.Delete(ctx, key)
		return err
	}
	if prev != "" {
		_ = s.objects.Delete(ctx, prev)
	}
	return nil
}

// PutIfAbsent commits name only if no other writer committed it first.
// It returns blobstore.ErrAlreadyExists when the race is lost.
func (s *DDBCommitStore) PutIfAbsent(ctx context.Context, name string, data []byte) error {
	key, err := s.stage(ctx, name, data)
	if err != nil {
		return err
	}
	if err := s.commit(ctx, name, key, true); err != nil {
		_ = s.objects.Delete(ctx, key)
		return err
	}
	return nil
}

// Delete removes the commit entry and its object.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	key, err := s.objectKey(ctx, name)
	if errors.Is(err, blobstore.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.ddbClient.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       s.itemKey(name),
	})
	if err != nil {
		return fmt.Errorf("failed to delete commit from DynamoDB: %w", err)
	}
	return s.objects.Delete(ctx, key)
}

// List returns committed names with the given prefix.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	values := map[string]types.AttributeValue{
		":uri": &types.AttributeValueMemberS{Value: s.baseURI},
	}
	cond := "base_uri = :uri"
	if prefix != "" {
		cond += " AND begins_with(#n, :prefix)"
		values[":prefix"] = &types.AttributeValueMemberS{Value: prefix}
	}

	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		KeyConditionExpression:    aws.String(cond),
		ExpressionAttributeValues: values,
	}
	if prefix != "" {
		input.ExpressionAttributeNames = map[string]string{"#n": "name"}
	}

	var names []string
	for {
		resp, err := s.ddbClient.Query(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB: %w", err)
		}
		for _, item := range resp.Items {
			if n, ok := item["name"].(*types.AttributeValueMemberS); ok {
				names = append(names, n.Value)
			}
		}
		if len(resp.LastEvaluatedKey) == 0 {
			return names, nil
		}
		input.ExclusiveStartKey = resp.LastEvaluatedKey
	}
}

func (s *DDBCommitStore) itemKey(name string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"base_uri": &types.AttributeValueMemberS{Value: s.baseURI},
		"name":     &types.AttributeValueMemberS{Value: name},
	}
}

func (s *DDBCommitStore) objectKey(ctx context.Context, name string) (string, error) {
	resp, err := s.ddbClient.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            s.itemKey(name),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("failed to read commit from DynamoDB: %w", err)
	}
	if len(resp.Item) == 0 {
		return "", blobstore.ErrNotFound
	}
	key, ok := resp.Item["object_key"].(*types.AttributeValueMemberS)
	if !ok {
		return "", errors.New("invalid object_key attribute in DynamoDB")
	}
	return key.Value, nil
}

func (s *DDBCommitStore) stage(ctx context.Context, name string, data []byte) (string, error) {
	key := name + "." + uuid.NewString()
	if err := s.objects.Put(ctx, key, data); err != nil {
		return "", err
	}
	return key, nil
}

func (s *DDBCommitStore) commit(ctx context.Context, name, key string, ifAbsent bool) error {
	item := s.itemKey(name)
	item["object_key"] = &types.AttributeValueMemberS{Value: key}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}
	if ifAbsent {
		input.ConditionExpression = aws.String("attribute_not_exists(#n)")
		input.ExpressionAttributeNames = map[string]string{"#n": "name"}
	}

	_, err := s.ddbClient.PutItem(ctx, input)
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return blobstore.ErrAlreadyExists
		}
		return fmt.Errorf("failed to commit to DynamoDB: %w", err)
	}
	return nil
}
