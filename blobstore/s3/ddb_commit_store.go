package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/hupe1980/diskstore/blobstore"
)

// DDBCommitStore implements blobstore.BlobStore backed by S3 with DynamoDB
// for atomic commits. This enables safe concurrent writers.
//
// Every Put uploads the content to a fresh, immutable S3 object named
// "<name>/<uuid>" and then records it as the next version of name with a
// DynamoDB conditional write. A writer that loses the race gets
// ErrConcurrentModification and its object is removed. Get reads the object
// referenced by the latest version. Delete commits a tombstone version.
//
// Table schema:
//   - Partition key: base_uri (string) - the S3 prefix plus "#" plus the blob name
//   - Sort key: version (number) - monotonically increasing version
//
// Create table with:
//
//	aws dynamodb create-table \
//	  --table-name diskstore-commits \
//	  --attribute-definitions AttributeName=base_uri,AttributeType=S AttributeName=version,AttributeType=N \
//	  --key-schema AttributeName=base_uri,KeyType=HASH AttributeName=version,KeyType=RANGE \
//	  --billing-mode PAY_PER_REQUEST
type DDBCommitStore struct {
	s3Store   *Store
	ddbClient DDBClient
	tableName string
	baseURI   string
}

// DDBClient is the interface for DynamoDB operations.
type DDBClient interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// ErrConcurrentModification is returned when a concurrent write is detected.
var ErrConcurrentModification = errors.New("concurrent modification detected")

// NewDDBCommitStore creates a new S3+DynamoDB commit store.
// The baseURI should be "s3://bucket/prefix"; it namespaces the commit log.
func NewDDBCommitStore(s3Store *Store, ddbClient DDBClient, tableName, baseURI string) *DDBCommitStore {
	return &DDBCommitStore{
		s3Store:   s3Store,
		ddbClient: ddbClient,
		tableName: tableName,
		baseURI:   baseURI,
	}
}

type commit struct {
	version uint64
	objKey  string // empty for a tombstone
}

func (s *DDBCommitStore) partition(name string) string {
	return s.baseURI + "#" + name
}

// Get returns the content of the latest committed version.
func (s *DDBCommitStore) Get(ctx context.Context, name string) ([]byte, error) {
	c, err := s.latest(ctx, name)
	if err != nil {
		return nil, err
	}
	if c.version == 0 || c.objKey == "" {
		return nil, blobstore.ErrNotFound
	}
	return s.s3Store.Get(ctx, c.objKey)
}

// Put uploads data and commits it as the next version of name.
func (s *DDBCommitStore) Put(ctx context.Context, name string, data []byte) error {
	objKey := path.Join(name, uuid.NewString())
	if err := s.s3Store.Put(ctx, objKey, data); err != nil {
		return err
	}

	prev, err := s.commit(ctx, name, objKey)
	if err != nil {
		_ = s.s3Store.Delete(ctx, objKey)
		return err
	}
	if prev.objKey != "" {
		// Superseded versions are kept in the log but their objects can go.
		_ = s.s3Store.Delete(ctx, prev.objKey)
	}
	return nil
}

// Delete commits a tombstone for name.
func (s *DDBCommitStore) Delete(ctx context.Context, name string) error {
	c, err := s.latest(ctx, name)
	if err != nil {
		return err
	}
	if c.version == 0 || c.objKey == "" {
		return nil
	}
	prev, err := s.commit(ctx, name, "")
	if err != nil {
		return err
	}
	if prev.objKey != "" {
		_ = s.s3Store.Delete(ctx, prev.objKey)
	}
	return nil
}

// List returns the names of blobs whose latest version is not a tombstone.
func (s *DDBCommitStore) List(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.s3Store.List(ctx, prefix)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	var names []string
	for _, k := range keys {
		name := path.Dir(k)
		if name == "." {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}

		c, err := s.latest(ctx, name)
		if err != nil {
			return nil, err
		}
		if c.version > 0 && c.objKey != "" {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// latest queries DynamoDB for the latest committed version of name.
// A zero version means nothing was committed yet.
func (s *DDBCommitStore) latest(ctx context.Context, name string) (commit, error) {
	resp, err := s.ddbClient.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("base_uri = :uri"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uri": &types.AttributeValueMemberS{Value: s.partition(name)},
		},
		ScanIndexForward: aws.Bool(false), // Descending order
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return commit{}, fmt.Errorf("failed to query DynamoDB: %w", err)
	}

	if len(resp.Items) == 0 {
		return commit{}, nil
	}

	item := resp.Items[0]
	versionAttr, ok := item["version"].(*types.AttributeValueMemberN)
	if !ok {
		return commit{}, errors.New("invalid version attribute in DynamoDB")
	}
	version, err := strconv.ParseUint(versionAttr.Value, 10, 64)
	if err != nil {
		return commit{}, fmt.Errorf("failed to parse version: %w", err)
	}

	c := commit{version: version}
	if attr, ok := item["object_key"].(*types.AttributeValueMemberS); ok {
		c.objKey = attr.Value
	}
	return c, nil
}

// commit records objKey as the next version of name and returns the commit
// it superseded.
func (s *DDBCommitStore) commit(ctx context.Context, name, objKey string) (commit, error) {
	prev, err := s.latest(ctx, name)
	if err != nil {
		return commit{}, err
	}

	item := map[string]types.AttributeValue{
		"base_uri": &types.AttributeValueMemberS{Value: s.partition(name)},
		"version":  &types.AttributeValueMemberN{Value: strconv.FormatUint(prev.version+1, 10)},
	}
	if objKey != "" {
		item["object_key"] = &types.AttributeValueMemberS{Value: objKey}
	}

	// Conditional put: only succeed if this version doesn't exist yet
	_, err = s.ddbClient.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(version)"),
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return commit{}, ErrConcurrentModification
		}
		return commit{}, fmt.Errorf("failed to commit version to DynamoDB: %w", err)
	}
	return prev, nil
}
