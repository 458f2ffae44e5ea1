package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ideas-api/stackctl/internal/resource"
)

// lockKeyAttribute is the single hash-key attribute the provisioning tool
// uses for its state lock items.
const lockKeyAttribute = "LockID"

// TableExists probes the lock table. A failed query that is not a clean
// NotFound reports Unknown, never Absent.
func (c *Client) TableExists(ctx context.Context, tableName string) (resource.Existence, error) {
	_, err := c.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: awssdk.String(tableName),
	})
	if err != nil {
		if isTableNotFound(err) {
			return resource.Absent, nil
		}
		return resource.Unknown, fmt.Errorf("failed to check table %s: %w", tableName, err)
	}
	return resource.Present, nil
}

// CreateLockTable creates the lock table keyed by the lock identifier.
// A racing create that reports the table already exists is success.
func (c *Client) CreateLockTable(ctx context.Context, tableName string) error {
	_, err := c.ddb.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   awssdk.String(tableName),
		BillingMode: ddbtypes.BillingModePayPerRequest,
		AttributeDefinitions: []ddbtypes.AttributeDefinition{
			{
				AttributeName: awssdk.String(lockKeyAttribute),
				AttributeType: ddbtypes.ScalarAttributeTypeS,
			},
		},
		KeySchema: []ddbtypes.KeySchemaElement{
			{
				AttributeName: awssdk.String(lockKeyAttribute),
				KeyType:       ddbtypes.KeyTypeHash,
			},
		},
	})
	if err != nil {
		var inUse *ddbtypes.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", tableName, err)
	}
	return nil
}

// TableActive reports whether the table has finished creating.
func (c *Client) TableActive(ctx context.Context, tableName string) (bool, error) {
	out, err := c.ddb.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: awssdk.String(tableName),
	})
	if err != nil {
		return false, fmt.Errorf("failed to describe table %s: %w", tableName, err)
	}
	return out.Table != nil && out.Table.TableStatus == ddbtypes.TableStatusActive, nil
}

// isTableNotFound checks if the error is a not found error.
func isTableNotFound(err error) bool {
	if err == nil {
		return false
	}

	var nf *ddbtypes.ResourceNotFoundException
	if errors.As(err, &nf) {
		return true
	}

	return errorCodeIs(err, "ResourceNotFoundException")
}
