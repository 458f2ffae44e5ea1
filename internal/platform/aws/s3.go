package aws

import (
	"context"
	"errors"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/ideas-api/stackctl/internal/resource"
)

// BucketExists probes the state bucket. A failed query that is not a clean
// NotFound reports Unknown, never Absent.
func (c *Client) BucketExists(ctx context.Context, bucketName string) (resource.Existence, error) {
	_, err := c.s3.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: awssdk.String(bucketName),
	})
	if err != nil {
		if isBucketNotFound(err) {
			return resource.Absent, nil
		}
		return resource.Unknown, fmt.Errorf("failed to check bucket %s: %w", bucketName, err)
	}
	return resource.Present, nil
}

// CreateStateBucket creates the versioned state bucket. An already-existing
// bucket owned by us is success: the desired end state, not the call outcome,
// defines success.
func (c *Client) CreateStateBucket(ctx context.Context, bucketName string) error {
	input := &s3.CreateBucketInput{
		Bucket: awssdk.String(bucketName),
	}
	// us-east-1 rejects an explicit LocationConstraint.
	if c.region != "us-east-1" {
		input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
			LocationConstraint: s3types.BucketLocationConstraint(c.region),
		}
	}

	if _, err := c.s3.CreateBucket(ctx, input); err != nil {
		if !isBucketAlreadyOwned(err) {
			return fmt.Errorf("failed to create bucket %s: %w", bucketName, err)
		}
	}

	// Versioning protects the state object against destructive writes.
	_, err := c.s3.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
		Bucket: awssdk.String(bucketName),
		VersioningConfiguration: &s3types.VersioningConfiguration{
			Status: s3types.BucketVersioningStatusEnabled,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to enable versioning on bucket %s: %w", bucketName, err)
	}

	return nil
}

// isBucketAlreadyOwned checks if the error indicates the bucket exists and is ours.
func isBucketAlreadyOwned(err error) bool {
	if err == nil {
		return false
	}

	var baoby *s3types.BucketAlreadyOwnedByYou
	if errors.As(err, &baoby) {
		return true
	}

	var bae *s3types.BucketAlreadyExists
	if errors.As(err, &bae) {
		return true
	}

	return errorCodeIs(err, "BucketAlreadyOwnedByYou", "BucketAlreadyExists")
}

// isBucketNotFound checks if the error is a not found error.
func isBucketNotFound(err error) bool {
	if err == nil {
		return false
	}

	var nsb *s3types.NoSuchBucket
	if errors.As(err, &nsb) {
		return true
	}

	var nf *s3types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	return errorCodeIs(err, "NotFound", "NoSuchBucket", "404")
}
