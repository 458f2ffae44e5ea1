// Package aws wraps the AWS service clients the pipelines talk to:
// S3 and DynamoDB for the remote state backend, ECR for the image registry,
// IAM/STS/EKS for the controller's identity wiring, ELBv2 for teardown
// ordering, and CloudWatch Logs for post-deploy analysis.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Client bundles the per-service AWS clients behind one construction point.
// Credentials come from the default provider chain; nothing in here reads
// custom environment variables.
type Client struct {
	region string

	s3  *s3.Client
	ddb *dynamodb.Client
	ecr *ecr.Client
	eks *eks.Client
	iam *iam.Client
	sts *sts.Client
	elb *elasticloadbalancingv2.Client
	cwl *cloudwatchlogs.Client
}

// NewClient creates AWS service clients for the given region.
func NewClient(ctx context.Context, region string) (*Client, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		region: region,
		s3:     s3.NewFromConfig(cfg),
		ddb:    dynamodb.NewFromConfig(cfg),
		ecr:    ecr.NewFromConfig(cfg),
		eks:    eks.NewFromConfig(cfg),
		iam:    iam.NewFromConfig(cfg),
		sts:    sts.NewFromConfig(cfg),
		elb:    elasticloadbalancingv2.NewFromConfig(cfg),
		cwl:    cloudwatchlogs.NewFromConfig(cfg),
	}, nil
}

// Region returns the region the clients were built for.
func (c *Client) Region() string {
	return c.region
}
