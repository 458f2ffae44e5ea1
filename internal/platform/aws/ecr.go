package aws

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecr"
	ecrtypes "github.com/aws/aws-sdk-go-v2/service/ecr/types"

	"github.com/ideas-api/stackctl/internal/resource"
)

// RegistryAuth is a decoded ECR authorization token.
type RegistryAuth struct {
	Username string
	Password string
	Endpoint string
}

// RepositoryExists probes the image repository.
func (c *Client) RepositoryExists(ctx context.Context, repositoryName string) (resource.Existence, error) {
	_, err := c.ecr.DescribeRepositories(ctx, &ecr.DescribeRepositoriesInput{
		RepositoryNames: []string{repositoryName},
	})
	if err != nil {
		if isRepositoryNotFound(err) {
			return resource.Absent, nil
		}
		return resource.Unknown, fmt.Errorf("failed to check repository %s: %w", repositoryName, err)
	}
	return resource.Present, nil
}

// RegistryAuthToken fetches and decodes a registry credential for docker login.
func (c *Client) RegistryAuthToken(ctx context.Context) (*RegistryAuth, error) {
	out, err := c.ecr.GetAuthorizationToken(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return nil, fmt.Errorf("failed to get registry authorization token: %w", err)
	}
	if len(out.AuthorizationData) == 0 || out.AuthorizationData[0].AuthorizationToken == nil {
		return nil, fmt.Errorf("registry returned no authorization data")
	}

	data := out.AuthorizationData[0]
	decoded, err := base64.StdEncoding.DecodeString(awssdk.ToString(data.AuthorizationToken))
	if err != nil {
		return nil, fmt.Errorf("failed to decode authorization token: %w", err)
	}

	username, password, found := strings.Cut(string(decoded), ":")
	if !found {
		return nil, fmt.Errorf("malformed authorization token")
	}

	return &RegistryAuth{
		Username: username,
		Password: password,
		Endpoint: strings.TrimPrefix(awssdk.ToString(data.ProxyEndpoint), "https://"),
	}, nil
}

// ListImageIDs enumerates every image identifier in the repository.
// A missing repository yields an empty list.
func (c *Client) ListImageIDs(ctx context.Context, repositoryName string) ([]ecrtypes.ImageIdentifier, error) {
	var ids []ecrtypes.ImageIdentifier

	paginator := ecr.NewListImagesPaginator(c.ecr, &ecr.ListImagesInput{
		RepositoryName: awssdk.String(repositoryName),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			if isRepositoryNotFound(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to list images in %s: %w", repositoryName, err)
		}
		ids = append(ids, page.ImageIds...)
	}

	return ids, nil
}

// BatchDeleteImages deletes the given image identifiers in one call.
func (c *Client) BatchDeleteImages(ctx context.Context, repositoryName string, ids []ecrtypes.ImageIdentifier) error {
	if len(ids) == 0 {
		return nil
	}

	out, err := c.ecr.BatchDeleteImage(ctx, &ecr.BatchDeleteImageInput{
		RepositoryName: awssdk.String(repositoryName),
		ImageIds:       ids,
	})
	if err != nil {
		return fmt.Errorf("failed to batch delete images in %s: %w", repositoryName, err)
	}

	// ImageNotFound failures are fine: another purge got there first.
	for _, failure := range out.Failures {
		if failure.FailureCode == ecrtypes.ImageFailureCodeImageNotFound {
			continue
		}
		digest := ""
		if failure.ImageId != nil {
			digest = awssdk.ToString(failure.ImageId.ImageDigest)
		}
		return fmt.Errorf("failed to delete image %s in %s: %s",
			digest, repositoryName, awssdk.ToString(failure.FailureReason))
	}

	return nil
}

// isRepositoryNotFound checks if the error is a missing-repository error.
func isRepositoryNotFound(err error) bool {
	if err == nil {
		return false
	}

	var nf *ecrtypes.RepositoryNotFoundException
	if errors.As(err, &nf) {
		return true
	}

	return errorCodeIs(err, "RepositoryNotFoundException")
}
