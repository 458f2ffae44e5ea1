package aws

import (
	"context"
	"crypto/sha1" // #nosec G505 - OIDC provider thumbprints are defined as SHA-1 by the IAM API
	"crypto/tls"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// oidcClientID is the audience EKS service-account tokens are issued for.
const oidcClientID = "sts.amazonaws.com"

// AccountID returns the caller's AWS account identifier.
func (c *Client) AccountID(ctx context.Context) (string, error) {
	out, err := c.sts.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return "", fmt.Errorf("failed to resolve caller identity: %w", err)
	}
	return awssdk.ToString(out.Account), nil
}

// FindOpenIDConnectProvider returns the ARN of the provider registered for
// the issuer, or empty if none matches. Listing first keeps registration
// idempotent.
func (c *Client) FindOpenIDConnectProvider(ctx context.Context, issuer string) (string, error) {
	out, err := c.iam.ListOpenIDConnectProviders(ctx, &iam.ListOpenIDConnectProvidersInput{})
	if err != nil {
		return "", fmt.Errorf("failed to list OIDC providers: %w", err)
	}

	// Provider ARNs end with the issuer host and path, without the scheme.
	suffix := strings.TrimPrefix(issuer, "https://")
	for _, provider := range out.OpenIDConnectProviderList {
		arn := awssdk.ToString(provider.Arn)
		if strings.HasSuffix(arn, suffix) {
			return arn, nil
		}
	}

	return "", nil
}

// CreateOpenIDConnectProvider registers the issuer for IAM role federation.
// A racing create that reports the provider already exists is success.
func (c *Client) CreateOpenIDConnectProvider(ctx context.Context, issuer string) (string, error) {
	thumbprint, err := issuerThumbprint(issuer)
	if err != nil {
		return "", err
	}

	out, err := c.iam.CreateOpenIDConnectProvider(ctx, &iam.CreateOpenIDConnectProviderInput{
		Url:            awssdk.String(issuer),
		ClientIDList:   []string{oidcClientID},
		ThumbprintList: []string{thumbprint},
	})
	if err != nil {
		if isEntityAlreadyExists(err) {
			return c.FindOpenIDConnectProvider(ctx, issuer)
		}
		return "", fmt.Errorf("failed to create OIDC provider for %s: %w", issuer, err)
	}

	return awssdk.ToString(out.OpenIDConnectProviderArn), nil
}

// EnsurePolicy creates the named policy, or fetches the existing one when the
// create reports it already exists. Returns the policy ARN.
func (c *Client) EnsurePolicy(ctx context.Context, accountID, policyName, document string) (string, error) {
	out, err := c.iam.CreatePolicy(ctx, &iam.CreatePolicyInput{
		PolicyName:     awssdk.String(policyName),
		PolicyDocument: awssdk.String(document),
	})
	if err == nil {
		return awssdk.ToString(out.Policy.Arn), nil
	}

	if !isEntityAlreadyExists(err) {
		return "", fmt.Errorf("failed to create policy %s: %w", policyName, err)
	}

	// Create raced or re-ran: fetch the existing identifier by name.
	arn := fmt.Sprintf("arn:aws:iam::%s:policy/%s", accountID, policyName)
	got, err := c.iam.GetPolicy(ctx, &iam.GetPolicyInput{PolicyArn: awssdk.String(arn)})
	if err != nil {
		return "", fmt.Errorf("policy %s exists but could not be fetched: %w", policyName, err)
	}

	return awssdk.ToString(got.Policy.Arn), nil
}

// isEntityAlreadyExists checks for the IAM duplicate-entity error.
func isEntityAlreadyExists(err error) bool {
	if err == nil {
		return false
	}

	var exists *iamtypes.EntityAlreadyExistsException
	if errors.As(err, &exists) {
		return true
	}

	return errorCodeIs(err, "EntityAlreadyExists")
}

// issuerThumbprint fetches the hex SHA-1 fingerprint of the root certificate
// presented by the issuer, as required by CreateOpenIDConnectProvider.
func issuerThumbprint(issuer string) (string, error) {
	parsed, err := url.Parse(issuer)
	if err != nil {
		return "", fmt.Errorf("invalid issuer URL %s: %w", issuer, err)
	}

	host := parsed.Host
	if _, _, splitErr := net.SplitHostPort(host); splitErr != nil {
		host = net.JoinHostPort(host, "443")
	}

	conn, err := tls.Dial("tcp", host, &tls.Config{MinVersion: tls.VersionTLS12})
	if err != nil {
		return "", fmt.Errorf("failed to connect to issuer %s: %w", issuer, err)
	}
	defer conn.Close()

	certs := conn.ConnectionState().PeerCertificates
	if len(certs) == 0 {
		return "", fmt.Errorf("issuer %s presented no certificates", issuer)
	}

	// The last certificate in the chain is the root (or closest to it).
	sum := sha1.Sum(certs[len(certs)-1].Raw) // #nosec G401
	return hex.EncodeToString(sum[:]), nil
}
