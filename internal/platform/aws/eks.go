package aws

import (
	"context"
	"encoding/base64"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eks"
	ekstypes "github.com/aws/aws-sdk-go-v2/service/eks/types"
)

// ClusterInfo holds the cluster attributes downstream stages need.
type ClusterInfo struct {
	Name       string
	Endpoint   string
	CAData     []byte // decoded PEM bundle
	OIDCIssuer string // e.g. https://oidc.eks.us-east-1.amazonaws.com/id/ABC123
}

// DescribeCluster fetches endpoint, certificate authority, and OIDC issuer
// for the named cluster.
func (c *Client) DescribeCluster(ctx context.Context, clusterName string) (*ClusterInfo, error) {
	out, err := c.eks.DescribeCluster(ctx, &eks.DescribeClusterInput{
		Name: awssdk.String(clusterName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to describe cluster %s: %w", clusterName, err)
	}

	cluster := out.Cluster
	if cluster == nil || cluster.Status != ekstypes.ClusterStatusActive {
		return nil, fmt.Errorf("cluster %s is not active", clusterName)
	}
	if cluster.Endpoint == nil || cluster.CertificateAuthority == nil || cluster.CertificateAuthority.Data == nil {
		return nil, fmt.Errorf("cluster %s is missing endpoint or certificate data", clusterName)
	}

	caData, err := base64.StdEncoding.DecodeString(awssdk.ToString(cluster.CertificateAuthority.Data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode cluster CA data: %w", err)
	}

	info := &ClusterInfo{
		Name:     clusterName,
		Endpoint: awssdk.ToString(cluster.Endpoint),
		CAData:   caData,
	}
	if cluster.Identity != nil && cluster.Identity.Oidc != nil {
		info.OIDCIssuer = awssdk.ToString(cluster.Identity.Oidc.Issuer)
	}

	return info, nil
}
