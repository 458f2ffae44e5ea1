package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	elb "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
)

// clusterTagKey is the tag the ingress controller stamps on every
// load balancer it provisions.
const clusterTagKey = "elbv2.k8s.aws/cluster"

// ClusterLoadBalancerGone reports whether no load balancer tagged for the
// cluster remains. Teardown waits on this before network deletion, because a
// dangling load balancer blocks dependent subnet teardown.
func (c *Client) ClusterLoadBalancerGone(ctx context.Context, clusterName string) (bool, error) {
	var arns []string

	paginator := elb.NewDescribeLoadBalancersPaginator(c.elb, &elb.DescribeLoadBalancersInput{})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return false, fmt.Errorf("failed to list load balancers: %w", err)
		}
		for _, lb := range page.LoadBalancers {
			arns = append(arns, awssdk.ToString(lb.LoadBalancerArn))
		}
	}

	if len(arns) == 0 {
		return true, nil
	}

	// DescribeTags accepts at most 20 ARNs per call.
	for start := 0; start < len(arns); start += 20 {
		end := min(start+20, len(arns))

		tags, err := c.elb.DescribeTags(ctx, &elb.DescribeTagsInput{ResourceArns: arns[start:end]})
		if err != nil {
			return false, fmt.Errorf("failed to describe load balancer tags: %w", err)
		}

		for _, desc := range tags.TagDescriptions {
			for _, tag := range desc.Tags {
				if awssdk.ToString(tag.Key) == clusterTagKey && awssdk.ToString(tag.Value) == clusterName {
					return false, nil
				}
			}
		}
	}

	return true, nil
}
