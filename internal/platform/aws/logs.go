package aws

import (
	"context"
	"fmt"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
)

// maxLogEvents caps a single analysis window to keep responses bounded.
const maxLogEvents = 1000

// FetchLogMessages returns up to maxLogEvents messages from the log group
// over the trailing window.
func (c *Client) FetchLogMessages(ctx context.Context, logGroup string, window time.Duration) ([]string, error) {
	end := time.Now()
	start := end.Add(-window)

	var messages []string

	paginator := cloudwatchlogs.NewFilterLogEventsPaginator(c.cwl, &cloudwatchlogs.FilterLogEventsInput{
		LogGroupName: awssdk.String(logGroup),
		StartTime:    awssdk.Int64(start.UnixMilli()),
		EndTime:      awssdk.Int64(end.UnixMilli()),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch logs from %s: %w", logGroup, err)
		}
		for _, event := range page.Events {
			messages = append(messages, awssdk.ToString(event.Message))
			if len(messages) >= maxLogEvents {
				return messages, nil
			}
		}
	}

	return messages, nil
}
