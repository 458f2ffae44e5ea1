package aws

import (
	"errors"

	"github.com/aws/smithy-go"
)

// errorCodeIs checks the smithy API error code. S3-compatible services do not
// always return the exact SDK error types, so typed checks fall back to this.
func errorCodeIs(err error, codes ...string) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}

	code := apiErr.ErrorCode()
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}
