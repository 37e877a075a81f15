package cli

import (
	"fmt"

	"github.com/samvad-hq/taxjar-go/pkg/httpclient"
)

// FormatError renders err for the terminal. Classified API errors show their
// kind and HTTP status.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	apiErr, ok := httpclient.AsError(err)
	if !ok {
		return "error: " + err.Error()
	}
	if apiErr.Kind == httpclient.KindTimeout {
		return fmt.Sprintf("taxjar %s: %s %s: %s", apiErr.Kind, apiErr.Method, apiErr.Resource, apiErr.Message)
	}
	return fmt.Sprintf("taxjar %s (status %d): %s %s: %s",
		apiErr.Kind, apiErr.HTTPStatus, apiErr.Method, apiErr.Resource, apiErr.Message)
}
