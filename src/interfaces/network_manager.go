package interfaces

import "context"

// -----------------------------------------------------------------------------
// INetworkManager defines the contract for HTTP requests with proxy/retry logic.
// -----------------------------------------------------------------------------

type INetworkManager interface {

	// -----------------------------------------------------------------------------

	// PostJSON sends body as JSON and returns the response body.
	PostJSON(ctx context.Context, url string, headers map[string]string, body interface{}) ([]byte, error)
}
