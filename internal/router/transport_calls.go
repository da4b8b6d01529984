package router

import (
	"context"
	"fmt"

	"agentmail-go/internal/envelope"
	"agentmail-go/internal/transport"
)

// postEnvelope POSTs env to url and treats any non-2xx response or
// transport failure as a delivery failure for this attempt.
func (r *Router) postEnvelope(ctx context.Context, url string, env envelope.MessageEnvelope, client *transport.Client) error {
	tier := "relay"
	if client == r.direct {
		tier = "direct"
	}
	status, err := client.PostJSON(ctx, url, env, nil)
	if err != nil {
		return &TransportError{Tier: tier, Err: err}
	}
	if status < 200 || status >= 300 {
		return &TransportError{Tier: tier, Err: fmt.Errorf("status %d", status)}
	}
	return nil
}
