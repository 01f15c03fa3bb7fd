package coordination

import (
	"context"
	"fmt"
	"sync/atomic"
)

// chatDispatch wraps the chat client with the single-in-flight invariant.
// The mode gate in the runtime is the primary guard; the in-flight flag is a
// hard backstop against overlapping submissions.
type chatDispatch struct {
	client   ChatClient
	inFlight atomic.Bool
}

func newChatDispatch(client ChatClient) *chatDispatch {
	return &chatDispatch{client: client}
}

func (c *chatDispatch) set(client ChatClient) {
	if c != nil {
		c.client = client
	}
}

func (c *chatDispatch) isConfigured() bool {
	return c != nil && c.client != nil
}

// Submit forwards one finalized utterance. A submission while another is
// outstanding is rejected, never queued.
func (c *chatDispatch) Submit(ctx context.Context, message string, language string) (string, error) {
	if !c.isConfigured() {
		return "", fmt.Errorf("no chat client configured")
	}

	if !c.inFlight.CompareAndSwap(false, true) {
		return "", fmt.Errorf("chat submission already in flight")
	}
	defer c.inFlight.Store(false)

	return c.client.Submit(ctx, message, language)
}
