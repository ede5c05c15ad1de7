package capability

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
)

// Reason executes a prompt and returns the free-form text response. No
// tools are provided - this is the unconstrained "reason broadly" mode
// used for the chain-of-thought pass of each stage.
func (c *Client) Reason(ctx context.Context, prompt string) (string, error) {
	var text string

	err := c.withRetry(ctx, "reason", func(callCtx context.Context) error {
		resp, err := c.sdk().Messages.New(callCtx, anthropic.MessageNewParams{
			Model:     c.model,
			MaxTokens: 8192,
			Messages: []anthropic.MessageParam{
				anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
			},
		})
		if err != nil {
			return err
		}

		c.tracker.Add(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		text = collectText(resp)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return text, nil
}

// withRetry runs fn up to the configured attempt count, bounding each
// attempt with the call timeout. A timed-out attempt counts the same as
// any other transport failure.
func (c *Client) withRetry(ctx context.Context, op string, fn func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
		err := fn(callCtx)
		cancel()

		if err == nil {
			return nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if attempt < c.retry.MaxAttempts {
			log.Printf("[capability] %s attempt %d/%d failed: %v", op, attempt, c.retry.MaxAttempts, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retry.Backoff):
			}
		}
	}

	return lastErr
}
