// Package completion defines the chat completion provider used by the
// conversation controller.
package completion

import (
	"context"

	"vectorchat/internal/domain"
)

// Completer returns the assistant reply for an ordered message history.
type Completer interface {
	Complete(ctx context.Context, messages []domain.Message, temperature float64) (string, error)
}
