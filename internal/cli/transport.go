package cli

import (
	"context"

	"github.com/aaaa47080/stock-agent-sub003/internal/hitl"
	"github.com/aaaa47080/stock-agent-sub003/internal/listener"
)

// consoleTransport surfaces coordinator questions on the terminal through
// the shared readline instance, so a question never tears the prompt the
// user is typing at.
type consoleTransport struct{}

func (consoleTransport) Interactive() bool { return true }

func (consoleTransport) Prompt(ctx context.Context, q hitl.Question) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(q.Options) > 0 {
		return listener.Choose(q.Text, q.Options), nil
	}
	return listener.Ask(q.Text), nil
}
