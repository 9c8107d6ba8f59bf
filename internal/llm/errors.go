package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/sashabaranov/go-openai"
)

// classify maps a transport or SDK error onto ErrNetwork or ErrProtocol.
func classify(err error) error {
	var (
		apiErr *openai.APIError
		reqErr *openai.RequestError
		netErr net.Error
	)
	switch {
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrProtocol):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	case errors.As(err, &apiErr), errors.As(err, &reqErr):
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	case errors.As(err, &netErr):
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	default:
		// json decode errors and anything else the SDK could not make sense of
		return fmt.Errorf("%w: %w", ErrProtocol, err)
	}
}

// IsNetwork reports whether err is a connection failure or timeout.
func IsNetwork(err error) bool { return errors.Is(err, ErrNetwork) }

// IsProtocol reports whether err is a bad status or malformed upstream body.
func IsProtocol(err error) bool { return errors.Is(err, ErrProtocol) }
