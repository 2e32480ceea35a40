package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	errUnknownEvent = errors.New("unknown_event")

	// Intent payload validation shares one validator instance.
	validate = validator.New()
)

// internal (untyped) handler signature.
type rawHandler func(ctx context.Context, c *ConnContext, body json.RawMessage) error

// Router keeps a map[event]handler, à-la gin.Engine. Handlers emit their
// own events through the dispatcher; a non-nil error means the intent was
// malformed and must be dropped without a wire reply.
type Router struct {
	mu       sync.RWMutex
	handlers map[string]rawHandler
}

func NewRouter() *Router { return &Router{handlers: make(map[string]rawHandler)} }

// Register binds an event to a strongly-typed handler. The decoded payload
// is validated before the handler runs.
func Register[Req any](
	r *Router,
	event string,
	h func(ctx context.Context, c *ConnContext, req Req) error,
) {
	if event == "" {
		panic("ws router: empty event")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[event] = func(ctx context.Context, c *ConnContext, body json.RawMessage) error {
		var req Req
		if len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				return fmt.Errorf("decode %s: %w", event, err)
			}
		}
		if err := validate.Struct(&req); err != nil {
			return fmt.Errorf("validate %s: %w", event, err)
		}
		return h(ctx, c, req)
	}
}

// dispatch is called by the server's reader loop.
func (r *Router) dispatch(ctx context.Context, c *ConnContext, env Envelope) error {
	r.mu.RLock()
	h, ok := r.handlers[env.Event]
	r.mu.RUnlock()
	if !ok {
		return errUnknownEvent
	}
	return h(ctx, c, env.Body)
}
