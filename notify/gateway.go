package notify

import "context"

// Gateway delivers a one-time code to a destination address. Implementations
// must complete within the deadline on ctx and must be safe to retry with the
// same code.
type Gateway interface {
	Send(ctx context.Context, destination, code string) error
}

// GatewayFunc adapts a function to the Gateway interface.
type GatewayFunc func(ctx context.Context, destination, code string) error

func (f GatewayFunc) Send(ctx context.Context, destination, code string) error {
	return f(ctx, destination, code)
}
