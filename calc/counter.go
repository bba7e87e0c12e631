package calc

import (
	"context"
	"sync/atomic"

	"github.com/atomlearn/atomlearn/atoms"
	"github.com/atomlearn/atomlearn/pkg/errors"
)

// Counter wraps a Calculator and counts force calls. It also converts a
// panic in the wrapped calculator into a CalculatorError, so misbehaving
// user-supplied oracles cannot take the loop down.
type Counter struct {
	inner Calculator
	calls atomic.Int64
}

// NewCounter wraps c.
func NewCounter(c Calculator) *Counter {
	return &Counter{inner: c}
}

// Name implements Calculator.
func (c *Counter) Name() string {
	return c.inner.Name()
}

// Compute implements Calculator.
func (c *Counter) Compute(ctx context.Context, a *atoms.Atoms) (res *atoms.Result, err error) {
	defer func() {
		if err != nil {
			var pe *errors.PanicError
			if errors.As(err, &pe) {
				err = errors.NewCalculatorError(c.inner.Name(), "compute", err)
			}
		}
	}()
	defer errors.Recover(&err, "Counter.Compute")

	c.calls.Add(1)
	return c.inner.Compute(ctx, a)
}

// Calls returns the number of Compute invocations so far.
func (c *Counter) Calls() int {
	return int(c.calls.Load())
}
