package diff

import "context"

// DefaultAsyncThreshold is the combined input size, in bytes, beyond which
// callers should prefer Async over Compute so the LCS pass runs off the
// calling goroutine.
const DefaultAsyncThreshold = 4096

// Promise is the handle for a diff computation running in the background.
type Promise struct {
	done chan struct{}
	res  Result
}

// Async starts Compute(original, updated) on its own goroutine and returns
// a promise the caller can await. The computation itself is not cancellable;
// Wait abandons it when the context ends.
func Async(original, updated string) *Promise {
	p := &Promise{done: make(chan struct{})}
	go func() {
		p.res = Compute(original, updated)
		close(p.done)
	}()
	return p
}

// Wait blocks until the computation finishes or ctx is done.
func (p *Promise) Wait(ctx context.Context) (Result, error) {
	select {
	case <-p.done:
		return p.res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Done returns a channel closed when the result is ready.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}
