package procpool

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/utkarsh5026/futurepool/pool"
)

// handler is the type-erased form of a registered function as seen by the
// serving process: raw JSON argument in, raw JSON result out.
type handler func(ctx context.Context, arg json.RawMessage) (json.RawMessage, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]handler)
)

// Func is a handle to a function registered under a name. It is what crosses the
// process boundary: the worker process looks the name up in its own registry.
//
// Type parameters:
//   - A: The argument type; must survive a JSON round trip
//   - R: The result type; must survive a JSON round trip
type Func[A any, R any] struct {
	name string
}

// Name returns the name the function was registered under.
func (f Func[A, R]) Name() string {
	return f.name
}

// Register makes fn callable from worker processes under name.
//
// Registration must happen identically in the parent and in every worker, which
// is the case when it runs during package initialization:
//
//	var factorize = procpool.Register("factorize", func(ctx context.Context, n uint64) ([]uint64, error) {
//	    return workload.TrivialFactors(n), nil
//	})
//
// Register panics if name is empty or already taken.
func Register[A any, R any](name string, fn pool.ProcessFunc[A, R]) Func[A, R] {
	if name == "" {
		panic("procpool: Register with empty name")
	}
	if fn == nil {
		panic(fmt.Sprintf("procpool: Register %q with nil function", name))
	}

	registryMu.Lock()
	defer registryMu.Unlock()

	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("procpool: function %q registered twice", name))
	}

	registry[name] = func(ctx context.Context, raw json.RawMessage) (json.RawMessage, error) {
		var arg A
		if err := json.Unmarshal(raw, &arg); err != nil {
			return nil, &transferError{fmt.Errorf("decoding argument of %s: %w", name, err)}
		}

		result, err := fn(ctx, arg)
		if err != nil {
			return nil, err
		}

		out, err := json.Marshal(result)
		if err != nil {
			return nil, &transferError{fmt.Errorf("encoding result of %s: %w", name, err)}
		}
		return out, nil
	}

	return Func[A, R]{name: name}
}

func lookup(name string) (handler, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	h, ok := registry[name]
	return h, ok
}

// transferError marks serialization failures inside the worker so they can be
// reported back as ErrNotTransferable.
type transferError struct {
	err error
}

func (e *transferError) Error() string { return e.err.Error() }
func (e *transferError) Unwrap() error { return e.err }
