package procpool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/rs/zerolog"
)

const (
	workerEnv   = "FUTUREPOOL_PROCPOOL_WORKER"
	logLevelEnv = "FUTUREPOOL_PROCPOOL_LOG_LEVEL"
)

// MaybeServe turns the current process into a pool worker when it was started
// by a procpool.Pool, and never returns in that case. Otherwise it returns
// immediately.
//
// It must be the first statement of main (or TestMain) in every binary that
// creates a process pool:
//
//	func main() {
//	    procpool.MaybeServe()
//	    ...
//	}
func MaybeServe() {
	if os.Getenv(workerEnv) != "1" {
		return
	}

	// Keep the protocol stream private; anything tasks print goes to stderr.
	out := os.Stdout
	os.Stdout = os.Stderr

	level, err := zerolog.ParseLevel(os.Getenv(logLevelEnv))
	if err != nil || os.Getenv(logLevelEnv) == "" {
		level = zerolog.Disabled
	}
	logger := zerolog.New(os.Stderr).Level(level).With().
		Timestamp().
		Str("component", "procpool-worker").
		Int("pid", os.Getpid()).
		Logger()

	if err := serve(logger.WithContext(context.Background()), os.Stdin, out); err != nil {
		logger.Error().Err(err).Msg("worker stopped")
		os.Exit(1)
	}
	os.Exit(0)
}

// serve answers requests read from r until r is exhausted.
func serve(ctx context.Context, r io.Reader, w io.Writer) error {
	dec := json.NewDecoder(r)
	enc := json.NewEncoder(w)
	pid := os.Getpid()
	logger := zerolog.Ctx(ctx)

	for {
		var req request
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				logger.Debug().Msg("input closed, exiting")
				return nil
			}
			return fmt.Errorf("reading request: %w", err)
		}

		resp := handle(ctx, req)
		resp.ID = req.ID
		resp.PID = pid
		logger.Debug().Str("id", req.ID).Str("func", req.Func).Str("kind", resp.Kind).Msg("task done")

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
}

func handle(ctx context.Context, req request) (resp response) {
	defer func() {
		if p := recover(); p != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			resp = response{Kind: kindPanic, Error: fmt.Sprintf("%v: %v\nstack trace:\n%s", ErrTaskPanicked, p, buf[:n])}
		}
	}()

	h, ok := lookup(req.Func)
	if !ok {
		return response{Kind: kindError, Error: fmt.Sprintf("function %q is not registered in this binary", req.Func)}
	}

	out, err := h(ctx, req.Arg)
	if err != nil {
		var te *transferError
		if errors.As(err, &te) {
			return response{Kind: kindTransfer, Error: err.Error()}
		}
		return response{Kind: kindError, Error: err.Error()}
	}
	return response{Result: out}
}
