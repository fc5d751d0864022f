package procpool

import "github.com/rs/zerolog"

// Option is a functional option for configuring a process Pool.
type Option func(*config)

type config struct {
	path              string
	args              []string
	maxTasksPerWorker int
	logger            zerolog.Logger
}

func defaultConfig() *config {
	return &config{
		logger: zerolog.Nop(),
	}
}

// WithMaxTasksPerWorker replaces a worker process after it has run n tasks.
// If not specified (or n <= 0), worker processes live until Shutdown.
func WithMaxTasksPerWorker(n int) Option {
	return func(cfg *config) {
		if n > 0 {
			cfg.maxTasksPerWorker = n
		}
	}
}

// WithCommand sets the binary started for each worker and its arguments.
// The binary must register the same functions and call MaybeServe first thing.
// If not specified, the current executable is re-run without arguments.
func WithCommand(path string, args ...string) Option {
	return func(cfg *config) {
		cfg.path = path
		cfg.args = args
	}
}

// WithLogger sets the logger for pool and worker process events. Worker
// processes log to their stderr at the same level.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}
