// Command futurepool demonstrates the pool and procpool packages: many tasks
// updating one shared counter, concurrent page fetching, and CPU-bound
// factoring on goroutines versus worker processes.
package main

import (
	"os"

	"github.com/utkarsh5026/futurepool/procpool"
)

func main() {
	procpool.MaybeServe()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
