package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/utkarsh5026/futurepool/internal/demo"
	"github.com/utkarsh5026/futurepool/internal/workload"
)

var counterCmd = &cobra.Command{
	Use:   "counter",
	Short: "Increment one shared counter from many pooled tasks",
	Long: `Submits one task per increment. Each task waits a random preparation
delay, then reads, bumps and writes the shared counter while holding its lock.
The final value always equals the number of tasks.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		collect, err := cmd.Flags().GetString("collect")
		if err != nil {
			return err
		}
		if !slices.Contains(demo.CollectModes, collect) {
			return fmt.Errorf("--collect must be one of %v", demo.CollectModes)
		}
		tasks, err := cmd.Flags().GetInt("tasks")
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("tasks") {
			tasks = settings.Pool.Tasks
		}
		hold, err := cmd.Flags().GetDuration("hold")
		if err != nil {
			return err
		}

		report, err := demo.RunCounter(cmd.Context(), demo.CounterOptions{
			Workers:        settings.Pool.Workers,
			QueueCapacity:  settings.Pool.QueueCapacity,
			Tasks:          tasks,
			Collect:        collect,
			MaxPreparation: time.Duration(tasks) * 100 * time.Millisecond,
			Hold:           hold,
			Logger:         loggerFrom(cmd),
		})
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		demo.PrintSectionHeader(w, "SHARED COUNTER", fmt.Sprintf("%d tasks, results collected %s", tasks, collect))
		for _, i := range report.Order {
			fmt.Fprintf(w, "  task %-3d wrote %d\n", i, report.Results[i].Value)
		}
		fmt.Fprintln(w)

		c := demo.Green
		if report.Final != tasks {
			c = demo.Red
		}
		_, _ = c.Fprintf(w, "Final value: %d (expected %d) in %s\n", report.Final, tasks, report.Elapsed.Round(time.Millisecond))
		return nil
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch URL...",
	Short: "Fetch pages sequentially, per goroutine and through the pool",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, urls []string) error {
		timings, _ := demo.RunFetch(cmd.Context(), urls, demo.FetchOptions{
			Workers:       settings.Pool.Workers,
			QueueCapacity: settings.Pool.QueueCapacity,
			Fetcher:       workload.NewHTTPFetcher(settings.Fetch.Timeout),
			Logger:        loggerFrom(cmd),
		})
		return demo.RenderTimings(cmd.OutOrStdout(), "I/O BOUND: FETCHING PAGES", timings)
	},
}

var factorCmd = &cobra.Command{
	Use:   "factor",
	Short: "Factorize products of large primes on goroutines and on processes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		count := settings.Factor.Products
		if cmd.Flags().Changed("products") {
			v, err := cmd.Flags().GetInt("products")
			if err != nil {
				return err
			}
			count = v
		}

		logger := loggerFrom(cmd)
		start := time.Now()
		numbers := workload.GenerateProducts(rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())), count, settings.Factor.Primes)
		logger.Info().Int("products", len(numbers)).Dur("elapsed", time.Since(start)).Msg("created products")

		w := cmd.OutOrStdout()
		demo.PrintSectionHeader(w, "CPU BOUND: TRIAL DIVISION",
			fmt.Sprintf("  • %d products of %d primes", len(numbers), settings.Factor.Primes),
			fmt.Sprintf("  • %d workers per pool", settings.Pool.Workers))

		bar := demo.NewProgressBar(os.Stderr, 3*len(numbers), "Factorizing")
		timings, factors, err := demo.RunFactor(cmd.Context(), numbers, demo.FactorOptions{
			Workers:       settings.Pool.Workers,
			QueueCapacity: settings.Pool.QueueCapacity,
			Logger:        logger,
			Bar:           bar,
		})
		if err != nil {
			return err
		}

		for _, n := range numbers {
			fmt.Fprintf(w, "  %d = %v\n", n, factors[n])
		}
		return demo.RenderTimings(w, "FACTORING COMPARISON", timings)
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective settings as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		raw, err := settings.ToYAML()
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(raw)
		return err
	},
}

func init() {
	counterCmd.Flags().String("collect", demo.CollectAsCompleted, "How results are retrieved: ordered, map or as-completed")
	counterCmd.Flags().Int("tasks", 5, "Number of tasks (overrides settings)")
	counterCmd.Flags().Duration("hold", 100*time.Millisecond, "Time each task holds the counter lock")

	factorCmd.Flags().Int("products", 5, "Number of products to factorize (overrides settings)")
}
