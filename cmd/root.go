package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"volley/internal/banner"
	"volley/internal/cli"
	"volley/internal/dummy"
	"volley/internal/logging"
	"volley/internal/payload"
	"volley/internal/runner"
	"volley/internal/storage"
	"volley/internal/target"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "volley",
	Short: "Volley - Fixed-volume load generator for request/response services",
	Long: `
Volley fires a fixed number of calls at a target from a closed worker pool
and aggregates every outcome into one report: latency percentiles, a
histogram, throughput, and status/error distributions.

Runs are driven entirely by flags (or a config file) for CI/CD usage.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("url") && viper.GetString("url") == "" {
			return cmd.Help()
		}
		return runHeadless(cmd.Context())
	},
}

func Execute() {
	// Custom Help with Banner
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		fmt.Println(banner.GetString())
		cmd.Usage()
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(dummyCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.volley.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error, none)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Log as JSON instead of logfmt")

	rootCmd.Flags().StringP("url", "u", "", "Target base URL (enables a run)")
	rootCmd.Flags().StringP("method", "m", "echo", "Method selector to invoke")
	rootCmd.Flags().StringP("data", "d", "", "Request payload (JSON, template tokens allowed)")
	rootCmd.Flags().StringSliceP("metadata", "H", []string{}, "Call metadata (e.g. \"Key: Value\")")
	rootCmd.Flags().IntP("total", "n", 200, "Total number of calls to issue")
	rootCmd.Flags().IntP("concurrency", "c", 50, "Worker count (capped at total)")
	rootCmd.Flags().Int("rps", 0, "Pace claims at this rate, 0 disables pacing")
	rootCmd.Flags().Duration("timeout", 0, "Deadline for the whole run, 0 means none")
	rootCmd.Flags().Duration("call-timeout", 10*time.Second, "Per-call timeout")
	rootCmd.Flags().Int("buckets", 0, "Histogram bucket count (default 10)")
	rootCmd.Flags().String("steps", "", "Comma-separated worker counts, one run per step (e.g. 10,25,50)")
	rootCmd.Flags().StringSlice("route", []string{}, "Method route mapping selector=path, repeatable")
	rootCmd.Flags().Bool("insecure", false, "Skip TLS certificate verification")
	rootCmd.Flags().Bool("no-store", false, "Do not save this run to history")

	viper.BindPFlags(rootCmd.Flags())
	viper.BindPFlags(rootCmd.PersistentFlags())
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
			viper.SetConfigType("yaml")
			viper.SetConfigName(".volley")
		}
	}
	viper.AutomaticEnv()
	viper.ReadInConfig()
}

// --- Run ---

func runHeadless(ctx context.Context) error {
	logger := logging.New(viper.GetString("log-level"), viper.GetBool("log-json"))

	cfg := runner.Config{
		Method:      viper.GetString("method"),
		TotalCalls:  viper.GetInt("total"),
		Concurrency: viper.GetInt("concurrency"),
		RPS:         viper.GetInt("rps"),
		Timeout:     viper.GetDuration("timeout"),
		Buckets:     viper.GetInt("buckets"),
	}

	md := make(map[string]string)
	for _, h := range viper.GetStringSlice("metadata") {
		parts := strings.SplitN(h, ":", 2)
		if len(parts) == 2 {
			md[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	if len(md) > 0 {
		cfg.Metadata = md
	}

	if data := viper.GetString("data"); data != "" {
		rendered, err := payload.NewEngine().Render(data)
		if err != nil {
			return fmt.Errorf("render payload: %w", err)
		}
		cfg.Payload = json.RawMessage(rendered)
	}

	routes := make(map[string]string)
	for _, rte := range viper.GetStringSlice("route") {
		parts := strings.SplitN(rte, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("bad route %q, want selector=path", rte)
		}
		routes[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if len(routes) == 0 {
		routes[cfg.Method] = "/" + cfg.Method
	}

	tgt, err := target.NewHTTP(viper.GetString("url"), routes, target.HTTPOptions{
		CallTimeout: viper.GetDuration("call-timeout"),
		Insecure:    viper.GetBool("insecure"),
	})
	if err != nil {
		return err
	}

	steps, err := parseSteps(viper.GetString("steps"))
	if err != nil {
		return err
	}

	var store *storage.Store
	if !viper.GetBool("no-store") {
		s, err := openDefaultStore()
		if err != nil {
			level.Warn(logger).Log("msg", "run history disabled", "err", err)
		} else {
			store = s
			defer store.Close()
		}
	}

	return cli.Start(ctx, cli.Options{
		Cfg:    cfg,
		Target: tgt,
		Steps:  steps,
		Store:  store,
		Logger: logger,
	})
}

func parseSteps(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	fields := strings.Split(s, ",")
	steps := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil || n < 1 {
			return nil, fmt.Errorf("bad steps value %q, want comma-separated worker counts", f)
		}
		steps = append(steps, n)
	}
	return steps, nil
}

func openDefaultStore() (*storage.Store, error) {
	path, err := storage.DefaultPath()
	if err != nil {
		return nil, err
	}
	return storage.Open(path)
}

// --- History Subcommand ---

var historyCmd = &cobra.Command{
	Use:   "history [id]",
	Short: "List saved runs, or re-print one by id",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDefaultStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if len(args) == 1 {
			rec, err := store.Get(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("💾 Run %s saved %s (method=%s n=%d c=%d)\n",
				rec.ID, rec.SavedAt.Format("2006-01-02 15:04:05"),
				rec.Config.Method, rec.Config.TotalCalls, rec.Config.Concurrency)
			cli.PrintSummary(rec.Report)
			return nil
		}

		items, err := store.List()
		if err != nil {
			return err
		}
		if len(items) == 0 {
			fmt.Println("No saved runs yet.")
			return nil
		}

		fmt.Printf("%-36s %-20s %-12s %8s %8s %10s\n", "ID", "SAVED", "METHOD", "CALLS", "ERRORS", "RPS")
		for _, rec := range items {
			errs := 0
			for _, n := range rec.Report.ErrorDist {
				errs += n
			}
			fmt.Printf("%-36s %-20s %-12s %8d %8d %10.2f\n",
				rec.ID, rec.SavedAt.Format("2006-01-02 15:04:05"), rec.Config.Method,
				rec.Report.Count, errs, rec.Report.Rps)
		}
		return nil
	},
}

// --- Dummy Subcommand ---

var dummyCmd = &cobra.Command{
	Use:   "dummy",
	Short: "Run internal dummy server",
	Run: func(cmd *cobra.Command, args []string) {
		port, _ := cmd.Flags().GetInt("port")
		dummy.Start(dummy.ServerConfig{Port: port})
		select {}
	},
}

func init() {
	dummyCmd.Flags().IntP("port", "p", 8080, "Port to run dummy server on")
}
