// Command rotas simulates daily dispatch of field-service orders to crews
// and serves the persisted results.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/ElicoJr/Rotas-Inteligentes-V2/config"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/driver"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/metrics"
	"github.com/ElicoJr/Rotas-Inteligentes-V2/server"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(verbose bool) hclog.Logger {
	level := hclog.Info
	if verbose {
		level = hclog.Debug
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:  "rotas",
		Level: level,
	})
}

func rootCmd() *cobra.Command {
	var (
		cfgPath string
		verbose bool
	)
	cfg := config.Default()

	root := &cobra.Command{
		Use:           "rotas",
		Short:         "Daily dispatch and routing simulator for field-service orders",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.LoadFile(cfgPath, !cmd.Flags().Changed("config")); err != nil {
				return err
			}
			cfg.FromEnv()
			return nil
		},
	}
	root.PersistentFlags().StringVarP(&cfgPath, "config", "c", "rotas.yaml", "config file")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(runCmd(&cfg, &verbose))
	root.AddCommand(serveCmd(&cfg, &verbose))
	return root
}

func runCmd(cfg *config.Config, verbose *bool) *cobra.Command {
	var (
		crews      string
		technical  string
		commercial string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Simulate the days found in the crew table",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := newLogger(*verbose)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			reg := prometheus.NewRegistry()
			runner := &driver.Runner{
				Cfg:     *cfg,
				Logger:  log,
				Metrics: metrics.New(reg),
				Out:     os.Stdout,
			}
			summary, err := runner.Run(ctx, driver.Inputs{
				CrewsPath:      crews,
				TechnicalPath:  technical,
				CommercialPath: commercial,
			})
			if err != nil {
				return err
			}
			fmt.Printf("run %s: %d days, %d assigned, %d remaining\n",
				summary.RunID, len(summary.Days), summary.Assigned, summary.Remaining)
			return nil
		},
	}
	cmd.Flags().StringVar(&crews, "crews", filepath.Join("data", "equipes.parquet"), "crew table")
	cmd.Flags().StringVar(&technical, "technical", filepath.Join("data", "os_tecnicas.parquet"), "technical order table")
	cmd.Flags().StringVar(&commercial, "commercial", filepath.Join("data", "os_comerciais.parquet"), "commercial order table")
	cmd.Flags().Var(newModeFlag(&cfg.Mode), "mode", "day variant: rounds or grouped")
	cmd.Flags().BoolVar(&cfg.Parallel, "parallel", false, "dispatch crews of a round in parallel")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "selector random seed")
	cmd.Flags().StringVar(&cfg.ResultsDir, "results", cfg.ResultsDir, "output directory")
	return cmd
}

func serveCmd(cfg *config.Config, verbose *bool) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve persisted run results over HTTP",
		RunE: func(*cobra.Command, []string) error {
			srv := &server.Server{
				ResultsDir: cfg.ResultsDir,
				Logger:     newLogger(*verbose),
				Registry:   prometheus.NewRegistry(),
			}
			return srv.ListenAndServe(addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&cfg.ResultsDir, "results", cfg.ResultsDir, "results directory")
	return cmd
}

// modeFlag lets cobra validate the mode value at parse time.
type modeFlag struct{ mode *config.Mode }

func newModeFlag(m *config.Mode) *modeFlag { return &modeFlag{mode: m} }

func (f *modeFlag) String() string { return string(*f.mode) }
func (f *modeFlag) Type() string   { return "mode" }
func (f *modeFlag) Set(v string) error {
	switch config.Mode(v) {
	case config.ModeRounds, config.ModeGrouped:
		*f.mode = config.Mode(v)
		return nil
	}
	return fmt.Errorf("unknown mode %q", v)
}
