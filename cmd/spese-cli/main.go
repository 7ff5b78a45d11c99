package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"spesefx/internal/cli"
	"spesefx/internal/config"
	"spesefx/internal/log"
)

// app holds what every subcommand needs once the root command has run its
// PersistentPreRunE.
type app struct {
	cfg    *config.Config
	logger *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var logLevel string

	root := &cobra.Command{
		Use:           "spese-cli",
		Short:         "Record and list expenses from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cli.LoadEnvFile()
			cfg, err := cli.LoadAndValidateConfig()
			if err != nil {
				return err
			}
			if logLevel == "" {
				logLevel = "warn"
			}
			a.cfg = cfg
			a.logger = log.New(log.Config{
				Level:     log.ParseLevel(logLevel),
				Component: log.ComponentCLI,
				Output:    cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(addCmd(a))
	root.AddCommand(listCmd(a))
	return root
}

func main() {
	ctx, stop := cli.SignalContext(log.Discard())
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

// withPipeline builds the pipeline for one command and always closes it.
func (a *app) withPipeline(ctx context.Context, fn func(*cli.Pipeline) error) error {
	p, err := cli.BuildPipeline(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if closeErr := p.Close(); closeErr != nil {
			a.logger.Error("Failed to close storage", log.FieldError, closeErr)
		}
	}()
	return fn(p)
}
