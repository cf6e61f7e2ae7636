// Command spreadsim runs agent-based epidemic simulations, stores their
// reports and exports charts and animations of the outbreak.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"spreadsim/internal/blob"
	"spreadsim/internal/core"
	"spreadsim/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	exitFunc(execute(newApp(os.Stdout, os.Stderr), os.Args[1:]))
}

func execute(a *app, args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintf(a.stderr, "%s %v\n", styleError.Render("Error:"), err)
		return 1
	}
	return 0
}

// app holds the collaborators shared by every subcommand. Tests replace the
// openers to avoid touching the environment.
type app struct {
	stdout io.Writer
	stderr io.Writer

	logLevel string
	logger   *slog.Logger

	openRunStore func() (domain.RunStore, error)
	openBlob     func(ctx context.Context) (blob.Store, error)
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:       stdout,
		stderr:       stderr,
		logger:       slog.New(slog.DiscardHandler),
		openRunStore: core.OpenRunStore,
		openBlob:     blob.Open,
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "spreadsim",
		Short:         "Agent-based epidemic spread simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			logger, err := newLogger(a.logLevel, a.stderr)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(newRunCmd(a), newRunsCmd(a), newValidateCmd(a))
	return root
}

// newLogger builds the text logger backing core.Logger.
func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}
