package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"spreadsim/internal/adapters/exports"
	"spreadsim/internal/config"
	"spreadsim/pkg/domain"
)

func newValidateCmd(a *app) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate a scenario file",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			s, err := config.Load(path)
			if err != nil {
				var cerr *domain.ConfigError
				if errors.As(err, &cerr) {
					for _, p := range cerr.Problems {
						_, _ = fmt.Fprintf(a.stdout, "  %s %s\n", styleError.Render("✗"), p)
					}
				}
				return err
			}
			if _, err := exports.ParseFormats(strings.Join(s.Exports, ",")); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(a.stdout, "%s Scenario %s is valid: %s grid, %d susceptible, %d infected, %d ticks\n",
				styleSuccess.Render("✓"), styleBold.Render(s.Name), s.Grid, s.Population.Susceptible, s.Population.Infected, s.Ticks)
			if inert := s.Parameters.Inert(); len(inert) > 0 {
				_, _ = fmt.Fprintf(a.stdout, "  %s parameters accepted but not simulated: %s\n",
					styleWarning.Render("!"), strings.Join(inert, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&path, "config", "c", "", "scenario file (.toml, .yaml, .yml)")
	_ = cmd.MarkFlagRequired("config")
	return cmd
}
