package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"spreadsim/internal/adapters/exports"
	"spreadsim/internal/core"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect and manage stored runs",
	}
	cmd.AddCommand(newRunsListCmd(a), newRunsShowCmd(a), newRunsDeleteCmd(a))
	return cmd
}

func newRunsListCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withService(func(svc *core.Service) error {
				runs := svc.ListRuns(cmd.Context())
				if asJSON {
					return writeJSON(a, runs)
				}
				renderRunTable(a.stdout, runs)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newRunsShowCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a stored run and its exported artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withService(func(svc *core.Service) error {
				run, err := svc.GetRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(a, run)
				}
				renderRunSummary(a.stdout, run)
				artifacts, err := a.listArtifacts(cmd.Context(), run.ID)
				if err != nil {
					a.logger.Warn("listing artifacts failed", "run", run.ID, "error", err)
					return nil
				}
				renderArtifacts(a.stdout, artifacts)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full run report as JSON")
	return cmd
}

func newRunsDeleteCmd(a *app) *cobra.Command {
	var keepArtifacts bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a stored run and its artifacts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return a.withService(func(svc *core.Service) error {
				if err := svc.DeleteRun(ctx, args[0]); err != nil {
					return err
				}
				removed := 0
				if !keepArtifacts {
					var err error
					if removed, err = a.deleteArtifacts(ctx, args[0]); err != nil {
						return fmt.Errorf("run deleted but artifacts remain: %w", err)
					}
				}
				_, _ = fmt.Fprintf(a.stdout, "%s Deleted run %s (%d artifacts)\n", styleSuccess.Render("✓"), args[0], removed)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&keepArtifacts, "keep-artifacts", false, "leave exported artifacts in the blob store")
	return cmd
}

// withService opens the configured run store for the duration of fn.
func (a *app) withService(fn func(*core.Service) error) (err error) {
	store, err := a.openRunStore()
	if err != nil {
		return fmt.Errorf("open run store: %w", err)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close run store: %w", cerr)
		}
	}()
	return fn(core.NewService(store, core.WithLogger(a.logger)))
}

func (a *app) listArtifacts(ctx context.Context, runID string) ([]exports.ExportArtifact, error) {
	bs, err := a.openBlob(ctx)
	if err != nil {
		return nil, err
	}
	return exports.NewBlobObjectStore(bs).List(ctx, exports.ArtifactPrefix(runID))
}

func (a *app) deleteArtifacts(ctx context.Context, runID string) (int, error) {
	bs, err := a.openBlob(ctx)
	if err != nil {
		return 0, err
	}
	store := exports.NewBlobObjectStore(bs)
	artifacts, err := store.List(ctx, exports.ArtifactPrefix(runID))
	if err != nil {
		return 0, err
	}
	var errs []error
	removed := 0
	for _, art := range artifacts {
		ok, err := store.Delete(ctx, art.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			removed++
		}
	}
	return removed, errors.Join(errs...)
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
