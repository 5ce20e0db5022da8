package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/meeting-finder/internal/application"
	"github.com/example/meeting-finder/internal/calendar"
)

type reconcileOptions struct {
	owner       string
	from        string
	to          string
	accessToken string
}

// newReconcileCmd runs the bulk hold sweep for one owner outside the API,
// typically from cron with the refresh-token credentials.
func newReconcileCmd(root *rootOptions) *cobra.Command {
	opts := &reconcileOptions{}
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Delete provisional holds in a range and repair the owner's cases",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.load()
			if err != nil {
				return err
			}
			params, err := opts.params()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if opts.accessToken != "" {
				ctx = calendar.WithAccessToken(ctx, opts.accessToken)
			}

			logger := newLogger(cmd.ErrOrStderr(), cfg.SlogLevel())
			deps, err := buildComponents(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer deps.Close()

			result, err := deps.cases.Reconciler().Reconcile(ctx, params)
			if err != nil {
				return err
			}
			return writeReconcileResult(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVar(&opts.owner, "owner", "", "owner whose holds and cases are reconciled (required)")
	cmd.Flags().StringVar(&opts.from, "from", "", "inclusive RFC3339 lower bound on hold start")
	cmd.Flags().StringVar(&opts.to, "to", "", "inclusive RFC3339 upper bound on hold start")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", os.Getenv("SCHEDULER_CALENDAR_ACCESS_TOKEN"), "calendar OAuth access token; defaults to the refresh-token credentials")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func (o *reconcileOptions) params() (application.ReconcileParams, error) {
	params := application.ReconcileParams{Principal: application.Principal{OwnerID: strings.TrimSpace(o.owner)}}
	if params.Principal.OwnerID == "" {
		return params, fmt.Errorf("--owner is required")
	}
	var err error
	if params.From, err = parseBound("from", o.from); err != nil {
		return params, err
	}
	if params.To, err = parseBound("to", o.to); err != nil {
		return params, err
	}
	return params, nil
}

func parseBound(name, raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("--%s must be RFC3339: %w", name, err)
	}
	return &t, nil
}

func writeReconcileResult(w io.Writer, result application.ReconcileResult) error {
	out := struct {
		DeletedCount int      `json:"deleted_count"`
		TrimmedCases []string `json:"trimmed_cases"`
		DeletedCases []string `json:"deleted_cases"`
	}{
		DeletedCount: result.DeletedCount,
		TrimmedCases: append([]string{}, result.TrimmedCases...),
		DeletedCases: append([]string{}, result.DeletedCases...),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
