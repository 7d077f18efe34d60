package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/agendabot/internal/instrumentation"
	"github.com/teemow/agendabot/internal/router"
)

func newCallCmd() *cobra.Command {
	var (
		businessID string
		rawArgs    string
	)

	cmd := &cobra.Command{
		Use:   "call <operation>",
		Short: "Invoke one booking operation",
		Long: `Invoke a booking operation directly, without the agent, and print the
result envelope. Run "agendabot generate-docs" for the list of operations
and their arguments.

Example:
  agendabot call check_calendar_availability --business biz-1 --args '{"date":"2025-05-19"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload, err := callArguments(rawArgs, businessID)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, slog.Default(), false)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			if !a.router.Has(args[0]) {
				return fmt.Errorf("unknown operation %q", args[0])
			}

			env := a.router.Dispatch(ctx, router.Request{
				Name:      args[0],
				Arguments: payload,
				Source:    instrumentation.SourceCLI,
			})
			out, err := json.MarshalIndent(env, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !env.Success() {
				return errors.New("operation failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&businessID, "business", "", "Business id, set as businessId in the arguments")
	cmd.Flags().StringVar(&rawArgs, "args", "{}", "Operation arguments as a JSON object")

	return cmd
}

// callArguments parses raw as a JSON object and sets businessId when given.
func callArguments(raw, businessID string) (json.RawMessage, error) {
	args := map[string]any{}
	if strings.TrimSpace(raw) != "" {
		if err := json.Unmarshal([]byte(raw), &args); err != nil {
			return nil, fmt.Errorf("--args must be a JSON object: %w", err)
		}
	}
	if args == nil {
		args = map[string]any{}
	}
	if businessID != "" {
		args["businessId"] = businessID
	}
	return json.Marshal(args)
}
