package cmd

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/teemow/agendabot/internal/store"
)

// hoursDocument is the YAML form of a business's hours.
//
//	allowOverlapping: true
//	maxOverlapping: 2
//	hours:
//	  monday:
//	    - start: "09:00"
//	      end: "13:00"
type hoursDocument struct {
	AllowOverlapping bool              `yaml:"allowOverlapping"`
	MaxOverlapping   int               `yaml:"maxOverlapping"`
	Hours            store.WeeklyHours `yaml:"hours"`
}

func newHoursCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hours",
		Short: "Show or import business hours",
	}
	cmd.AddCommand(newHoursGetCmd(), newHoursSetCmd())
	return cmd
}

func newHoursGetCmd() *cobra.Command {
	var businessID string

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print a business's weekly hours as YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, slog.Default(), false)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			hours, err := a.engine.GetBusinessHours(ctx, businessID)
			if err != nil {
				return err
			}
			return writeHours(cmd.OutOrStdout(), hours)
		},
	}
	cmd.Flags().StringVar(&businessID, "business", "", "Business id (required)")
	_ = cmd.MarkFlagRequired("business")
	return cmd
}

func newHoursSetCmd() *cobra.Command {
	var (
		businessID string
		file       string
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Replace a business's weekly hours from a YAML file",
		Long: `Replace a business's weekly hours. The file lists opening ranges per
weekday; omitted weekdays are closed:

  allowOverlapping: false
  hours:
    monday:
      - start: "09:00"
        end: "13:00"
      - start: "15:00"
        end: "19:00"
    saturday:
      - start: "10:00"
        end: "14:00"

Use "-" to read the file from stdin.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd.InOrStdin(), file)
			if err != nil {
				return err
			}
			doc, err := parseHoursDocument(data)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cfg, slog.Default(), false)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			saved, err := a.engine.SaveBusinessHours(ctx, businessID, doc.Hours, doc.AllowOverlapping, doc.MaxOverlapping)
			if err != nil {
				return err
			}
			return writeHours(cmd.OutOrStdout(), saved)
		},
	}
	cmd.Flags().StringVar(&businessID, "business", "", "Business id (required)")
	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML file with the hours (required)")
	_ = cmd.MarkFlagRequired("business")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func parseHoursDocument(data []byte) (hoursDocument, error) {
	var doc hoursDocument
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		if err == io.EOF {
			return doc, fmt.Errorf("hours file is empty")
		}
		return doc, fmt.Errorf("failed to parse hours file: %w", err)
	}
	if doc.Hours == nil {
		doc.Hours = store.WeeklyHours{}
	}
	return doc, nil
}

func writeHours(w io.Writer, hours *store.BusinessHours) error {
	out, err := yaml.Marshal(hoursDocument{
		AllowOverlapping: hours.AllowOverlapping,
		MaxOverlapping:   hours.MaxOverlapping,
		Hours:            hours.Hours,
	})
	if err != nil {
		return fmt.Errorf("failed to encode hours: %w", err)
	}
	_, err = w.Write(out)
	return err
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}
