package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/agendabot/internal/router"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate operation documentation",
		Long: `Generate markdown documentation for all booking operations.
The documentation is built from the same definitions that are handed to the
agent and published as MCP tools, so it always matches the implementation.`,
		// No configuration needed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	// Definitions do not touch the engine.
	r := router.New(nil)
	markdown := generateOperationsMarkdown(r.Definitions(), r.IsCalendarOperation)

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

const (
	categoryCalendar = "Calendar Operations"
	categorySettings = "Business Settings"
)

func generateOperationsMarkdown(defs []router.Definition, isCalendar func(string) bool) string {
	var sb strings.Builder

	sb.WriteString("# Operations Reference\n\n")
	sb.WriteString("Operations available as MCP tools when running `agendabot serve`. The conversational agent is\n")
	sb.WriteString("offered every operation except those that change business settings or list the raw calendar.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the operation definitions.\n\n")

	byCategory := map[string][]router.Definition{}
	for _, def := range defs {
		category := categorySettings
		if isCalendar(def.Name) {
			category = categoryCalendar
		}
		byCategory[category] = append(byCategory[category], def)
	}

	sb.WriteString("## Table of Contents\n\n")
	categories := []string{categoryCalendar, categorySettings}
	for _, category := range categories {
		if len(byCategory[category]) == 0 {
			continue
		}
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", category, anchor))
	}
	sb.WriteString("\n")

	sb.WriteString("## Results\n\n")
	sb.WriteString("Every operation returns a JSON object with `success`. Failures carry `error` and `error_kind`;\n")
	sb.WriteString("credential failures also set `authRequired`. All times are in America/Mexico_City.\n\n")

	for _, category := range categories {
		categoryDefs := byCategory[category]
		if len(categoryDefs) == 0 {
			continue
		}
		sort.Slice(categoryDefs, func(i, j int) bool {
			return categoryDefs[i].Name < categoryDefs[j].Name
		})

		sb.WriteString(fmt.Sprintf("## %s\n\n", category))
		for _, def := range categoryDefs {
			sb.WriteString(generateOperationMarkdown(def))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func generateOperationMarkdown(def router.Definition) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("### %s\n\n", def.Name))
	if def.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", def.Description))
	}

	properties, _ := def.Parameters["properties"].(map[string]any)
	if len(properties) == 0 {
		return sb.String()
	}
	required, _ := def.Parameters["required"].([]string)

	sb.WriteString("**Arguments:**\n")
	propNames := make([]string, 0, len(properties))
	for name := range properties {
		propNames = append(propNames, name)
	}
	sort.Strings(propNames)

	for _, name := range propNames {
		propMap, ok := properties[name].(map[string]any)
		if !ok {
			continue
		}
		requiredStr := "optional"
		if contains(required, name) {
			requiredStr = "required"
		}

		sb.WriteString(fmt.Sprintf("- `%s` (%s): ", name, requiredStr))
		if desc, ok := propMap["description"].(string); ok {
			sb.WriteString(desc)
		} else {
			sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
		}
		sb.WriteString("\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
