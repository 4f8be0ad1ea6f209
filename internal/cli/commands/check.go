package commands

import (
	"fmt"
	"io"

	"github.com/conduit-lang/schemaviewer/internal/cli/ui"
	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewCheckCommand creates the check command
func NewCheckCommand(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the registry for unresolved relations and name clashes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			registry, err := buildRegistry(cfg.Schema)
			if err != nil {
				return err
			}

			issues := registry.Check()
			if len(issues) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Success(fmt.Sprintf("System check identified no issues (%d models).", len(registry.Models())), global.noColor))
				return nil
			}

			printIssues(cmd.OutOrStdout(), issues, global.noColor)
			fmt.Fprintf(cmd.OutOrStdout(), "\nSystem check identified %d issue(s).\n", len(issues))
			if schema.HasErrors(issues) {
				return fmt.Errorf("registry check failed")
			}
			return nil
		},
	}
}

func printIssues(w io.Writer, issues []*schema.Issue, noColor bool) {
	errorColor := color.New(color.FgRed)
	warnColor := color.New(color.FgYellow)
	if noColor {
		errorColor.DisableColor()
		warnColor.DisableColor()
	}

	table := ui.NewTable(noColor, "LEVEL", "CODE", "TARGET", "MESSAGE")
	for _, issue := range issues {
		level := warnColor.Sprint(issue.Level.String())
		if issue.Level == schema.LevelError {
			level = errorColor.Sprint(issue.Level.String())
		}
		target := issue.Model
		if issue.Field != "" {
			target += "." + issue.Field
		}
		table.AddRow(level, issue.Code, target, issue.Message)
	}
	table.Render(w)
}
