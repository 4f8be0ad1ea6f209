package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/conduit-lang/schemaviewer/internal/cli/ui"
	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"github.com/conduit-lang/schemaviewer/internal/viewer"
	"github.com/spf13/cobra"
)

type dumpOptions struct {
	apps            []string
	includeBuiltins bool
	model           string
	indent          bool
}

// NewDumpCommand creates the dump command
func NewDumpCommand(global *globalOptions) *cobra.Command {
	opts := &dumpOptions{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Print the schema document as JSON",
		Long: `Print the document served by /api/schema/ or, with --model, the one served by
/api/model/{app}/{model}/.`,
		Example: `  schemaviewer dump --demo --indent
  schemaviewer dump --apps sample_app,auth --include-builtins
  schemaviewer dump --demo --model sample_app.book`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			registry, err := buildRegistry(cfg.Schema)
			if err != nil {
				return err
			}
			formatter := viewer.NewFormatter(registry, cfg.Schema.BuiltinNamespaces)

			var doc interface{}
			if opts.model != "" {
				detail, err := lookupModel(cmd, formatter, registry, opts.model, global.noColor)
				if err != nil {
					return err
				}
				doc = detail
			} else {
				doc = formatter.Schema(viewer.Filter{
					Apps:            opts.apps,
					ExcludeBuiltins: !opts.includeBuiltins,
				})
			}

			body, err := viewer.Encode(doc)
			if err != nil {
				return fmt.Errorf("failed to encode document: %w", err)
			}
			if opts.indent {
				var buf bytes.Buffer
				if err := json.Indent(&buf, body, "", "  "); err != nil {
					return err
				}
				body = buf.Bytes()
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(body))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&opts.apps, "apps", nil, "only include these app labels")
	cmd.Flags().BoolVar(&opts.includeBuiltins, "include-builtins", false, "include the built-in apps")
	cmd.Flags().StringVar(&opts.model, "model", "", "dump a single model given as app.model")
	cmd.Flags().BoolVar(&opts.indent, "indent", false, "pretty-print the JSON")

	return cmd
}

// lookupModel resolves "app.model", printing suggestions when the model is unknown
func lookupModel(cmd *cobra.Command, formatter *viewer.Formatter, registry *schema.Registry, label string, noColor bool) (*viewer.ModelDetail, error) {
	app, name, ok := strings.Cut(label, ".")
	if !ok || app == "" || name == "" {
		return nil, fmt.Errorf("invalid model label %q: expected app.model", label)
	}

	detail, err := formatter.Model(app, name)
	if err == nil {
		return detail, nil
	}
	if !errors.Is(err, schema.ErrModelNotFound) && !errors.Is(err, schema.ErrAppNotFound) {
		return nil, err
	}

	ui.Message{
		Level:       ui.LevelError,
		Context:     "model not found",
		Problem:     label,
		Detail:      fmt.Sprintf("No model %s is registered.", label),
		Suggestions: ui.Suggest(label, modelLabels(registry), 3, 3),
		Hints:       []string{"List models: schemaviewer models"},
		NoColor:     noColor,
	}.Write(cmd.ErrOrStderr())
	return nil, fmt.Errorf("model %s not found", label)
}
