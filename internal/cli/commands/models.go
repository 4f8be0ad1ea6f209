package commands

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/conduit-lang/schemaviewer/internal/cli/ui"
	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"github.com/conduit-lang/schemaviewer/internal/viewer"
	"github.com/spf13/cobra"
)

// NewModelsCommand creates the models command
func NewModelsCommand(global *globalOptions) *cobra.Command {
	var apps []string
	var excludeBuiltins, byDependency, long bool

	cmd := &cobra.Command{
		Use:     "models",
		Aliases: []string{"ls"},
		Short:   "List the registered models",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}
			registry, err := buildRegistry(cfg.Schema)
			if err != nil {
				return err
			}

			models := viewer.SelectModels(registry, viewer.Filter{
				Apps:            apps,
				ExcludeBuiltins: excludeBuiltins,
				Builtins:        cfg.Schema.BuiltinNamespaces,
			})
			if byDependency {
				models = dependencyOrdered(registry, models)
			}
			if len(models) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No models registered.")
				return nil
			}

			headers := []string{"APP", "MODEL", "TABLE", "FIELDS", "RELATIONS"}
			if long {
				headers = append(headers, "ORDERING", "DESCRIPTION")
			}
			table := ui.NewTable(global.noColor, headers...)
			for _, m := range models {
				row := []string{m.App, m.Name, m.TableName, strconv.Itoa(len(m.Fields)), strconv.Itoa(len(m.Relations))}
				if long {
					row = append(row, strings.Join(m.Ordering, ","), m.Documentation)
				}
				table.AddRow(row...)
			}
			table.Render(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&apps, "apps", nil, "only list these app labels")
	cmd.Flags().BoolVar(&excludeBuiltins, "exclude-builtins", false, "hide the built-in apps")
	cmd.Flags().BoolVarP(&long, "long", "l", false, "add the default ordering and the model description")
	cmd.Flags().BoolVar(&byDependency, "by-dependency", false, "list relation targets before the models pointing to them")

	return cmd
}

// dependencyOrdered sorts models the way the registry orders them for loading: every model
// after the models its foreign keys point to
func dependencyOrdered(registry *schema.Registry, models []*schema.Model) []*schema.Model {
	rank := make(map[*schema.Model]int, len(models))
	for i, m := range registry.DependencyOrder() {
		rank[m] = i
	}
	sorted := append([]*schema.Model(nil), models...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return rank[sorted[i]] < rank[sorted[j]]
	})
	return sorted
}
