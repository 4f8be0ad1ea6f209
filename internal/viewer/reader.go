package viewer

import (
	"github.com/conduit-lang/schemaviewer/internal/orm/contrib"
	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
)

// Filter selects which models a schema document covers
type Filter struct {
	// Apps is an allow-list of app labels, matched exactly; empty means all apps. A list
	// holding only blank labels matches nothing.
	Apps []string
	// ExcludeBuiltins drops models whose app is in Builtins
	ExcludeBuiltins bool
	// Builtins overrides contrib.BuiltinNamespaces when non-nil
	Builtins []string
}

// SelectModels returns the concrete models matching the filter, in registration order
func SelectModels(registry *schema.Registry, filter Filter) []*schema.Model {
	allowed := make(map[string]bool, len(filter.Apps))
	for _, label := range filter.Apps {
		allowed[label] = true
	}

	builtins := filter.Builtins
	if builtins == nil {
		builtins = contrib.BuiltinNamespaces
	}
	excluded := toSet(builtins)

	selected := make([]*schema.Model, 0)
	for _, m := range registry.Models() {
		if len(allowed) > 0 && !allowed[m.App] {
			continue
		}
		if filter.ExcludeBuiltins && excluded[m.App] {
			continue
		}
		selected = append(selected, m)
	}
	return selected
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = true
		}
	}
	return set
}
