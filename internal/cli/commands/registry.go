package commands

import (
	"fmt"

	"github.com/conduit-lang/schemaviewer/internal/cli/config"
	"github.com/conduit-lang/schemaviewer/internal/orm/contrib"
	"github.com/conduit-lang/schemaviewer/internal/orm/manifest"
	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"github.com/conduit-lang/schemaviewer/internal/sampleapp"
)

// buildRegistry populates a registry in dependency order: built-in apps, the demo app,
// then the manifests
func buildRegistry(cfg config.SchemaConfig) (*schema.Registry, error) {
	registry := schema.NewRegistry()

	if cfg.BuiltinApps {
		if err := contrib.Register(registry); err != nil {
			return nil, err
		}
	}
	if cfg.Demo {
		if err := sampleapp.Register(registry); err != nil {
			return nil, fmt.Errorf("failed to register demo app: %w", err)
		}
	}
	if len(cfg.Manifests) > 0 {
		if err := manifest.LoadFiles(registry, cfg.Manifests...); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// modelLabels lists "app.model" for every concrete model, for suggestions
func modelLabels(registry *schema.Registry) []string {
	models := registry.Models()
	labels := make([]string, 0, len(models))
	for _, m := range models {
		labels = append(labels, m.LabelLower())
	}
	return labels
}
