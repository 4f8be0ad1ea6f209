// Package contrib registers the framework's built-in apps: contenttypes, auth, admin and
// sessions. Their labels make up the default built-in namespace list the viewer hides.
package contrib

import (
	"fmt"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
)

// BuiltinNamespaces lists the labels of the framework's own apps, including the model-less
// messages and staticfiles apps
var BuiltinNamespaces = []string{"admin", "auth", "contenttypes", "sessions", "messages", "staticfiles"}

type builtinApp struct {
	app    *schema.App
	models func() []*schema.Model
}

// apps are listed in dependency order
func builtinApps() []builtinApp {
	return []builtinApp{
		{&schema.App{Label: "contenttypes", VerboseName: "Content Types"}, contentTypesModels},
		{&schema.App{Label: "auth", VerboseName: "Authentication and Authorization"}, authModels},
		{&schema.App{Label: "admin", VerboseName: "Administration"}, adminModels},
		{&schema.App{Label: "sessions", VerboseName: "Sessions"}, sessionsModels},
	}
}

// Register adds every built-in app and its models to the registry
func Register(registry *schema.Registry) error {
	for _, b := range builtinApps() {
		if err := registry.RegisterApp(b.app); err != nil {
			return fmt.Errorf("failed to register app %s: %w", b.app.Label, err)
		}
		for _, m := range b.models() {
			if err := registry.Register(m); err != nil {
				return fmt.Errorf("failed to register built-in model: %w", err)
			}
		}
	}
	return nil
}
