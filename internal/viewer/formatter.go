package viewer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
)

// Formatter assembles the API documents from the registry
type Formatter struct {
	registry  *schema.Registry
	extractor *Extractor
	builtins  []string

	fingerprintOnce sync.Once
	fingerprint     string
}

// NewFormatter creates a formatter. builtins overrides the default built-in app labels
// when non-nil.
func NewFormatter(registry *schema.Registry, builtins []string) *Formatter {
	return &Formatter{
		registry:  registry,
		extractor: NewExtractor(registry),
		builtins:  builtins,
	}
}

// Schema builds the full-schema document for the models matching filter
func (f *Formatter) Schema(filter Filter) *SchemaDocument {
	if filter.Builtins == nil {
		filter.Builtins = f.builtins
	}

	doc := &SchemaDocument{Apps: make(map[string]*AppSchema)}
	for _, m := range SelectModels(f.registry, filter) {
		app, ok := doc.Apps[m.App]
		if !ok {
			app = &AppSchema{VerboseName: m.App, Models: make(map[string]*ModelInfo)}
			if registered, found := f.registry.GetApp(m.App); found {
				app.VerboseName = registered.VerboseName
			}
			doc.Apps[m.App] = app
		}
		app.Models[m.ModelName()] = f.extractor.ModelInfo(m)
	}
	return doc
}

// Model builds the detail document of one model. The error wraps schema.ErrModelNotFound
// or schema.ErrAppNotFound when the model is unknown.
func (f *Formatter) Model(appLabel, modelName string) (*ModelDetail, error) {
	m, err := f.registry.GetModel(appLabel, modelName)
	if err != nil {
		return nil, err
	}
	// Abstract models have no table; auto-created link models stay reachable here even
	// though the schema document leaves them out
	if m.Abstract {
		return nil, schema.ErrModelNotFound
	}
	return f.extractor.ModelDetail(m), nil
}

// Encode serializes a document. Struct fields keep their declared order and map keys are
// sorted, so equal documents encode to identical bytes.
func Encode(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

// Fingerprint hashes the document of every model, built-ins included. Two registries with
// the same fingerprint serve the same schema document. It is computed once; the registry
// must not change after the formatter is created.
func (f *Formatter) Fingerprint() string {
	f.fingerprintOnce.Do(func() {
		body, err := Encode(f.Schema(Filter{}))
		if err != nil {
			return
		}
		sum := sha256.Sum256(body)
		f.fingerprint = hex.EncodeToString(sum[:6])
	})
	return f.fingerprint
}
