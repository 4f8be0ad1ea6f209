package schema

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
)

var (
	// ErrAppNotFound is returned when an app label is not registered
	ErrAppNotFound = errors.New("app not found")
	// ErrModelNotFound is returned when a model is not registered
	ErrModelNotFound = errors.New("model not found")
)

// Registry manages all apps and model schemas of the application
type Registry struct {
	apps     map[string]*App
	appOrder []string

	models map[string]*Model // "app.modelname" -> model
	order  []*Model

	validator *SchemaValidator
	mu        sync.RWMutex
}

// NewRegistry creates a new empty registry
func NewRegistry() *Registry {
	return &Registry{
		apps:      make(map[string]*App),
		appOrder:  make([]string, 0),
		models:    make(map[string]*Model),
		order:     make([]*Model, 0),
		validator: NewSchemaValidator(),
	}
}

// RegisterApp registers a namespace. Models can only be registered into known apps.
func (r *Registry) RegisterApp(app *App) error {
	if app == nil || app.Label == "" {
		return fmt.Errorf("app label cannot be empty")
	}
	if !ValidIdentifier(app.Label) {
		return fmt.Errorf("invalid app label %q", app.Label)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.apps[app.Label]; exists {
		return fmt.Errorf("app %s is already registered", app.Label)
	}
	if app.VerboseName == "" {
		app.VerboseName = titleCase(app.Label)
	}
	r.apps[app.Label] = app
	r.appOrder = append(r.appOrder, app.Label)
	return nil
}

// Register registers a model schema. Parents must be registered first; relation targets
// may be registered later and are resolved on read.
func (r *Registry) Register(m *Model) error {
	if m == nil {
		return fmt.Errorf("model cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.apps[m.App]; !ok {
		return fmt.Errorf("%w: %s (registering %s)", ErrAppNotFound, m.App, m.Name)
	}
	if err := r.validator.ValidateStructural(m); err != nil {
		return err
	}
	if _, exists := r.models[m.LabelLower()]; exists {
		return fmt.Errorf("model %s is already registered", m.Label())
	}

	if err := r.prepare(m); err != nil {
		return fmt.Errorf("model %s: %w", m.Label(), err)
	}
	// Inherited fields are only known after prepare
	if err := r.validator.ValidateNames(m); err != nil {
		return err
	}

	r.store(m)

	if !m.Abstract {
		for _, rel := range m.Relations {
			if rel.origin == m && rel.Kind == RelationManyToMany && rel.Through == "" {
				r.store(r.linkModel(m, rel))
			}
		}
	}
	return nil
}

// MustRegister registers the models and panics on error. It is meant for package init code.
func (r *Registry) MustRegister(models ...*Model) {
	for _, m := range models {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

func (r *Registry) store(m *Model) {
	for _, rel := range m.Relations {
		if rel.origin == nil {
			rel.origin = m
		}
	}
	r.models[m.LabelLower()] = m
	r.order = append(r.order, m)
}

// prepare resolves parents and fills in defaults
func (r *Registry) prepare(m *Model) error {
	var concrete []*Model
	for _, ref := range m.Parents {
		parent, ok := r.models[resolveLabel(m.App, ref)]
		if !ok {
			return fmt.Errorf("parent %s is not registered", ref)
		}
		m.parents = append(m.parents, parent)
		if !parent.Abstract {
			concrete = append(concrete, parent)
		}
	}

	// Abstract parents contribute copies of their declarations
	var fields []*Field
	var relations []*Relation
	for _, parent := range m.parents {
		if !parent.Abstract {
			continue
		}
		for _, f := range parent.Fields {
			if f.AutoCreated {
				continue
			}
			fields = append(fields, f.clone())
		}
		for _, rel := range parent.Relations {
			relations = append(relations, rel.clone())
		}
		if len(m.Indexes) == 0 {
			m.Indexes = append(m.Indexes, parent.Indexes...)
		}
		if len(m.Constraints) == 0 {
			m.Constraints = append(m.Constraints, parent.Constraints...)
		}
	}
	m.Fields = append(fields, m.Fields...)
	m.Relations = append(relations, m.Relations...)

	switch {
	case m.Proxy:
		if len(concrete) != 1 {
			return fmt.Errorf("proxy model must have exactly one concrete parent, got %d", len(concrete))
		}
		if len(m.Fields) > 0 || len(m.Relations) > 0 {
			return fmt.Errorf("proxy model cannot declare fields")
		}
		base := concrete[0]
		m.Fields = append(m.Fields, base.Fields...)
		m.Relations = append(m.Relations, base.Relations...)
		m.TableName = base.TableName
	case len(concrete) > 0:
		// Multi-table inheritance: a parent link per concrete parent, parent columns shared
		var inherited []*Field
		var links []*Relation
		for i, parent := range concrete {
			inherited = append(inherited, parent.Fields...)
			links = append(links, parent.Relations...)
			links = append(links, &Relation{
				Name:        parent.ModelName() + "_ptr",
				Kind:        RelationOneToOne,
				To:          parent.Label(),
				OnDelete:    CascadeCascade,
				PrimaryKey:  i == 0,
				ParentLink:  true,
				AutoCreated: true,
			})
		}
		m.Fields = append(inherited, m.Fields...)
		m.Relations = append(links, m.Relations...)
	}

	if !m.Abstract && !m.Proxy && len(concrete) == 0 {
		if _, ok := m.PrimaryKey(); !ok {
			m.Fields = append([]*Field{autoPrimaryKey()}, m.Fields...)
		}
	}

	if m.VerboseName == "" {
		m.VerboseName = camelCaseToSpaces(m.Name)
	}
	if m.VerboseNamePlural == "" {
		m.VerboseNamePlural = m.VerboseName + "s"
	}
	if m.TableName == "" && !m.Abstract {
		m.TableName = m.App + "_" + m.ModelName()
	}
	for _, f := range m.Fields {
		if f.VerboseName == "" {
			f.VerboseName = strings.ReplaceAll(f.Name, "_", " ")
		}
	}
	for i := range m.Indexes {
		if m.Indexes[i].Name == "" && !m.Abstract {
			m.Indexes[i].Name = indexName(m, m.Indexes[i].Fields)
		}
	}
	if len(m.Managers) == 0 {
		m.Managers = []Manager{{Name: "objects", Kind: "Manager"}}
	}
	if len(m.Methods) == 0 && m.Prototype != nil {
		m.Methods = MethodNames(m.Prototype)
	}
	return nil
}

// linkModel builds the hidden model backing a many-to-many relation without a through model
func (r *Registry) linkModel(m *Model, rel *Relation) *Model {
	target := resolveLabel(m.App, rel.To)
	if rel.To == "self" {
		target = m.LabelLower()
	}
	from, to := m.ModelName(), modelPart(target)
	if from == to {
		from, to = "from_"+from, "to_"+to
	}

	link := NewModel(m.App, m.Name+"_"+rel.Name)
	link.AutoCreated = true
	link.VerboseName = fmt.Sprintf("%s-%s relationship", from, to)
	link.VerboseNamePlural = link.VerboseName + "s"
	link.TableName = m.TableName + "_" + rel.Name
	link.Fields = []*Field{autoPrimaryKey()}
	link.Fields[0].VerboseName = "ID"
	link.Relations = []*Relation{
		{Name: from, Kind: RelationForeignKey, To: m.LabelLower(), OnDelete: CascadeCascade, RelatedName: link.Name + "+", AutoCreated: true},
		{Name: to, Kind: RelationForeignKey, To: target, OnDelete: CascadeCascade, RelatedName: link.Name + "+", AutoCreated: true},
	}
	link.UniqueTogether = [][]string{{from, to}}
	link.Managers = []Manager{{Name: "objects", Kind: "Manager"}}
	return link
}

func autoPrimaryKey() *Field {
	return &Field{
		Name:        "id",
		Type:        Of(TypeBigAuto),
		VerboseName: "ID",
		PrimaryKey:  true,
		Blank:       true,
		ReadOnly:    true,
		AutoCreated: true,
	}
}

// indexName derives "<table[:11]>_<column[:7]>_<digest>_idx" for unnamed indexes
func indexName(m *Model, fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	hashData := []string{m.TableName}
	columns := make([]string, 0, len(fields))
	for _, f := range fields {
		desc := strings.HasPrefix(f, "-")
		col := m.column(strings.TrimPrefix(f, "-"))
		columns = append(columns, col)
		if desc {
			col = "-" + col
		}
		hashData = append(hashData, col)
	}
	hashData = append(hashData, "idx")

	h := md5.New()
	for _, d := range hashData {
		h.Write([]byte(d))
	}
	digest := hex.EncodeToString(h.Sum(nil))[:6]
	return fmt.Sprintf("%s_%s_%s_idx", truncate(m.TableName, 11), truncate(columns[0], 7), digest)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// GetApp retrieves an app by label
func (r *Registry) GetApp(label string) (*App, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	app, ok := r.apps[label]
	return app, ok
}

// GetModel retrieves a model by app label and model name (case-insensitive)
func (r *Registry) GetModel(appLabel, modelName string) (*Model, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.apps[appLabel]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppNotFound, appLabel)
	}
	m, ok := r.models[appLabel+"."+strings.ToLower(modelName)]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrModelNotFound, appLabel, modelName)
	}
	return m, nil
}

// Apps returns all apps in registration order
func (r *Registry) Apps() []*App {
	r.mu.RLock()
	defer r.mu.RUnlock()

	apps := make([]*App, 0, len(r.appOrder))
	for _, label := range r.appOrder {
		apps = append(apps, r.apps[label])
	}
	return apps
}

// Models returns the concrete models in registration order. Abstract and auto-created
// link models are left out.
func (r *Registry) Models() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]*Model, 0, len(r.order))
	for _, m := range r.order {
		if m.Abstract || m.AutoCreated {
			continue
		}
		models = append(models, m)
	}
	return models
}

// AllModels returns every registered model, including abstract and auto-created ones
func (r *Registry) AllModels() []*Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]*Model, len(r.order))
	copy(models, r.order)
	return models
}

// Count returns the number of registered models, including auto-created ones
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.order)
}

// Clear removes all apps and models (useful for testing)
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.apps = make(map[string]*App)
	r.appOrder = make([]string, 0)
	r.models = make(map[string]*Model)
	r.order = make([]*Model, 0)
}

// ResolveTarget returns the model a relation of m points to
func (r *Registry) ResolveTarget(m *Model, rel *Relation) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.resolve(rel.Owner(m), rel.To)
}

// ResolveThrough returns the explicit link model of a many-to-many relation
func (r *Registry) ResolveThrough(m *Model, rel *Relation) (*Model, bool) {
	if rel.Kind != RelationManyToMany {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if rel.Through == "" {
		owner := rel.Owner(m)
		link, ok := r.models[strings.ToLower(owner.App+"."+owner.Name+"_"+rel.Name)]
		return link, ok
	}
	return r.resolve(rel.Owner(m), rel.Through)
}

func (r *Registry) resolve(m *Model, ref string) (*Model, bool) {
	if ref == "self" {
		return m, true
	}
	target, ok := r.models[resolveLabel(m.App, ref)]
	return target, ok
}

// resolveLabel turns "Model" or "app.Model" into the registry key "app.model"
func resolveLabel(app, ref string) string {
	if i := strings.IndexByte(ref, '.'); i >= 0 {
		return ref[:i] + "." + strings.ToLower(ref[i+1:])
	}
	return app + "." + strings.ToLower(ref)
}

func modelPart(label string) string {
	if i := strings.IndexByte(label, '.'); i >= 0 {
		return label[i+1:]
	}
	return label
}
