package schema

import (
	"strings"
	"unicode"
)

// App is a namespace grouping a set of models
type App struct {
	Label       string
	VerboseName string
}

// NewApp creates an App with the default verbose name
func NewApp(label string) *App {
	return &App{Label: label, VerboseName: titleCase(label)}
}

// Model is the schema of one registered model. The registry takes ownership of a Model
// on registration and fills in defaults; callers must not modify it afterwards.
type Model struct {
	App           string
	Name          string
	Documentation string

	VerboseName       string
	VerboseNamePlural string
	TableName         string

	Abstract  bool
	Proxy     bool
	Unmanaged bool

	// Parents references parent models ("Model" or "app.Model")
	Parents []string

	Fields         []*Field
	Relations      []*Relation
	Indexes        []Index
	Constraints    []Constraint
	UniqueTogether [][]string
	Ordering       []string

	Managers []Manager
	Methods  []string

	// Prototype is an optional Go value whose method set lists the model methods
	Prototype interface{}

	// AutoCreated is set for link models the registry creates for many-to-many relations
	AutoCreated bool

	parents []*Model
}

// NewModel creates an empty model in the given app
func NewModel(app, name string) *Model {
	return &Model{
		App:       app,
		Name:      name,
		Fields:    make([]*Field, 0),
		Relations: make([]*Relation, 0),
	}
}

// ModelName returns the lower-cased model name
func (m *Model) ModelName() string {
	return strings.ToLower(m.Name)
}

// Label returns "app.Name"
func (m *Model) Label() string {
	return m.App + "." + m.Name
}

// LabelLower returns "app.modelname", the registry key of the model
func (m *Model) LabelLower() string {
	return m.App + "." + m.ModelName()
}

// Managed reports whether the framework manages the model's table
func (m *Model) Managed() bool {
	return !m.Unmanaged
}

// ParentModels returns the resolved parents in declaration order
func (m *Model) ParentModels() []*Model {
	return m.parents
}

// Field returns the concrete field with the given name
func (m *Model) Field(name string) (*Field, bool) {
	for _, f := range m.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return nil, false
}

// Relation returns the forward relation with the given name
func (m *Model) Relation(name string) (*Relation, bool) {
	for _, r := range m.Relations {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// HasField returns true if the model has a field or forward relation with the given name
func (m *Model) HasField(name string) bool {
	if _, ok := m.Field(name); ok {
		return true
	}
	_, ok := m.Relation(name)
	return ok
}

// PrimaryKey returns the name of the primary key. A primary key relation wins over
// fields, so multi-table children report their parent link.
func (m *Model) PrimaryKey() (string, bool) {
	for _, r := range m.Relations {
		if r.PrimaryKey {
			return r.Name, true
		}
	}
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f.Name, true
		}
	}
	return "", false
}

// column returns the database column for a field or relation name
func (m *Model) column(name string) string {
	if r, ok := m.Relation(name); ok && r.Kind != RelationManyToMany {
		return name + "_id"
	}
	return name
}

// camelCaseToSpaces turns "BookAuthor" into "book author" and "HTTPServer" into "http server"
func camelCaseToSpaces(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevLower := unicode.IsLower(runes[i-1])
			nextLower := i+1 < len(runes) && !unicode.IsUpper(runes[i+1])
			if prevLower || nextLower {
				b.WriteRune(' ')
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.TrimSpace(b.String())
}

// titleCase upper-cases the first letter of every letter run: "sample_app" -> "Sample_App"
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		prevLetter = false
		b.WriteRune(r)
	}
	return b.String()
}
