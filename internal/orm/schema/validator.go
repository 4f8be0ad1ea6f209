package schema

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s can name an app, model or field
func ValidIdentifier(s string) bool {
	return identifierRe.MatchString(s)
}

// ValidationError represents a schema validation error with context
type ValidationError struct {
	Model   string
	Field   string
	Message string
	Hint    string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	var b strings.Builder

	if e.Model != "" {
		b.WriteString(e.Model)
		if e.Field != "" {
			b.WriteString(".")
			b.WriteString(e.Field)
		}
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Hint != "" {
		b.WriteString("\n  hint: ")
		b.WriteString(e.Hint)
	}

	return b.String()
}

// SchemaValidator validates model declarations at registration time
type SchemaValidator struct {
	errors []*ValidationError
}

// NewSchemaValidator creates a new schema validator
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{
		errors: make([]*ValidationError, 0),
	}
}

// ValidateStructural validates a single declaration without looking at other models
func (v *SchemaValidator) ValidateStructural(m *Model) error {
	v.errors = make([]*ValidationError, 0)

	if !ValidIdentifier(m.Name) {
		v.addError(m, "", fmt.Sprintf("invalid model name %q", m.Name), "")
	}
	if m.Abstract && m.Proxy {
		v.addError(m, "", "a model cannot be both abstract and proxy", "")
	}

	v.validateFields(m)
	v.validateRelations(m)
	v.validateIndexes(m)

	return v.result()
}

// ValidateNames checks that field and relation names are unique on the prepared model
func (v *SchemaValidator) ValidateNames(m *Model) error {
	v.errors = make([]*ValidationError, 0)

	seen := make(map[string]bool, len(m.Fields)+len(m.Relations))
	for _, name := range localNames(m) {
		if seen[name] {
			v.addError(m, name, "field name clashes with another field", "rename one of the fields")
		}
		seen[name] = true
	}

	return v.result()
}

func (v *SchemaValidator) validateFields(m *Model) {
	for _, f := range m.Fields {
		if f == nil {
			v.addError(m, "", "nil field", "")
			continue
		}
		if !ValidIdentifier(f.Name) || strings.Contains(f.Name, "__") || strings.HasSuffix(f.Name, "_") {
			v.addError(m, f.Name, fmt.Sprintf("invalid field name %q", f.Name),
				"field names cannot contain '__' or end with '_'")
		}
		if f.Type == nil {
			v.addError(m, f.Name, "field has no type", "")
			continue
		}
		if f.Type.Length != nil && *f.Type.Length <= 0 {
			v.addError(m, f.Name, "max length must be a positive integer", "")
		}
		if f.Type.BaseType == TypeEnum && len(f.Choices) == 0 {
			v.addError(m, f.Name, "enum field requires choices", "")
		}
		if f.Type.IsAuto() && !f.PrimaryKey {
			v.addError(m, f.Name, "auto fields must be primary keys", "")
		}
	}
}

func (v *SchemaValidator) validateRelations(m *Model) {
	for _, rel := range m.Relations {
		if rel == nil {
			v.addError(m, "", "nil relation", "")
			continue
		}
		if !ValidIdentifier(rel.Name) || strings.Contains(rel.Name, "__") {
			v.addError(m, rel.Name, fmt.Sprintf("invalid relation name %q", rel.Name), "")
		}
		if rel.To == "" {
			v.addError(m, rel.Name, "relation has no target", "")
		}
		switch rel.Kind {
		case RelationManyToMany:
			if rel.PrimaryKey {
				v.addError(m, rel.Name, "many-to-many relations cannot be primary keys", "")
			}
		default:
			if rel.Through != "" {
				v.addError(m, rel.Name, "only many-to-many relations can declare a through model", "")
			}
			if rel.OnDelete == CascadeSetNull && !rel.Null {
				v.addError(m, rel.Name, "on_delete set_null requires a nullable relation",
					"set null on the relation or change on_delete")
			}
		}
	}
}

func (v *SchemaValidator) validateIndexes(m *Model) {
	for i, idx := range m.Indexes {
		if len(idx.Fields) == 0 {
			v.addError(m, "", fmt.Sprintf("index %d has no fields", i), "")
		}
	}
	for _, c := range m.Constraints {
		if c.Name == "" {
			v.addError(m, "", "constraints must be named", "")
		}
		if c.Kind == ConstraintUnique && len(c.Fields) == 0 {
			v.addError(m, "", fmt.Sprintf("unique constraint %s has no fields", c.Name), "")
		}
	}
}

func (v *SchemaValidator) addError(m *Model, field, message, hint string) {
	v.errors = append(v.errors, &ValidationError{
		Model:   m.Label(),
		Field:   field,
		Message: message,
		Hint:    hint,
	})
}

func (v *SchemaValidator) result() error {
	if len(v.errors) == 0 {
		return nil
	}
	var errMsgs []string
	for _, err := range v.errors {
		errMsgs = append(errMsgs, err.Error())
	}
	return fmt.Errorf("schema validation failed with %d errors:\n%s",
		len(v.errors), strings.Join(errMsgs, "\n"))
}

func localNames(m *Model) []string {
	names := make([]string, 0, len(m.Fields)+len(m.Relations))
	for _, f := range m.Fields {
		names = append(names, f.Name)
	}
	for _, rel := range m.Relations {
		names = append(names, rel.Name)
	}
	return names
}

// IssueLevel is the severity of a registry check issue
type IssueLevel int

const (
	LevelWarning IssueLevel = iota
	LevelError
)

// String returns the string representation of the level
func (l IssueLevel) String() string {
	if l == LevelError {
		return "error"
	}
	return "warning"
}

// Issue is a problem found by Check
type Issue struct {
	Level   IssueLevel
	Code    string
	Model   string
	Field   string
	Message string
}

// String formats the issue as "app.Model.field: [code] message"
func (i *Issue) String() string {
	target := i.Model
	if i.Field != "" {
		target += "." + i.Field
	}
	return fmt.Sprintf("%s: (%s) %s", target, i.Code, i.Message)
}

// HasErrors reports whether any issue is an error
func HasErrors(issues []*Issue) bool {
	for _, i := range issues {
		if i.Level == LevelError {
			return true
		}
	}
	return false
}

// Check runs the cross-model checks over every registered model: relation targets must
// resolve and every name in a model's combined field, relation and reverse relation set
// must be unique.
func (r *Registry) Check() []*Issue {
	issues := make([]*Issue, 0)

	for _, m := range r.AllModels() {
		if m.Abstract {
			continue
		}
		issues = append(issues, r.checkRelations(m)...)
		issues = append(issues, r.checkNames(m)...)
		issues = append(issues, checkIndexes(m)...)
		issues = append(issues, checkOrdering(m)...)
	}

	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Level > issues[b].Level
	})
	return issues
}

func (r *Registry) checkRelations(m *Model) []*Issue {
	var issues []*Issue
	for _, rel := range m.Relations {
		if rel.origin != m {
			continue
		}
		if _, ok := r.ResolveTarget(m, rel); !ok {
			issues = append(issues, &Issue{
				Level:   LevelError,
				Code:    "relations.E300",
				Model:   m.Label(),
				Field:   rel.Name,
				Message: fmt.Sprintf("relation target %s is not registered", rel.To),
			})
		}
		if rel.Kind == RelationManyToMany {
			if _, ok := r.ResolveThrough(m, rel); !ok {
				issues = append(issues, &Issue{
					Level:   LevelError,
					Code:    "relations.E331",
					Model:   m.Label(),
					Field:   rel.Name,
					Message: fmt.Sprintf("through model %s is not registered", rel.Through),
				})
			}
			if rel.Null {
				issues = append(issues, &Issue{
					Level:   LevelWarning,
					Code:    "relations.W340",
					Model:   m.Label(),
					Field:   rel.Name,
					Message: "null has no effect on many-to-many relations",
				})
			}
		}
	}
	return issues
}

func (r *Registry) checkNames(m *Model) []*Issue {
	var issues []*Issue
	seen := make(map[string]bool)
	for _, name := range localNames(m) {
		seen[name] = true
	}
	for _, rev := range r.ReverseRelations(m) {
		if seen[rev.Name] {
			issues = append(issues, &Issue{
				Level: LevelError,
				Code:  "relations.E302",
				Model: m.Label(),
				Field: rev.Name,
				Message: fmt.Sprintf("reverse relation %s from %s.%s clashes with another field",
					rev.Name, rev.Source.Label(), rev.Field.Name),
			})
		}
		seen[rev.Name] = true
	}
	return issues
}

func checkIndexes(m *Model) []*Issue {
	var issues []*Issue
	for _, idx := range m.Indexes {
		for _, name := range idx.Fields {
			if !m.HasField(strings.TrimPrefix(name, "-")) {
				issues = append(issues, &Issue{
					Level:   LevelError,
					Code:    "models.E012",
					Model:   m.Label(),
					Field:   name,
					Message: fmt.Sprintf("index %s refers to the nonexistent field %s", idx.Name, name),
				})
			}
		}
	}
	for _, set := range m.UniqueTogether {
		for _, name := range set {
			if !m.HasField(name) {
				issues = append(issues, &Issue{
					Level:   LevelError,
					Code:    "models.E012",
					Model:   m.Label(),
					Field:   name,
					Message: fmt.Sprintf("unique_together refers to the nonexistent field %s", name),
				})
			}
		}
	}
	return issues
}

// checkOrdering verifies that every ordering entry starts at a field, a relation or "pk".
// Lookups past the first "__" cross into other models and are not followed.
func checkOrdering(m *Model) []*Issue {
	var issues []*Issue
	for _, entry := range m.Ordering {
		if entry == "?" {
			continue
		}
		name, _, _ := strings.Cut(strings.TrimPrefix(entry, "-"), "__")
		if name == "pk" || m.HasField(name) {
			continue
		}
		if base, ok := strings.CutSuffix(name, "_id"); ok {
			if rel, found := m.Relation(base); found && rel.Kind != RelationManyToMany {
				continue
			}
		}
		issues = append(issues, &Issue{
			Level:   LevelError,
			Code:    "models.E015",
			Model:   m.Label(),
			Field:   entry,
			Message: fmt.Sprintf("ordering refers to the nonexistent field %s", entry),
		})
	}
	return issues
}
