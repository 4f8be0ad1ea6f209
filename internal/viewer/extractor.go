package viewer

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
)

const complexDefault = "<complex default>"

// Extractor builds model descriptors from a registry. It never fails: metadata that is
// missing or cannot be rendered is left out of the descriptor.
type Extractor struct {
	registry *schema.Registry
}

// NewExtractor creates an extractor reading from registry
func NewExtractor(registry *schema.Registry) *Extractor {
	return &Extractor{registry: registry}
}

// ModelInfo builds the descriptor of one model
func (e *Extractor) ModelInfo(m *schema.Model) *ModelInfo {
	info := &ModelInfo{
		AppLabel:          m.App,
		ModelName:         m.ModelName(),
		VerboseName:       m.VerboseName,
		VerboseNamePlural: m.VerboseNamePlural,
		DBTable:           m.TableName,
		Abstract:          m.Abstract,
		Proxy:             m.Proxy,
		Managed:           m.Managed(),
		AppConfig:         m.App,
		Fields:            make([]FieldInfo, 0, len(m.Fields)),
		Relationships:     e.relationships(m),
	}
	if app, ok := e.registry.GetApp(m.App); ok {
		info.AppConfig = app.VerboseName
	}

	for _, parent := range m.ParentModels() {
		if parent.Abstract {
			continue
		}
		info.Parents = append(info.Parents, ModelRef{App: parent.App, Model: parent.ModelName()})
	}

	for _, f := range m.Fields {
		info.Fields = append(info.Fields, FieldDescriptor(f))
	}

	for _, idx := range m.Indexes {
		info.Indexes = append(info.Indexes, IndexInfo{Name: idx.Name, Fields: append([]string{}, idx.Fields...)})
	}
	for _, c := range m.Constraints {
		info.Constraints = append(info.Constraints, ConstraintInfo{Name: c.Name, Type: c.Kind.String()})
	}
	for _, set := range m.UniqueTogether {
		info.UniqueTogether = append(info.UniqueTogether, append([]string{}, set...))
	}

	return info
}

// ModelDetail builds the descriptor of one model with its methods and managers
func (e *Extractor) ModelDetail(m *schema.Model) *ModelDetail {
	detail := &ModelDetail{ModelInfo: *e.ModelInfo(m)}
	for _, name := range m.Methods {
		detail.Methods = append(detail.Methods, MethodInfo{Name: name})
	}
	for _, mgr := range m.Managers {
		detail.Managers = append(detail.Managers, ManagerInfo{Name: mgr.Name, Class: mgr.Kind})
	}
	return detail
}

// FieldDescriptor builds the descriptor of a concrete field
func FieldDescriptor(f *schema.Field) FieldInfo {
	info := FieldInfo{
		Name:        f.Name,
		Type:        "unknown",
		VerboseName: f.VerboseName,
		PrimaryKey:  f.PrimaryKey,
		Unique:      f.Unique || f.PrimaryKey,
		Null:        f.Null(),
		Blank:       f.Blank,
		DBIndex:     f.DBIndex,
		Editable:    f.Editable(),
	}
	if f.Type != nil {
		info.Type = f.Type.BaseType.String()
	}
	if help, ok := f.Help(); ok {
		info.HelpText = help
	}
	if value, ok := renderDefault(f.Default); ok {
		info.Default = &value
	}
	for _, c := range f.Choices {
		info.Choices = append(info.Choices, ChoiceInfo{Value: choiceValue(c.Value), Label: c.Label})
	}
	if n, ok := f.MaxLength(); ok {
		info.MaxLength = &n
	}
	return info
}

// renderDefault stringifies a default. Computed defaults render as a placeholder naming
// the function; a nil static value counts as no default.
func renderDefault(d schema.Default) (string, bool) {
	switch d.Kind() {
	case schema.DefaultComputed:
		name, _ := d.Func()
		return fmt.Sprintf("<callable: %s>", name), true
	case schema.DefaultStatic:
		value, _ := d.Value()
		if value == nil {
			return "", false
		}
		return stringify(value), true
	default:
		return "", false
	}
}

// stringify renders a static value, falling back to a placeholder for values that cannot
// be rendered or whose String/Error method panics
func stringify(value interface{}) (s string) {
	defer func() {
		if r := recover(); r != nil {
			s = complexDefault
		}
	}()

	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case error:
		return v.Error()
	}

	switch reflect.ValueOf(value).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return complexDefault
	}
	return fmt.Sprint(value)
}

// choiceValue keeps scalar choice values as they are so they encode as JSON numbers, strings
// or booleans; anything else is stringified. NaN and infinities have no JSON form.
func choiceValue(value interface{}) interface{} {
	if value == nil {
		return nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return value
	case reflect.Float32, reflect.Float64:
		if f := rv.Float(); math.IsNaN(f) || math.IsInf(f, 0) {
			return stringify(value)
		}
		return value
	}
	return stringify(value)
}

// relationships lists reverse relations first, then forward relations with many-to-many
// relations last
func (e *Extractor) relationships(m *schema.Model) []RelationInfo {
	rels := make([]RelationInfo, 0)

	for _, rev := range e.registry.ReverseRelations(m) {
		rels = append(rels, RelationInfo{
			Name:        rev.Name,
			Type:        rev.Kind.String(),
			Direction:   "reverse",
			TargetApp:   rev.Source.App,
			TargetModel: rev.Source.ModelName(),
			FieldName:   rev.Field.Name,
		})
	}

	var manyToMany []RelationInfo
	for _, rel := range m.Relations {
		info := e.forward(m, rel)
		if rel.Kind == schema.RelationManyToMany {
			manyToMany = append(manyToMany, info)
			continue
		}
		rels = append(rels, info)
	}
	return append(rels, manyToMany...)
}

func (e *Extractor) forward(m *schema.Model, rel *schema.Relation) RelationInfo {
	null := rel.Null
	info := RelationInfo{
		Name:        rel.Name,
		Type:        rel.Kind.String(),
		Direction:   "forward",
		RelatedName: rel.RelatedName,
		Null:        &null,
	}
	if info.RelatedName == "" {
		info.RelatedName = rel.Owner(m).ModelName() + "_set"
	}

	if target, ok := e.registry.ResolveTarget(m, rel); ok {
		info.TargetApp, info.TargetModel = target.App, target.ModelName()
	} else {
		info.TargetApp, info.TargetModel = splitReference(rel.Owner(m).App, rel.To)
	}

	if rel.Kind == schema.RelationManyToMany {
		if through, ok := e.registry.ResolveThrough(m, rel); ok && !through.AutoCreated {
			info.Through = &ModelRef{App: through.App, Model: through.ModelName()}
		}
		return info
	}

	info.OnDelete = rel.OnDelete.String()
	return info
}

// splitReference turns an unresolved "Model" or "app.Model" reference into app and model name
func splitReference(app, ref string) (string, string) {
	if label, name, ok := strings.Cut(ref, "."); ok {
		return label, strings.ToLower(name)
	}
	return app, strings.ToLower(ref)
}
