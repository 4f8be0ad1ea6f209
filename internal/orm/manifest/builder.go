package manifest

import (
	"fmt"
	"strings"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
)

// Builder converts decoded model specs into registry models
type Builder struct {
	errors []error
}

// NewBuilder creates a new model builder
func NewBuilder() *Builder {
	return &Builder{
		errors: make([]error, 0),
	}
}

// Build converts a ModelSpec of the given app into a Model. All field and relation errors
// are collected before failing.
func (b *Builder) Build(app string, spec ModelSpec) (*schema.Model, error) {
	b.errors = make([]error, 0)

	model := schema.NewModel(app, spec.Name)
	model.Documentation = spec.Documentation
	model.VerboseName = spec.VerboseName
	model.VerboseNamePlural = spec.VerboseNamePlural
	model.TableName = spec.DBTable
	model.Abstract = spec.Abstract
	model.Proxy = spec.Proxy
	model.Unmanaged = spec.Managed != nil && !*spec.Managed
	model.Parents = spec.Parents
	model.UniqueTogether = spec.UniqueTogether
	model.Ordering = spec.Ordering
	model.Methods = spec.Methods

	for _, fieldSpec := range spec.Fields {
		field, err := b.buildField(fieldSpec)
		if err != nil {
			b.errors = append(b.errors, err)
			continue
		}
		model.Fields = append(model.Fields, field)
	}

	for _, relSpec := range spec.Relations {
		rel, err := b.buildRelation(relSpec)
		if err != nil {
			b.errors = append(b.errors, err)
			continue
		}
		model.Relations = append(model.Relations, rel)
	}

	for _, idx := range spec.Indexes {
		model.Indexes = append(model.Indexes, schema.Index{Name: idx.Name, Fields: idx.Fields})
	}

	for _, c := range spec.Constraints {
		constraint, err := b.buildConstraint(c)
		if err != nil {
			b.errors = append(b.errors, err)
			continue
		}
		model.Constraints = append(model.Constraints, constraint)
	}

	for _, mgr := range spec.Managers {
		class := mgr.Class
		if class == "" {
			class = "Manager"
		}
		model.Managers = append(model.Managers, schema.Manager{Name: mgr.Name, Kind: class})
	}

	if len(b.errors) > 0 {
		var errMsgs []string
		for _, err := range b.errors {
			errMsgs = append(errMsgs, err.Error())
		}
		return nil, fmt.Errorf("model %s.%s: building failed with %d errors:\n%s",
			app, spec.Name, len(b.errors), strings.Join(errMsgs, "\n"))
	}

	return model, nil
}

// buildField converts a FieldSpec to a Field
func (b *Builder) buildField(spec FieldSpec) (*schema.Field, error) {
	typeSpec, err := b.buildTypeSpec(spec)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", spec.Name, err)
	}

	field := &schema.Field{
		Name:        spec.Name,
		Type:        typeSpec,
		VerboseName: spec.VerboseName,
		HelpText:    spec.HelpText,
		PrimaryKey:  spec.PrimaryKey,
		Unique:      spec.Unique,
		Blank:       spec.Blank,
		DBIndex:     spec.DBIndex,
		ReadOnly:    spec.Editable != nil && !*spec.Editable,
	}

	hasDefault := spec.Default.Kind != 0
	switch {
	case spec.DefaultFunc != "" && hasDefault:
		return nil, fmt.Errorf("field %s: default and default_func are mutually exclusive", spec.Name)
	case spec.DefaultFunc != "":
		field.Default = schema.ComputedDefault(spec.DefaultFunc)
	case hasDefault:
		var value interface{}
		if err := spec.Default.Decode(&value); err != nil {
			return nil, fmt.Errorf("field %s default: %w", spec.Name, err)
		}
		field.Default = schema.StaticDefault(value)
	}

	for _, c := range spec.Choices {
		field.Choices = append(field.Choices, schema.Choice{Value: c.Value, Label: c.Label})
	}

	return field, nil
}

// buildTypeSpec converts the type name and its parameters to a TypeSpec
func (b *Builder) buildTypeSpec(spec FieldSpec) (*schema.TypeSpec, error) {
	if spec.Type == "" {
		return nil, fmt.Errorf("missing type")
	}
	base, err := schema.ParsePrimitiveType(spec.Type)
	if err != nil {
		return nil, err
	}

	typeSpec := schema.Of(base)
	typeSpec.Nullable = spec.Null

	if spec.MaxLength != 0 {
		typeSpec = typeSpec.WithLength(spec.MaxLength)
	}
	if base == schema.TypeDecimal {
		if spec.MaxDigits <= 0 || spec.DecimalPlaces < 0 || spec.DecimalPlaces > spec.MaxDigits {
			return nil, fmt.Errorf("decimal requires max_digits >= decimal_places")
		}
		precision, scale := spec.MaxDigits, spec.DecimalPlaces
		typeSpec.Precision = &precision
		typeSpec.Scale = &scale
	}

	return typeSpec, nil
}

// buildRelation converts a RelationSpec to a Relation
func (b *Builder) buildRelation(spec RelationSpec) (*schema.Relation, error) {
	kind, err := schema.ParseRelationKind(spec.Kind)
	if err != nil {
		return nil, fmt.Errorf("relation %s: %w", spec.Name, err)
	}

	rel := &schema.Relation{
		Name:        spec.Name,
		Kind:        kind,
		To:          spec.To,
		Null:        spec.Null,
		Blank:       spec.Blank,
		RelatedName: spec.RelatedName,
		Through:     spec.Through,
		PrimaryKey:  spec.PrimaryKey,
	}

	if spec.OnDelete != "" {
		if kind == schema.RelationManyToMany {
			return nil, fmt.Errorf("relation %s: many-to-many relations have no on_delete", spec.Name)
		}
		action, err := schema.ParseCascadeAction(spec.OnDelete)
		if err != nil {
			return nil, fmt.Errorf("relation %s: %w", spec.Name, err)
		}
		rel.OnDelete = action
	} else if kind != schema.RelationManyToMany {
		rel.OnDelete = schema.CascadeCascade
	}

	return rel, nil
}

// buildConstraint converts a ConstraintSpec to a Constraint
func (b *Builder) buildConstraint(spec ConstraintSpec) (schema.Constraint, error) {
	kind := schema.ConstraintCheck
	if spec.Type != "" {
		var err error
		kind, err = schema.ParseConstraintKind(spec.Type)
		if err != nil {
			return schema.Constraint{}, fmt.Errorf("constraint %s: %w", spec.Name, err)
		}
	} else if len(spec.Fields) > 0 {
		kind = schema.ConstraintUnique
	}

	return schema.Constraint{
		Name:      spec.Name,
		Kind:      kind,
		Fields:    spec.Fields,
		Condition: spec.Condition,
	}, nil
}
