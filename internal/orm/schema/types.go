// Package schema is the model registry of the framework. It defines apps, models, fields,
// relations, indexes and constraints, and keeps them in a thread-safe Registry that
// tooling can walk at runtime.
package schema

import (
	"fmt"
	"reflect"
	"runtime"
	"strings"
)

// PrimitiveType represents the built-in column types a field can declare
type PrimitiveType int

const (
	// Text types
	TypeString PrimitiveType = iota
	TypeText
	TypeSlug

	// Numeric types
	TypeInt
	TypeSmallInt
	TypeBigInt
	TypePositiveInt
	TypePositiveSmallInt
	TypeFloat
	TypeDecimal

	// Auto-incrementing primary keys
	TypeAuto
	TypeBigAuto

	// Boolean
	TypeBool

	// Time types
	TypeTimestamp
	TypeDate
	TypeTime
	TypeDuration

	// Unique identifiers
	TypeUUID
	TypeULID

	// Validated types
	TypeEmail
	TypeURL
	TypeIP

	// Structured and binary types
	TypeJSON
	TypeBinary

	// Enum
	TypeEnum
)

var primitiveNames = map[PrimitiveType]string{
	TypeString:           "string",
	TypeText:             "text",
	TypeSlug:             "slug",
	TypeInt:              "int",
	TypeSmallInt:         "smallint",
	TypeBigInt:           "bigint",
	TypePositiveInt:      "positive_int",
	TypePositiveSmallInt: "positive_smallint",
	TypeFloat:            "float",
	TypeDecimal:          "decimal",
	TypeAuto:             "auto",
	TypeBigAuto:          "bigauto",
	TypeBool:             "bool",
	TypeTimestamp:        "timestamp",
	TypeDate:             "date",
	TypeTime:             "time",
	TypeDuration:         "duration",
	TypeUUID:             "uuid",
	TypeULID:             "ulid",
	TypeEmail:            "email",
	TypeURL:              "url",
	TypeIP:               "ip",
	TypeJSON:             "json",
	TypeBinary:           "binary",
	TypeEnum:             "enum",
}

// String returns the string representation of the primitive type
func (p PrimitiveType) String() string {
	if name, ok := primitiveNames[p]; ok {
		return name
	}
	return "unknown"
}

// ParsePrimitiveType converts a string to a PrimitiveType
func ParsePrimitiveType(s string) (PrimitiveType, error) {
	for t, name := range primitiveNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown primitive type: %s", s)
}

// TypeSpec represents a column type with nullability and type parameters
type TypeSpec struct {
	BaseType PrimitiveType
	Nullable bool

	// Type parameters (e.g., string(50), decimal(10,2))
	Length    *int
	Precision *int
	Scale     *int
}

// Of returns a non-null TypeSpec for the given primitive type
func Of(t PrimitiveType) *TypeSpec {
	return &TypeSpec{BaseType: t}
}

// String returns a string TypeSpec limited to maxLength characters
func String(maxLength int) *TypeSpec {
	return &TypeSpec{BaseType: TypeString, Length: &maxLength}
}

// Decimal returns a decimal TypeSpec with the given precision and scale
func Decimal(precision, scale int) *TypeSpec {
	return &TypeSpec{BaseType: TypeDecimal, Precision: &precision, Scale: &scale}
}

// WithLength returns a copy of the spec with a maximum length
func (t *TypeSpec) WithLength(n int) *TypeSpec {
	c := *t
	c.Length = &n
	return &c
}

// OrNull returns a nullable copy of the spec
func (t *TypeSpec) OrNull() *TypeSpec {
	c := *t
	c.Nullable = true
	return &c
}

// String returns a string representation of the TypeSpec
func (t *TypeSpec) String() string {
	s := t.BaseType.String()
	if t.Length != nil {
		s = fmt.Sprintf("%s(%d)", s, *t.Length)
	}
	if t.Precision != nil && t.Scale != nil {
		s = fmt.Sprintf("%s(%d,%d)", s, *t.Precision, *t.Scale)
	}
	if t.Nullable {
		return s + "?"
	}
	return s + "!"
}

// IsAuto returns true for auto-incrementing key types
func (t *TypeSpec) IsAuto() bool {
	return t.BaseType == TypeAuto || t.BaseType == TypeBigAuto
}

// DefaultKind tags the variant held by a Default
type DefaultKind int

const (
	// DefaultNone means the field declares no default
	DefaultNone DefaultKind = iota
	// DefaultStatic holds a literal value
	DefaultStatic
	// DefaultComputed names a function evaluated on insert; it is never called here
	DefaultComputed
)

// Default is the default value of a field. The zero value means "no default".
type Default struct {
	kind  DefaultKind
	value interface{}
	fn    string
}

// StaticDefault returns a literal default. Passing a func yields a computed default.
func StaticDefault(v interface{}) Default {
	if v != nil && reflect.TypeOf(v).Kind() == reflect.Func {
		return FuncDefault(v)
	}
	return Default{kind: DefaultStatic, value: v}
}

// ComputedDefault returns a default computed by the named function
func ComputedDefault(name string) Default {
	return Default{kind: DefaultComputed, fn: name}
}

// FuncDefault returns a computed default named after fn. fn is not stored or invoked.
func FuncDefault(fn interface{}) Default {
	v := reflect.ValueOf(fn)
	if v.Kind() != reflect.Func || v.IsNil() {
		return Default{}
	}
	name := "func"
	if f := runtime.FuncForPC(v.Pointer()); f != nil {
		name = f.Name()
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
	}
	return ComputedDefault(name)
}

// Kind returns the variant tag
func (d Default) Kind() DefaultKind { return d.kind }

// IsSet returns true if a default was declared
func (d Default) IsSet() bool { return d.kind != DefaultNone }

// Value returns the literal value of a static default
func (d Default) Value() (interface{}, bool) {
	return d.value, d.kind == DefaultStatic
}

// Func returns the function name of a computed default
func (d Default) Func() (string, bool) {
	return d.fn, d.kind == DefaultComputed
}

// Choice is one allowed value of a field
type Choice struct {
	Value interface{}
	Label string
}

// Field represents a concrete (non-relation) column of a model
type Field struct {
	Name        string
	Type        *TypeSpec
	VerboseName string
	HelpText    string

	PrimaryKey bool
	Unique     bool
	Blank      bool
	DBIndex    bool
	// ReadOnly marks the field as not editable in forms and admin
	ReadOnly bool

	Default Default
	Choices []Choice

	// AutoCreated is set for fields the registry adds (auto primary keys)
	AutoCreated bool
}

// Null reports whether the column accepts NULL
func (f *Field) Null() bool {
	return f.Type != nil && f.Type.Nullable
}

// Editable reports whether the field is editable
func (f *Field) Editable() bool {
	return !f.ReadOnly
}

// MaxLength returns the declared maximum length, if any
func (f *Field) MaxLength() (int, bool) {
	if f.Type == nil || f.Type.Length == nil || *f.Type.Length <= 0 {
		return 0, false
	}
	return *f.Type.Length, true
}

// Help returns the help text, if any
func (f *Field) Help() (string, bool) {
	return f.HelpText, f.HelpText != ""
}

func (f *Field) clone() *Field {
	c := *f
	if f.Type != nil {
		t := *f.Type
		c.Type = &t
	}
	c.Choices = append([]Choice(nil), f.Choices...)
	return &c
}

// RelationKind represents the cardinality of a relation
type RelationKind int

const (
	RelationForeignKey RelationKind = iota
	RelationOneToOne
	RelationManyToMany
)

// String returns the string representation of the relation kind
func (r RelationKind) String() string {
	switch r {
	case RelationForeignKey:
		return "foreign_key"
	case RelationOneToOne:
		return "one_to_one"
	case RelationManyToMany:
		return "many_to_many"
	default:
		return "unknown"
	}
}

// ParseRelationKind converts a string to a RelationKind
func ParseRelationKind(s string) (RelationKind, error) {
	switch s {
	case "foreign_key", "fk":
		return RelationForeignKey, nil
	case "one_to_one":
		return RelationOneToOne, nil
	case "many_to_many", "m2m":
		return RelationManyToMany, nil
	default:
		return 0, fmt.Errorf("unknown relation kind: %s", s)
	}
}

// CascadeAction represents what happens to referencing rows on delete
type CascadeAction int

const (
	CascadeRestrict CascadeAction = iota
	CascadeCascade
	CascadeSetNull
	CascadeNoAction
	CascadeProtect
	CascadeSetDefault
	CascadeDoNothing
)

// String returns the string representation of the cascade action
func (c CascadeAction) String() string {
	switch c {
	case CascadeRestrict:
		return "restrict"
	case CascadeCascade:
		return "cascade"
	case CascadeSetNull:
		return "set_null"
	case CascadeNoAction:
		return "no_action"
	case CascadeProtect:
		return "protect"
	case CascadeSetDefault:
		return "set_default"
	case CascadeDoNothing:
		return "do_nothing"
	default:
		return "unknown"
	}
}

// ParseCascadeAction converts a string to a CascadeAction
func ParseCascadeAction(s string) (CascadeAction, error) {
	switch s {
	case "restrict":
		return CascadeRestrict, nil
	case "cascade":
		return CascadeCascade, nil
	case "set_null":
		return CascadeSetNull, nil
	case "no_action":
		return CascadeNoAction, nil
	case "protect":
		return CascadeProtect, nil
	case "set_default":
		return CascadeSetDefault, nil
	case "do_nothing":
		return CascadeDoNothing, nil
	default:
		return 0, fmt.Errorf("unknown cascade action: %s", s)
	}
}

// Relation is a forward relation declared on a model
type Relation struct {
	Name string
	Kind RelationKind
	// To references the target model: "Model", "app.Model" or "self"
	To string

	OnDelete CascadeAction
	Null     bool
	Blank    bool

	// RelatedName is the reverse accessor on the target; a trailing "+" hides it
	RelatedName string

	// Through names an explicit link model for many-to-many relations
	Through string

	PrimaryKey  bool
	ParentLink  bool
	AutoCreated bool

	// origin is the model that declares the relation; inherited relations keep the parent
	origin *Model
}

// Owner returns the declaring model, or m when the relation is not registered yet
func (r *Relation) Owner(m *Model) *Model {
	if r.origin != nil {
		return r.origin
	}
	return m
}

// Hidden reports whether the reverse side of the relation is hidden
func (r *Relation) Hidden() bool {
	return strings.HasSuffix(r.RelatedName, "+")
}

func (r *Relation) clone() *Relation {
	c := *r
	c.origin = nil
	return &c
}

// Index is a database index over an ordered list of fields
type Index struct {
	Name   string
	Fields []string
}

// ConstraintKind represents the type of a model-level constraint
type ConstraintKind int

const (
	ConstraintCheck ConstraintKind = iota
	ConstraintUnique
)

// String returns the string representation of the constraint kind
func (c ConstraintKind) String() string {
	switch c {
	case ConstraintCheck:
		return "check"
	case ConstraintUnique:
		return "unique"
	default:
		return "unknown"
	}
}

// ParseConstraintKind converts a string to a ConstraintKind
func ParseConstraintKind(s string) (ConstraintKind, error) {
	switch s {
	case "check":
		return ConstraintCheck, nil
	case "unique":
		return ConstraintUnique, nil
	default:
		return 0, fmt.Errorf("unknown constraint kind: %s", s)
	}
}

// Constraint is a named model-level constraint
type Constraint struct {
	Name      string
	Kind      ConstraintKind
	Fields    []string // unique constraints
	Condition string   // check constraints
}

// Manager describes a named query manager attached to a model
type Manager struct {
	Name string
	Kind string
}
