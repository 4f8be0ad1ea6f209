package schema

import (
	"testing"
	"time"
)

func TestPrimitiveType(t *testing.T) {
	tests := []struct {
		name string
		typ  PrimitiveType
	}{
		{"string", TypeString},
		{"positive_smallint", TypePositiveSmallInt},
		{"bigauto", TypeBigAuto},
		{"timestamp", TypeTimestamp},
		{"enum", TypeEnum},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.typ.String(); got != tt.name {
				t.Errorf("String() = %s, want %s", got, tt.name)
			}
			parsed, err := ParsePrimitiveType(tt.name)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed != tt.typ {
				t.Errorf("ParsePrimitiveType(%s) = %v, want %v", tt.name, parsed, tt.typ)
			}
		})
	}

	if _, err := ParsePrimitiveType("varchar"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestTypeSpec_String(t *testing.T) {
	tests := []struct {
		spec *TypeSpec
		want string
	}{
		{Of(TypeInt), "int!"},
		{String(100).OrNull(), "string(100)?"},
		{Decimal(10, 2), "decimal(10,2)!"},
		{Of(TypeText).WithLength(500), "text(500)!"},
	}

	for _, tt := range tests {
		if got := tt.spec.String(); got != tt.want {
			t.Errorf("String() = %s, want %s", got, tt.want)
		}
	}
}

func TestTypeSpec_CopiesOnModify(t *testing.T) {
	base := String(10)
	nullable := base.OrNull()

	if base.Nullable {
		t.Error("OrNull modified the receiver")
	}
	if !nullable.Nullable {
		t.Error("OrNull result should be nullable")
	}
}

func TestField_Accessors(t *testing.T) {
	f := &Field{Name: "title", Type: String(200)}
	if n, ok := f.MaxLength(); !ok || n != 200 {
		t.Errorf("MaxLength() = %d, %v", n, ok)
	}
	if _, ok := f.Help(); ok {
		t.Error("empty help text should be absent")
	}
	if f.Null() {
		t.Error("field should not be null")
	}

	f = &Field{Name: "count", Type: Of(TypeInt).OrNull(), HelpText: "how many", ReadOnly: true}
	if _, ok := f.MaxLength(); ok {
		t.Error("int field should have no max length")
	}
	if h, ok := f.Help(); !ok || h != "how many" {
		t.Errorf("Help() = %q, %v", h, ok)
	}
	if !f.Null() || f.Editable() {
		t.Error("expected nullable, read-only field")
	}
}

func nowish() time.Time { return time.Time{} }

func TestDefault(t *testing.T) {
	t.Run("zero value", func(t *testing.T) {
		var d Default
		if d.IsSet() || d.Kind() != DefaultNone {
			t.Error("zero Default should be unset")
		}
	})

	t.Run("static", func(t *testing.T) {
		d := StaticDefault("draft")
		v, ok := d.Value()
		if !ok || v != "draft" {
			t.Errorf("Value() = %v, %v", v, ok)
		}
	})

	t.Run("static nil", func(t *testing.T) {
		d := StaticDefault(nil)
		if d.Kind() != DefaultStatic {
			t.Errorf("Kind() = %v, want static", d.Kind())
		}
	})

	t.Run("function", func(t *testing.T) {
		d := StaticDefault(nowish)
		name, ok := d.Func()
		if !ok {
			t.Fatal("expected computed default")
		}
		if name != "nowish" {
			t.Errorf("Func() = %s, want nowish", name)
		}
	})

	t.Run("named", func(t *testing.T) {
		name, ok := ComputedDefault("uuid4").Func()
		if !ok || name != "uuid4" {
			t.Errorf("Func() = %s, %v", name, ok)
		}
	})
}

func TestParseRelationKind(t *testing.T) {
	tests := map[string]RelationKind{
		"foreign_key":  RelationForeignKey,
		"fk":           RelationForeignKey,
		"one_to_one":   RelationOneToOne,
		"many_to_many": RelationManyToMany,
		"m2m":          RelationManyToMany,
	}
	for in, want := range tests {
		got, err := ParseRelationKind(in)
		if err != nil || got != want {
			t.Errorf("ParseRelationKind(%s) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRelationKind("belongs_to"); err == nil {
		t.Error("expected error")
	}
}

func TestParseCascadeAction(t *testing.T) {
	for _, name := range []string{"restrict", "cascade", "set_null", "no_action", "protect", "set_default", "do_nothing"} {
		action, err := ParseCascadeAction(name)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if action.String() != name {
			t.Errorf("round trip of %s gave %s", name, action)
		}
	}
}

func TestRelation_Hidden(t *testing.T) {
	if !(&Relation{RelatedName: "+"}).Hidden() {
		t.Error("'+' should hide the reverse relation")
	}
	if (&Relation{RelatedName: "books"}).Hidden() {
		t.Error("named reverse relation should be visible")
	}
}

func TestCamelCaseToSpaces(t *testing.T) {
	tests := map[string]string{
		"Book":        "book",
		"BookAuthor":  "book author",
		"HTTPServer":  "http server",
		"ContentType": "content type",
	}
	for in, want := range tests {
		if got := camelCaseToSpaces(in); got != want {
			t.Errorf("camelCaseToSpaces(%s) = %s, want %s", in, got, want)
		}
	}
}
