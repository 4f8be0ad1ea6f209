package manifest

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const libraryManifest = `
apps:
  - label: library
    verbose_name: City Library
    models:
      - name: Room
        fields:
          - {name: name, type: string, max_length: 50, unique: true}
      - name: Shelf
        verbose_name: book shelf
        db_table: shelves
        fields:
          - name: code
            type: string
            max_length: 8
            help_text: Printed on the shelf label
          - name: capacity
            type: positive_int
            default: 40
          - name: uid
            type: uuid
            default_func: uuid4
            editable: false
          - name: kind
            type: string
            max_length: 1
            default: w
            choices:
              - {value: w, label: Wall}
              - {value: f, label: Free standing}
          - name: price
            type: decimal
            max_digits: 6
            decimal_places: 2
            null: true
        relations:
          - {name: room, kind: foreign_key, to: Room, on_delete: set_null, null: true, related_name: shelves}
          - {name: neighbours, kind: many_to_many, to: self}
        indexes:
          - fields: [code]
        constraints:
          - {name: positive_capacity, check: capacity > 0}
          - {name: unique_code_room, fields: [code, room]}
        managers:
          - {name: objects}
          - {name: wall, class: WallShelfManager}
        methods: [is_full]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAndApply(t *testing.T) {
	path := writeFile(t, t.TempDir(), "library.yml", libraryManifest)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, m.Source)
	require.Len(t, m.Apps, 1)

	registry := schema.NewRegistry()
	require.NoError(t, m.Apply(registry))

	app, ok := registry.GetApp("library")
	require.True(t, ok)
	assert.Equal(t, "City Library", app.VerboseName)

	shelf, err := registry.GetModel("library", "shelf")
	require.NoError(t, err)
	assert.Equal(t, "book shelf", shelf.VerboseName)
	assert.Equal(t, "shelves", shelf.TableName)
	assert.Equal(t, []string{"is_full"}, shelf.Methods)
	assert.Equal(t, []schema.Manager{{Name: "objects", Kind: "Manager"}, {Name: "wall", Kind: "WallShelfManager"}}, shelf.Managers)

	t.Run("fields", func(t *testing.T) {
		code, ok := shelf.Field("code")
		require.True(t, ok)
		n, _ := code.MaxLength()
		assert.Equal(t, 8, n)
		assert.Equal(t, "Printed on the shelf label", code.HelpText)

		capacity, _ := shelf.Field("capacity")
		v, ok := capacity.Default.Value()
		require.True(t, ok)
		assert.Equal(t, 40, v)

		uid, _ := shelf.Field("uid")
		fn, ok := uid.Default.Func()
		require.True(t, ok)
		assert.Equal(t, "uuid4", fn)
		assert.False(t, uid.Editable())

		kind, _ := shelf.Field("kind")
		assert.Equal(t, []schema.Choice{{Value: "w", Label: "Wall"}, {Value: "f", Label: "Free standing"}}, kind.Choices)

		price, _ := shelf.Field("price")
		assert.True(t, price.Null())
		assert.Equal(t, "decimal(6,2)?", price.Type.String())
	})

	t.Run("relations", func(t *testing.T) {
		room, ok := shelf.Relation("room")
		require.True(t, ok)
		assert.Equal(t, schema.CascadeSetNull, room.OnDelete)
		assert.Equal(t, "shelves", room.RelatedName)

		neighbours, _ := shelf.Relation("neighbours")
		link, ok := registry.ResolveThrough(shelf, neighbours)
		require.True(t, ok)
		assert.True(t, link.AutoCreated)
	})

	t.Run("constraints", func(t *testing.T) {
		require.Len(t, shelf.Constraints, 2)
		assert.Equal(t, schema.ConstraintCheck, shelf.Constraints[0].Kind)
		assert.Equal(t, schema.ConstraintUnique, shelf.Constraints[1].Kind)
		require.Len(t, shelf.Indexes, 1)
		assert.NotEmpty(t, shelf.Indexes[0].Name)
	})

	assert.Empty(t, registry.Check())
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name    string
		spec    ModelSpec
		wantErr string
	}{
		{
			name:    "unknown type",
			spec:    ModelSpec{Name: "Thing", Fields: []FieldSpec{{Name: "x", Type: "varchar"}}},
			wantErr: "field x: unknown primitive type: varchar",
		},
		{
			name:    "missing type",
			spec:    ModelSpec{Name: "Thing", Fields: []FieldSpec{{Name: "x"}}},
			wantErr: "field x: missing type",
		},
		{
			name:    "bad decimal",
			spec:    ModelSpec{Name: "Thing", Fields: []FieldSpec{{Name: "x", Type: "decimal", MaxDigits: 2, DecimalPlaces: 3}}},
			wantErr: "decimal requires",
		},
		{
			name:    "unknown relation kind",
			spec:    ModelSpec{Name: "Thing", Relations: []RelationSpec{{Name: "r", Kind: "belongs_to", To: "Other"}}},
			wantErr: "relation r: unknown relation kind",
		},
		{
			name:    "on_delete on many-to-many",
			spec:    ModelSpec{Name: "Thing", Relations: []RelationSpec{{Name: "r", Kind: "m2m", To: "Other", OnDelete: "cascade"}}},
			wantErr: "have no on_delete",
		},
		{
			name: "default and default_func",
			spec: ModelSpec{Name: "Thing", Fields: []FieldSpec{{
				Name:        "x",
				Type:        "uuid",
				Default:     yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: "abc"},
				DefaultFunc: "uuid4",
			}}},
			wantErr: "mutually exclusive",
		},
		{
			name:    "unknown constraint type",
			spec:    ModelSpec{Name: "Thing", Constraints: []ConstraintSpec{{Name: "c", Type: "exclude"}}},
			wantErr: "constraint c: unknown constraint kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewBuilder().Build("shop", tt.spec)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Contains(t, err.Error(), "shop.Thing")
		})
	}
}

func TestParse_FieldDefaults(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  interface{}
	}{
		{"int", "40", 40},
		{"float", "1.5", 1.5},
		{"infinity", ".inf", math.Inf(1)},
		{"bool", "true", true},
		{"string", "draft", "draft"},
		{"quoted number", `"40"`, "40"},
		{"list", "[1, 2]", []interface{}{1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Parse([]byte(`
apps:
  - label: shop
    models:
      - name: Item
        fields:
          - name: x
            type: string
            default: ` + tt.value + `
`))
			require.NoError(t, err)

			registry := schema.NewRegistry()
			require.NoError(t, m.Apply(registry))
			item, err := registry.GetModel("shop", "item")
			require.NoError(t, err)
			x, ok := item.Field("x")
			require.True(t, ok)

			v, ok := x.Default.Value()
			require.True(t, ok)
			assert.Equal(t, tt.want, v)
		})
	}

	t.Run("absent", func(t *testing.T) {
		field, err := NewBuilder().buildField(FieldSpec{Name: "x", Type: "int"})
		require.NoError(t, err)
		assert.False(t, field.Default.IsSet())
	})
}

func TestBuild_DefaultOnDelete(t *testing.T) {
	model, err := NewBuilder().Build("shop", ModelSpec{
		Name: "Line",
		Relations: []RelationSpec{
			{Name: "order", Kind: "fk", To: "Order"},
			{Name: "tags", Kind: "many_to_many", To: "Tag"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, schema.CascadeCascade, model.Relations[0].OnDelete)
	assert.Equal(t, schema.CascadeRestrict, model.Relations[1].OnDelete)
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "01_rooms.yml", `
apps:
  - label: library
    models:
      - name: Room
`)
	writeFile(t, dir, "02_shelves.yaml", `
apps:
  - label: library
    models:
      - name: Shelf
        relations:
          - {name: room, kind: foreign_key, to: Room}
`)
	writeFile(t, dir, "notes.txt", "ignored")

	registry := schema.NewRegistry()
	require.NoError(t, LoadFiles(registry, dir))

	assert.Len(t, registry.Apps(), 1)
	assert.Len(t, registry.Models(), 2)
	assert.Empty(t, registry.Check())
}

func TestLoadFiles_Errors(t *testing.T) {
	t.Run("missing path", func(t *testing.T) {
		err := LoadFiles(schema.NewRegistry(), filepath.Join(t.TempDir(), "missing.yml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "bad.yml", "apps: [")
		err := LoadFiles(schema.NewRegistry(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bad.yml")
	})

	t.Run("registration error names the file", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "dup.yml", `
apps:
  - label: library
    models:
      - name: Room
      - name: room
`)
		err := LoadFiles(schema.NewRegistry(), path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dup.yml")
		assert.Contains(t, err.Error(), "already registered")
	})
}
