package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newShopRegistry(t *testing.T) *Registry {
	t.Helper()
	registry := NewRegistry()
	require.NoError(t, registry.RegisterApp(NewApp("shop")))
	return registry
}

func TestRegistry_RegisterApp(t *testing.T) {
	t.Run("default verbose name", func(t *testing.T) {
		registry := NewRegistry()
		require.NoError(t, registry.RegisterApp(&App{Label: "sample_app"}))

		app, ok := registry.GetApp("sample_app")
		require.True(t, ok)
		assert.Equal(t, "Sample_App", app.VerboseName)
	})

	t.Run("duplicate label", func(t *testing.T) {
		registry := newShopRegistry(t)
		assert.Error(t, registry.RegisterApp(NewApp("shop")))
	})

	t.Run("invalid label", func(t *testing.T) {
		registry := NewRegistry()
		assert.Error(t, registry.RegisterApp(NewApp("my-app")))
		assert.Error(t, registry.RegisterApp(&App{}))
	})

	t.Run("registration order", func(t *testing.T) {
		registry := NewRegistry()
		for _, label := range []string{"zeta", "alpha", "mid"} {
			require.NoError(t, registry.RegisterApp(NewApp(label)))
		}

		var labels []string
		for _, app := range registry.Apps() {
			labels = append(labels, app.Label)
		}
		assert.Equal(t, []string{"zeta", "alpha", "mid"}, labels)
	})
}

func TestRegistry_Register(t *testing.T) {
	t.Run("fills defaults", func(t *testing.T) {
		registry := newShopRegistry(t)

		m := NewModel("shop", "OrderLine")
		m.Fields = append(m.Fields, &Field{Name: "quantity", Type: Of(TypeInt)})
		require.NoError(t, registry.Register(m))

		assert.Equal(t, "order line", m.VerboseName)
		assert.Equal(t, "order lines", m.VerboseNamePlural)
		assert.Equal(t, "shop_orderline", m.TableName)
		assert.Equal(t, []Manager{{Name: "objects", Kind: "Manager"}}, m.Managers)

		pk, ok := m.PrimaryKey()
		require.True(t, ok)
		assert.Equal(t, "id", pk)
		assert.Equal(t, "id", m.Fields[0].Name)
		assert.True(t, m.Fields[0].AutoCreated)
		assert.False(t, m.Fields[0].Editable())

		qty, _ := m.Field("quantity")
		assert.Equal(t, "quantity", qty.VerboseName)
	})

	t.Run("explicit primary key", func(t *testing.T) {
		registry := newShopRegistry(t)

		m := NewModel("shop", "Sku")
		m.Fields = append(m.Fields, &Field{Name: "code", Type: String(20), PrimaryKey: true})
		require.NoError(t, registry.Register(m))

		assert.Len(t, m.Fields, 1)
		pk, _ := m.PrimaryKey()
		assert.Equal(t, "code", pk)
	})

	t.Run("unknown app", func(t *testing.T) {
		registry := NewRegistry()
		err := registry.Register(NewModel("missing", "Thing"))
		assert.True(t, errors.Is(err, ErrAppNotFound))
	})

	t.Run("duplicate model", func(t *testing.T) {
		registry := newShopRegistry(t)
		require.NoError(t, registry.Register(NewModel("shop", "Item")))
		assert.Error(t, registry.Register(NewModel("shop", "item")))
	})

	t.Run("field name clash", func(t *testing.T) {
		registry := newShopRegistry(t)

		m := NewModel("shop", "Item")
		m.Fields = append(m.Fields, &Field{Name: "owner", Type: String(10)})
		m.Relations = append(m.Relations, &Relation{Name: "owner", Kind: RelationForeignKey, To: "self"})
		err := registry.Register(m)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "clashes")
		assert.Equal(t, 0, registry.Count())
	})

	t.Run("must register panics", func(t *testing.T) {
		registry := NewRegistry()
		assert.Panics(t, func() {
			registry.MustRegister(NewModel("nowhere", "Thing"))
		})
	})
}

func TestRegistry_IndexNames(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.RegisterApp(NewApp("sample_app")))

	m := NewModel("sample_app", "Book")
	m.Fields = append(m.Fields,
		&Field{Name: "title", Type: String(200)},
		&Field{Name: "publication_date", Type: Of(TypeDate)},
	)
	m.Indexes = []Index{
		{Fields: []string{"title"}},
		{Fields: []string{"publication_date"}},
		{Name: "custom_idx", Fields: []string{"title", "publication_date"}},
	}
	require.NoError(t, registry.Register(m))

	assert.Equal(t, "sample_app__title_2fa28d_idx", m.Indexes[0].Name)
	assert.Equal(t, "sample_app__publica_092a7d_idx", m.Indexes[1].Name)
	assert.Equal(t, "custom_idx", m.Indexes[2].Name)
}

func TestRegistry_ManyToMany(t *testing.T) {
	t.Run("auto-created link model", func(t *testing.T) {
		registry := newShopRegistry(t)

		tag := NewModel("shop", "Tag")
		item := NewModel("shop", "Item")
		item.Relations = append(item.Relations, &Relation{Name: "tags", Kind: RelationManyToMany, To: "Tag"})
		registry.MustRegister(tag, item)

		assert.Equal(t, 3, registry.Count())
		assert.Len(t, registry.Models(), 2)

		rel, _ := item.Relation("tags")
		link, ok := registry.ResolveThrough(item, rel)
		require.True(t, ok)
		assert.True(t, link.AutoCreated)
		assert.Equal(t, "shop_item_tags", link.TableName)
		assert.Equal(t, [][]string{{"item", "tag"}}, link.UniqueTogether)

		// Link relations are hidden from the targets
		assert.Empty(t, registry.ReverseRelations(item))
		reverse := registry.ReverseRelations(tag)
		require.Len(t, reverse, 1)
		assert.Equal(t, "item", reverse[0].Name)
	})

	t.Run("self referencing link model", func(t *testing.T) {
		registry := newShopRegistry(t)

		person := NewModel("shop", "Person")
		person.Relations = append(person.Relations, &Relation{Name: "friends", Kind: RelationManyToMany, To: "self"})
		registry.MustRegister(person)

		link, err := registry.GetModel("shop", "Person_friends")
		require.NoError(t, err)
		_, ok := link.Relation("from_person")
		assert.True(t, ok)
		_, ok = link.Relation("to_person")
		assert.True(t, ok)
	})

	t.Run("explicit through model", func(t *testing.T) {
		registry := newShopRegistry(t)

		item := NewModel("shop", "Item")
		item.Relations = append(item.Relations, &Relation{Name: "suppliers", Kind: RelationManyToMany, To: "Supplier", Through: "Supply"})
		registry.MustRegister(item)

		assert.Equal(t, 1, registry.Count())
		rel, _ := item.Relation("suppliers")
		_, ok := registry.ResolveThrough(item, rel)
		assert.False(t, ok)
	})
}

func TestRegistry_Inheritance(t *testing.T) {
	t.Run("abstract parent", func(t *testing.T) {
		registry := newShopRegistry(t)

		base := NewModel("shop", "Timestamped")
		base.Abstract = true
		base.Fields = append(base.Fields, &Field{Name: "created_at", Type: Of(TypeTimestamp)})
		base.Relations = append(base.Relations, &Relation{Name: "parent", Kind: RelationForeignKey, To: "self", Null: true, OnDelete: CascadeSetNull})

		child := NewModel("shop", "Note")
		child.Parents = []string{"Timestamped"}
		child.Fields = append(child.Fields, &Field{Name: "body", Type: Of(TypeText)})
		registry.MustRegister(base, child)

		assert.Equal(t, "", base.TableName)
		assert.True(t, child.HasField("id"))
		assert.True(t, child.HasField("created_at"))
		assert.True(t, child.HasField("body"))

		rel, _ := child.Relation("parent")
		target, ok := registry.ResolveTarget(child, rel)
		require.True(t, ok)
		assert.Same(t, child, target)

		assert.Len(t, registry.Models(), 1)
	})

	t.Run("multi-table parent", func(t *testing.T) {
		registry := newShopRegistry(t)

		place := NewModel("shop", "Place")
		place.Fields = append(place.Fields, &Field{Name: "name", Type: String(50)})
		restaurant := NewModel("shop", "Restaurant")
		restaurant.Parents = []string{"Place"}
		restaurant.Fields = append(restaurant.Fields, &Field{Name: "serves_pizza", Type: Of(TypeBool)})
		registry.MustRegister(place, restaurant)

		ptr, ok := restaurant.Relation("place_ptr")
		require.True(t, ok)
		assert.True(t, ptr.PrimaryKey)
		assert.True(t, ptr.ParentLink)
		assert.Equal(t, RelationOneToOne, ptr.Kind)

		pk, _ := restaurant.PrimaryKey()
		assert.Equal(t, "place_ptr", pk)
		assert.Equal(t, []*Model{place}, restaurant.ParentModels())

		reverse := registry.ReverseRelations(place)
		require.Len(t, reverse, 1)
		assert.Equal(t, "restaurant", reverse[0].Name)
		assert.Equal(t, RelationOneToOne, reverse[0].Kind)
	})

	t.Run("proxy", func(t *testing.T) {
		registry := newShopRegistry(t)

		item := NewModel("shop", "Item")
		item.Fields = append(item.Fields, &Field{Name: "name", Type: String(50)})
		featured := NewModel("shop", "FeaturedItem")
		featured.Proxy = true
		featured.Parents = []string{"Item"}
		registry.MustRegister(item, featured)

		assert.Equal(t, "shop_item", featured.TableName)
		assert.True(t, featured.HasField("name"))
	})

	t.Run("proxy needs a concrete parent", func(t *testing.T) {
		registry := newShopRegistry(t)

		m := NewModel("shop", "Orphan")
		m.Proxy = true
		assert.Error(t, registry.Register(m))
	})

	t.Run("unregistered parent", func(t *testing.T) {
		registry := newShopRegistry(t)

		m := NewModel("shop", "Child")
		m.Parents = []string{"Missing"}
		assert.Error(t, registry.Register(m))
	})
}

func TestRegistry_GetModel(t *testing.T) {
	registry := newShopRegistry(t)
	registry.MustRegister(NewModel("shop", "Item"))

	m, err := registry.GetModel("shop", "ITEM")
	require.NoError(t, err)
	assert.Equal(t, "Item", m.Name)

	_, err = registry.GetModel("shop", "missing")
	assert.True(t, errors.Is(err, ErrModelNotFound))

	_, err = registry.GetModel("nope", "item")
	assert.True(t, errors.Is(err, ErrAppNotFound))
}

func TestRegistry_Clear(t *testing.T) {
	registry := newShopRegistry(t)
	registry.MustRegister(NewModel("shop", "Item"))

	registry.Clear()
	assert.Equal(t, 0, registry.Count())
	assert.Empty(t, registry.Apps())
}

func TestRegistry_DependencyOrder(t *testing.T) {
	registry := newShopRegistry(t)

	line := NewModel("shop", "Line")
	line.Relations = append(line.Relations, &Relation{Name: "order", Kind: RelationForeignKey, To: "Order"})
	order := NewModel("shop", "Order")
	order.Relations = append(order.Relations, &Relation{Name: "customer", Kind: RelationForeignKey, To: "Customer"})
	customer := NewModel("shop", "Customer")
	registry.MustRegister(line, order, customer)

	var names []string
	for _, m := range registry.DependencyOrder() {
		names = append(names, m.Name)
	}
	assert.Equal(t, []string{"Customer", "Order", "Line"}, names)
}
