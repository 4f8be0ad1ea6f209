// Package sampleapp registers a small bookstore app used to demonstrate the viewer.
package sampleapp

import (
	"fmt"

	"github.com/conduit-lang/schemaviewer/internal/orm/schema"
)

// Label is the app label of the bookstore app
const Label = "sample_app"

// App returns the bookstore app
func App() *schema.App {
	return &schema.App{Label: Label, VerboseName: "Sample App"}
}

// Register adds the bookstore app and its models to the registry
func Register(registry *schema.Registry) error {
	if err := registry.RegisterApp(App()); err != nil {
		return fmt.Errorf("failed to register app %s: %w", Label, err)
	}
	for _, m := range Models() {
		if err := registry.Register(m); err != nil {
			return fmt.Errorf("failed to register %s.%s: %w", Label, m.Name, err)
		}
	}
	return nil
}

func createdAt() *schema.Field {
	return &schema.Field{Name: "created_at", Type: schema.Of(schema.TypeTimestamp), Blank: true, ReadOnly: true}
}

// Models returns the bookstore models in registration order
func Models() []*schema.Model {
	author := schema.NewModel(Label, "Author")
	author.Documentation = "An author who writes books."
	author.Prototype = &Author{}
	author.Fields = append(author.Fields,
		&schema.Field{Name: "name", Type: schema.String(100), HelpText: "Author's full name"},
		&schema.Field{Name: "email", Type: schema.Of(schema.TypeEmail).WithLength(254), Unique: true},
		&schema.Field{Name: "bio", Type: schema.Of(schema.TypeText), Blank: true},
		&schema.Field{Name: "birth_date", Type: schema.Of(schema.TypeDate).OrNull(), Blank: true},
		createdAt(),
	)
	author.Ordering = []string{"name"}
	author.Indexes = []schema.Index{{Fields: []string{"name"}}}

	publisher := schema.NewModel(Label, "Publisher")
	publisher.Documentation = "A book publisher."
	publisher.Prototype = &Publisher{}
	publisher.Fields = append(publisher.Fields,
		&schema.Field{Name: "name", Type: schema.String(200)},
		&schema.Field{Name: "website", Type: schema.Of(schema.TypeURL).WithLength(200), Blank: true},
		&schema.Field{Name: "established", Type: schema.Of(schema.TypePositiveInt).OrNull(), Blank: true},
	)

	category := schema.NewModel(Label, "Category")
	category.Documentation = "Book category/genre."
	category.Prototype = &Category{}
	category.VerboseNamePlural = "categories"
	category.Fields = append(category.Fields,
		&schema.Field{Name: "name", Type: schema.String(50), Unique: true},
		&schema.Field{Name: "description", Type: schema.Of(schema.TypeText), Blank: true},
	)
	category.Relations = append(category.Relations, &schema.Relation{
		Name:        "parent",
		Kind:        schema.RelationForeignKey,
		To:          "self",
		OnDelete:    schema.CascadeCascade,
		Null:        true,
		Blank:       true,
		RelatedName: "children",
	})

	book := schema.NewModel(Label, "Book")
	book.Documentation = "A book with relationships to authors and publishers."
	book.Prototype = &Book{}
	book.Fields = append(book.Fields,
		&schema.Field{Name: "title", Type: schema.String(300)},
		&schema.Field{Name: "isbn", Type: schema.String(13), Unique: true, DBIndex: true},
		&schema.Field{Name: "publication_date", Type: schema.Of(schema.TypeDate).OrNull(), Blank: true},
		&schema.Field{Name: "page_count", Type: schema.Of(schema.TypePositiveInt).OrNull(), Blank: true},
		&schema.Field{Name: "price", Type: schema.Decimal(10, 2).OrNull(), Blank: true},
		&schema.Field{
			Name:    "status",
			Type:    schema.String(20),
			Default: schema.StaticDefault(StatusDraft),
			Choices: []schema.Choice{
				{Value: StatusDraft, Label: "Draft"},
				{Value: StatusPublished, Label: "Published"},
				{Value: StatusOutOfPrint, Label: "Out of Print"},
			},
		},
		&schema.Field{Name: "summary", Type: schema.Of(schema.TypeText), Blank: true},
		createdAt(),
		&schema.Field{Name: "updated_at", Type: schema.Of(schema.TypeTimestamp), Blank: true, ReadOnly: true},
	)
	book.Relations = append(book.Relations,
		&schema.Relation{Name: "authors", Kind: schema.RelationManyToMany, To: "Author", Through: "BookAuthor", RelatedName: "books"},
		&schema.Relation{
			Name:        "publisher",
			Kind:        schema.RelationForeignKey,
			To:          "Publisher",
			OnDelete:    schema.CascadeSetNull,
			Null:        true,
			Blank:       true,
			RelatedName: "books",
		},
		&schema.Relation{Name: "categories", Kind: schema.RelationManyToMany, To: "Category", RelatedName: "books", Blank: true},
	)
	book.Ordering = []string{"-publication_date"}
	book.Indexes = []schema.Index{
		{Fields: []string{"title"}},
		{Fields: []string{"publication_date"}},
	}
	book.Constraints = []schema.Constraint{{
		Name:      "valid_page_count",
		Kind:      schema.ConstraintCheck,
		Condition: "page_count >= 1 OR page_count IS NULL",
	}}

	bookAuthor := schema.NewModel(Label, "BookAuthor")
	bookAuthor.Documentation = "Through model for Book-Author M2M relationship."
	bookAuthor.Prototype = &BookAuthor{}
	bookAuthor.Fields = append(bookAuthor.Fields,
		&schema.Field{
			Name:    "role",
			Type:    schema.String(20),
			Default: schema.StaticDefault(RoleAuthor),
			Choices: []schema.Choice{
				{Value: RoleAuthor, Label: "Author"},
				{Value: RoleCoAuthor, Label: "Co-Author"},
				{Value: RoleEditor, Label: "Editor"},
				{Value: RoleTranslator, Label: "Translator"},
			},
		},
		&schema.Field{Name: "order", Type: schema.Of(schema.TypePositiveSmallInt), Default: schema.StaticDefault(0)},
	)
	bookAuthor.Relations = append(bookAuthor.Relations,
		&schema.Relation{Name: "book", Kind: schema.RelationForeignKey, To: "Book", OnDelete: schema.CascadeCascade},
		&schema.Relation{Name: "author", Kind: schema.RelationForeignKey, To: "Author", OnDelete: schema.CascadeCascade},
	)
	bookAuthor.Ordering = []string{"order"}
	bookAuthor.UniqueTogether = [][]string{{"book", "author", "role"}}

	review := schema.NewModel(Label, "Review")
	review.Documentation = "A book review."
	review.Prototype = &Review{}
	review.Fields = append(review.Fields,
		&schema.Field{Name: "reviewer_name", Type: schema.String(100)},
		&schema.Field{Name: "rating", Type: schema.Of(schema.TypePositiveSmallInt)},
		&schema.Field{Name: "comment", Type: schema.Of(schema.TypeText)},
		createdAt(),
	)
	review.Relations = append(review.Relations, &schema.Relation{
		Name:        "book",
		Kind:        schema.RelationForeignKey,
		To:          "Book",
		OnDelete:    schema.CascadeCascade,
		RelatedName: "reviews",
	})
	review.Constraints = []schema.Constraint{{
		Name:      "valid_rating",
		Kind:      schema.ConstraintCheck,
		Condition: "rating >= 1 AND rating <= 5",
	}}

	detail := schema.NewModel(Label, "BookDetail")
	detail.Documentation = "One-to-one extension of Book with additional details."
	detail.Prototype = &BookDetail{}
	detail.Fields = append(detail.Fields,
		&schema.Field{Name: "full_description", Type: schema.Of(schema.TypeText)},
		&schema.Field{Name: "table_of_contents", Type: schema.Of(schema.TypeText), Blank: true},
		&schema.Field{Name: "sample_chapter", Type: schema.Of(schema.TypeText), Blank: true},
	)
	detail.Relations = append(detail.Relations, &schema.Relation{
		Name:        "book",
		Kind:        schema.RelationOneToOne,
		To:          "Book",
		OnDelete:    schema.CascadeCascade,
		RelatedName: "detail",
	})

	return []*schema.Model{author, publisher, category, book, bookAuthor, review, detail}
}
