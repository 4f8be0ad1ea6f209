package sampleapp

import (
	"fmt"
	"time"
)

// Record holds the columns every bookstore table shares. Its methods are inherited by
// the records embedding it and are not listed as model methods.
type Record struct {
	ID        int64
	CreatedAt time.Time
}

// PK returns the primary key
func (r *Record) PK() int64 { return r.ID }

// IsSaved reports whether the record has a primary key yet
func (r *Record) IsSaved() bool { return r.ID != 0 }

// Author is an author who writes books
type Author struct {
	Record
	Name      string
	Email     string
	Bio       string
	BirthDate *time.Time
}

func (a *Author) String() string { return a.Name }

// Age returns the author's age in whole years at t, or false without a birth date
func (a *Author) Age(t time.Time) (int, bool) {
	if a.BirthDate == nil {
		return 0, false
	}
	years := t.Year() - a.BirthDate.Year()
	if t.YearDay() < a.BirthDate.YearDay() {
		years--
	}
	return years, true
}

// Publisher is a book publisher
type Publisher struct {
	Record
	Name        string
	Website     string
	Established *int
}

func (p *Publisher) String() string { return p.Name }

// Category is a book genre; categories nest through Parent
type Category struct {
	Record
	Name        string
	Description string
	Parent      *Category
}

func (c *Category) String() string { return c.Name }

// Path returns the names from the root category down to c
func (c *Category) Path() []string {
	if c.Parent == nil {
		return []string{c.Name}
	}
	return append(c.Parent.Path(), c.Name)
}

// Book statuses
const (
	StatusDraft      = "draft"
	StatusPublished  = "published"
	StatusOutOfPrint = "out_of_print"
)

// Book is a book with relationships to authors and publishers
type Book struct {
	Record
	Title           string
	ISBN            string
	PublicationDate *time.Time
	PageCount       *int
	Price           *string
	Status          string
	Summary         string
	UpdatedAt       time.Time
}

func (b *Book) String() string { return b.Title }

// IsPublished reports whether the book is currently in print
func (b *Book) IsPublished() bool { return b.Status == StatusPublished }

// AverageRating returns the mean rating of reviews, or false when there are none
func (b *Book) AverageRating(reviews []Review) (float64, bool) {
	if len(reviews) == 0 {
		return 0, false
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	return float64(total) / float64(len(reviews)), true
}

// Author roles on a book
const (
	RoleAuthor     = "author"
	RoleCoAuthor   = "co_author"
	RoleEditor     = "editor"
	RoleTranslator = "translator"
)

// BookAuthor links a book to one of its authors
type BookAuthor struct {
	Record
	Book   *Book
	Author *Author
	Role   string
	Order  int
}

func (ba *BookAuthor) String() string {
	return fmt.Sprintf("%s - %s (%s)", ba.Author, ba.Book, ba.Role)
}

// Review is a reader's review of a book
type Review struct {
	Record
	Book         *Book
	ReviewerName string
	Rating       int
	Comment      string
}

func (r *Review) String() string {
	return fmt.Sprintf("Review of %s by %s", r.Book, r.ReviewerName)
}

// BookDetail extends a book with long-form content
type BookDetail struct {
	Record
	Book            *Book
	FullDescription string
	TableOfContents string
	SampleChapter   string
}

func (d *BookDetail) String() string { return "Details for " + d.Book.String() }
