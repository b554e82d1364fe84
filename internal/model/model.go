// Package model defines the articles, categories and users exchanged with the
// content API and kept in the local snapshot.
package model

import "time"

// TimeLayout is the ISO-8601 form used for every timestamp on the wire and in
// the snapshot, e.g. "2023-02-01T00:00:00.000Z".
const TimeLayout = "2006-01-02T15:04:05.000Z"

// UnknownCategory is displayed when an article references a category that
// no longer exists.
const UnknownCategory = "Unknown Category"

// Role distinguishes regular readers from administrators.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Category groups articles.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// Article is a single piece of content. Category is an optional denormalized
// copy of the referenced category.
type Article struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	CategoryID string    `json:"categoryId"`
	Category   *Category `json:"category,omitempty"`
	CreatedAt  string    `json:"createdAt"`
	UpdatedAt  string    `json:"updatedAt"`
}

// User is the identity stored alongside the session token.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
	Token string `json:"token,omitempty"`
}

// IsAdmin reports whether the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// ArticlePatch carries the fields of a partial article update. Nil members are
// left untouched.
type ArticlePatch struct {
	Title      *string `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content    *string `json:"content,omitempty" validate:"omitempty,min=1"`
	CategoryID *string `json:"categoryId,omitempty" validate:"omitempty,min=1"`
}

// Empty reports whether the patch changes nothing.
func (p ArticlePatch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.CategoryID == nil
}

// ApplyTo merges the patch into a and stamps UpdatedAt.
func (p ArticlePatch) ApplyTo(a *Article, now time.Time) {
	if p.Title != nil {
		a.Title = *p.Title
	}
	if p.Content != nil {
		a.Content = *p.Content
	}
	if p.CategoryID != nil && *p.CategoryID != a.CategoryID {
		a.CategoryID = *p.CategoryID
		// the embedded copy no longer matches the reference
		a.Category = nil
	}
	a.UpdatedAt = Timestamp(now)
}

// CategoryPatch carries the fields of a partial category update.
type CategoryPatch struct {
	Name *string `json:"name,omitempty" validate:"omitempty,min=1,max=100"`
}

// Empty reports whether the patch changes nothing.
func (p CategoryPatch) Empty() bool {
	return p.Name == nil
}

// ApplyTo merges the patch into c and stamps UpdatedAt.
func (p CategoryPatch) ApplyTo(c *Category, now time.Time) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	c.UpdatedAt = Timestamp(now)
}

// ArticleInput is the payload for creating an article.
type ArticleInput struct {
	Title      string `json:"title" validate:"required,max=200"`
	Content    string `json:"content" validate:"required"`
	CategoryID string `json:"categoryId" validate:"required"`
}

// CategoryInput is the payload for creating a category.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=100"`
}

// Timestamp formats t in TimeLayout.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// StringPtr returns a pointer to s. Handy for building patches.
func StringPtr(s string) *string {
	return &s
}

// CategoryName resolves the display name of an article's category, preferring
// the embedded copy and falling back to the given list.
func CategoryName(a Article, categories []Category) string {
	if a.Category != nil && a.Category.ID == a.CategoryID && a.Category.Name != "" {
		return a.Category.Name
	}
	for _, c := range categories {
		if c.ID == a.CategoryID {
			return c.Name
		}
	}
	return UnknownCategory
}

// CloneArticle returns a deep copy of a.
func CloneArticle(a Article) Article {
	if a.Category != nil {
		c := *a.Category
		a.Category = &c
	}
	return a
}

// CloneArticles returns a deep copy of items.
func CloneArticles(items []Article) []Article {
	out := make([]Article, len(items))
	for i, a := range items {
		out[i] = CloneArticle(a)
	}
	return out
}
