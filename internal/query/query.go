// Package query implements the list semantics shared by the remote API and
// the local fallback: search and category filtering followed by pagination.
package query

import (
	"strconv"
	"strings"

	"github.com/yourusername/articlesync/internal/model"
)

// AllCategories is the category filter value meaning "no filter".
const AllCategories = "all"

// Defaults applied when a page or limit is missing or not positive.
const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// Params are the list parameters accepted by GET /articles and
// GET /categories.
type Params struct {
	Page       int    `form:"page"`
	Limit      int    `form:"limit"`
	Search     string `form:"search"`
	CategoryID string `form:"categoryId"`
	Exclude    string `form:"exclude"`
}

// Normalize fills in defaults and strips the "all" sentinel. Search is kept
// verbatim, so a term of spaces only matches text containing those spaces.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if p.CategoryID == AllCategories {
		p.CategoryID = ""
	}
	return p
}

// Values encodes p as URL query parameters, omitting empty members.
func (p Params) Values() map[string]string {
	v := make(map[string]string)
	if p.Page > 0 {
		v["page"] = strconv.Itoa(p.Page)
	}
	if p.Limit > 0 {
		v["limit"] = strconv.Itoa(p.Limit)
	}
	if p.Search != "" {
		v["search"] = p.Search
	}
	if p.CategoryID != "" && p.CategoryID != AllCategories {
		v["categoryId"] = p.CategoryID
	}
	if p.Exclude != "" {
		v["exclude"] = p.Exclude
	}
	return v
}

// Contains reports whether needle occurs in s ignoring case.
func Contains(s, needle string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(needle))
}

// MatchArticle reports whether a passes the search, category and exclude
// filters of p. p must be normalized.
func MatchArticle(a model.Article, p Params) bool {
	if p.Search != "" && !Contains(a.Title, p.Search) && !Contains(a.Content, p.Search) {
		return false
	}
	if p.CategoryID != "" && a.CategoryID != p.CategoryID {
		return false
	}
	if p.Exclude != "" && a.ID == p.Exclude {
		return false
	}
	return true
}

// FilterArticles keeps the articles matching p in their existing order.
func FilterArticles(items []model.Article, p Params) []model.Article {
	p = p.Normalize()
	out := make([]model.Article, 0, len(items))
	for _, a := range items {
		if MatchArticle(a, p) {
			out = append(out, a)
		}
	}
	return out
}

// FilterCategories keeps the categories whose name contains the search term.
func FilterCategories(items []model.Category, p Params) []model.Category {
	p = p.Normalize()
	out := make([]model.Category, 0, len(items))
	for _, c := range items {
		if p.Search == "" || Contains(c.Name, p.Search) {
			out = append(out, c)
		}
	}
	return out
}

// TotalPages returns ceil(n/limit) with a floor of one page.
func TotalPages(n, limit int) int {
	if limit < 1 {
		limit = DefaultLimit
	}
	pages := n / limit
	if n%limit != 0 {
		pages++
	}
	if pages < 1 {
		return 1
	}
	return pages
}

// Paginate cuts the window [(page-1)*limit, (page-1)*limit+limit) out of
// items. A page past the end yields an empty, non-nil slice.
func Paginate[T any](items []T, page, limit int) model.Page[T] {
	p := Params{Page: page, Limit: limit}.Normalize()
	// bounds are checked before multiplying so huge page or limit values
	// cannot overflow
	start := len(items)
	if p.Page-1 <= len(items)/p.Limit {
		start = min((p.Page-1)*p.Limit, len(items))
	}
	end := start + min(p.Limit, len(items)-start)
	window := make([]T, end-start)
	copy(window, items[start:end])
	return model.Page[T]{
		Items:      window,
		Total:      len(items),
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: TotalPages(len(items), p.Limit),
	}
}

// Articles filters and then paginates.
func Articles(items []model.Article, p Params) model.Page[model.Article] {
	p = p.Normalize()
	return Paginate(FilterArticles(items, p), p.Page, p.Limit)
}

// Categories filters and then paginates.
func Categories(items []model.Category, p Params) model.Page[model.Category] {
	p = p.Normalize()
	return Paginate(FilterCategories(items, p), p.Page, p.Limit)
}

// Related returns up to n articles from categoryID other than excludeID.
func Related(items []model.Article, categoryID, excludeID string, n int) []model.Article {
	if n < 1 {
		return []model.Article{}
	}
	out := make([]model.Article, 0, n)
	for _, a := range items {
		if len(out) >= n {
			break
		}
		if a.CategoryID == categoryID && a.ID != excludeID {
			out = append(out, a)
		}
	}
	return out
}
