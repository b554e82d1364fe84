package query

import (
	"math"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/seed"
)

func TestSearchIsCaseInsensitiveOverTitleOrContent(t *testing.T) {
	a := model.Article{ID: "1", Title: "Hello World", Content: "goodbye"}

	tests := []struct {
		search string
		want   bool
	}{
		{"WORLD", true},
		{"goodbye", true},
		{"GoodBye", true},
		{"hello world", true},
		{"xyz", false},
		{"", true},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			got := MatchArticle(a, Params{Search: tt.search}.Normalize())
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize(t *testing.T) {
	p := Params{CategoryID: "all", Search: "  go  "}.Normalize()
	assert.Equal(t, DefaultPage, p.Page)
	assert.Equal(t, DefaultLimit, p.Limit)
	assert.Empty(t, p.CategoryID)
	assert.Equal(t, "  go  ", p.Search)

	p = Params{Page: -3, Limit: 0, CategoryID: "2"}.Normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, 10, p.Limit)
	assert.Equal(t, "2", p.CategoryID)
}

func TestSearchTermIsNotTrimmed(t *testing.T) {
	spaced := model.Article{ID: "1", Title: "Go  tips", Content: "x"}
	single := model.Article{ID: "2", Title: "Go tips", Content: "x"}

	p := Params{Search: "  "}.Normalize()
	assert.True(t, MatchArticle(spaced, p))
	assert.False(t, MatchArticle(single, p))

	got := FilterArticles([]model.Article{spaced, single}, Params{Search: " tips"})
	assert.Len(t, got, 2)
	assert.Empty(t, FilterArticles([]model.Article{spaced, single}, Params{Search: "tips "}))
}

func TestCategoryFilterSentinel(t *testing.T) {
	items := seed.Articles()
	assert.Len(t, FilterArticles(items, Params{CategoryID: "all"}), 12)
	assert.Len(t, FilterArticles(items, Params{CategoryID: ""}), 12)
	assert.Len(t, FilterArticles(items, Params{CategoryID: "1"}), 3)
	assert.Empty(t, FilterArticles(items, Params{CategoryID: "99"}))
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		n, limit, want int
	}{
		{0, 10, 1},
		{1, 10, 1},
		{10, 10, 1},
		{11, 10, 2},
		{12, 9, 2},
		{27, 9, 3},
		{5, 0, 1},
		{12, math.MaxInt, 1},
		{math.MaxInt, 1, math.MaxInt},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.n)+"/"+strconv.Itoa(tt.limit), func(t *testing.T) {
			assert.Equal(t, tt.want, TotalPages(tt.n, tt.limit))
		})
	}
}

func TestPaginateWindow(t *testing.T) {
	items := []int{0, 1, 2, 3, 4, 5, 6}

	p := Paginate(items, 2, 3)
	assert.Equal(t, []int{3, 4, 5}, p.Items)
	assert.Equal(t, 7, p.Total)
	assert.Equal(t, 3, p.TotalPages)

	p = Paginate(items, 3, 3)
	assert.Equal(t, []int{6}, p.Items)

	p = Paginate(items, 9, 3)
	assert.NotNil(t, p.Items)
	assert.Empty(t, p.Items)
	assert.Equal(t, 9, p.Page)
}

func TestPaginateHugeValues(t *testing.T) {
	tests := []struct {
		name      string
		page      int
		limit     int
		wantItems int
		wantPages int
	}{
		{"max limit first page", 1, math.MaxInt, 12, 1},
		{"max limit second page", 2, math.MaxInt, 0, 1},
		{"max page", math.MaxInt, 10, 0, 2},
		{"max page and limit", math.MaxInt, math.MaxInt, 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var page model.Page[model.Article]
			require.NotPanics(t, func() {
				page = Articles(seed.Articles(), Params{Page: tt.page, Limit: tt.limit})
			})
			assert.Len(t, page.Items, tt.wantItems)
			assert.NotNil(t, page.Items)
			assert.Equal(t, 12, page.Total)
			assert.Equal(t, tt.wantPages, page.TotalPages)
		})
	}
}

func TestSecondPageOfBundledArticles(t *testing.T) {
	page := Articles(seed.Articles(), Params{Page: 2, Limit: 9})

	assert.Len(t, page.Items, 3)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, "10", page.Items[0].ID)
}

func TestFilterBeforePaginate(t *testing.T) {
	items := seed.Articles()
	p := Params{Page: 1, Limit: 2, CategoryID: "2"}

	got := Articles(items, p)
	require.Len(t, got.Items, 2)
	for _, a := range got.Items {
		assert.Equal(t, "2", a.CategoryID)
	}
	assert.Equal(t, 3, got.Total)
	assert.Equal(t, 2, got.TotalPages)

	// paginating first would see only articles 1 and 2 and keep one
	wrong := FilterArticles(Paginate(items, 1, 2).Items, p)
	assert.NotEqual(t, len(got.Items), len(wrong))
}

func TestFilterCategories(t *testing.T) {
	cats := seed.Categories()
	assert.Len(t, FilterCategories(cats, Params{Search: "HEAL"}), 1)
	assert.Len(t, FilterCategories(cats, Params{}), 5)

	page := Categories(cats, Params{Search: "E", Limit: 2})
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 2, page.TotalPages)
}

func TestRelated(t *testing.T) {
	items := seed.Articles()

	got := Related(items, "1", "1", 3)
	require.Len(t, got, 2)
	assert.Equal(t, "4", got[0].ID)
	assert.Equal(t, "9", got[1].ID)

	assert.Len(t, Related(items, "2", "", 2), 2)
	assert.Empty(t, Related(items, "2", "", 0))
}

func TestValuesOmitsEmpty(t *testing.T) {
	v := Params{Page: 2, CategoryID: "all", Exclude: "3"}.Values()
	assert.Equal(t, map[string]string{"page": "2", "exclude": "3"}, v)
}
