package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/articlesync/internal/model"
)

func TestDefaultDataset(t *testing.T) {
	d := Default()
	require.Len(t, d.Articles, 12)
	require.Len(t, d.Categories, 5)
	require.Len(t, d.Users, 2)

	cats := map[string]bool{}
	for _, c := range d.Categories {
		cats[c.ID] = true
	}
	ids := map[string]bool{}
	for _, a := range d.Articles {
		assert.False(t, ids[a.ID], "duplicate id %s", a.ID)
		ids[a.ID] = true
		assert.True(t, cats[a.CategoryID], "article %s references unknown category", a.ID)
		require.NotNil(t, a.Category)
		assert.Equal(t, a.CategoryID, a.Category.ID)
	}
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Articles[0].Title = "mutated"
	a.Articles[0].Category.Name = "mutated"
	a.Articles = a.Articles[:1]

	b := Default()
	assert.Len(t, b.Articles, 12)
	assert.NotEqual(t, "mutated", b.Articles[0].Title)
	assert.NotEqual(t, "mutated", b.Articles[0].Category.Name)
}

func TestDemoUser(t *testing.T) {
	admin, ok := DemoUser(model.RoleAdmin)
	require.True(t, ok)
	assert.Equal(t, "dummy-admin-token", admin.Token)

	user, ok := DemoUser(model.RoleUser)
	require.True(t, ok)
	assert.Equal(t, "dummy-user-token", user.Token)
}
