// Package seed provides the bundled default dataset used to (re)seed the local
// snapshot and the demo backend.
package seed

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/yourusername/articlesync/internal/model"
)

//go:embed default_data.json
var defaultData []byte

// Dataset is the full bundled dataset.
type Dataset struct {
	Categories []model.Category `json:"categories"`
	Articles   []model.Article  `json:"articles"`
	Users      []model.User     `json:"users"`
}

var load = sync.OnceValues(func() (Dataset, error) {
	var d Dataset
	if err := json.Unmarshal(defaultData, &d); err != nil {
		return Dataset{}, fmt.Errorf("parsing embedded dataset: %w", err)
	}
	return d, nil
})

// Default returns a fresh deep copy of the bundled dataset. Callers may
// mutate the result freely.
func Default() Dataset {
	d, err := load()
	if err != nil {
		// the file is embedded at build time; a parse failure is a build defect
		panic(err)
	}
	users := make([]model.User, len(d.Users))
	copy(users, d.Users)
	cats := make([]model.Category, len(d.Categories))
	copy(cats, d.Categories)
	return Dataset{
		Categories: cats,
		Articles:   model.CloneArticles(d.Articles),
		Users:      users,
	}
}

// Articles returns a copy of the bundled articles.
func Articles() []model.Article {
	return Default().Articles
}

// Categories returns a copy of the bundled categories.
func Categories() []model.Category {
	return Default().Categories
}

// DemoUser returns the bundled user for the given role.
func DemoUser(role model.Role) (model.User, bool) {
	for _, u := range Default().Users {
		if u.Role == role {
			return u, true
		}
	}
	return model.User{}, false
}
