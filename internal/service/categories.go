package service

import (
	"context"
	"log/slog"

	"github.com/yourusername/articlesync/internal/gateway"
	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/query"
	"github.com/yourusername/articlesync/internal/resolver"
	"github.com/yourusername/articlesync/internal/snapshot"
)

// CategoryService serves category CRUD with snapshot fallback.
type CategoryService struct {
	gateway  gateway.Gateway
	store    *snapshot.Store
	resolver *resolver.Resolver
	opts     Options
	newID    func() string
	logger   *slog.Logger
}

// NewCategoryService creates a category service.
func NewCategoryService(gw gateway.Gateway, store *snapshot.Store, opts Options) *CategoryService {
	return NewCategoryServiceWithLogger(gw, store, opts, slog.Default())
}

// NewCategoryServiceWithLogger creates a category service with a custom logger.
func NewCategoryServiceWithLogger(gw gateway.Gateway, store *snapshot.Store, opts Options, logger *slog.Logger) *CategoryService {
	return &CategoryService{
		gateway:  gw,
		store:    store,
		resolver: resolver.NewWithLogger(logger),
		opts:     opts,
		newID:    demoID,
		logger:   logger.With("component", "service.categories"),
	}
}

// List returns one page of categories whose name matches p.Search.
func (s *CategoryService) List(ctx context.Context, p query.Params) model.List[model.Category] {
	s.store.EnsureCategoriesSeeded()
	p = p.Normalize()
	p.CategoryID = ""
	p.Exclude = ""

	out := resolver.Resolve(ctx, s.resolver, "categories.list", resolver.RemoteFirst,
		func(ctx context.Context) (model.List[model.Category], error) {
			var resp model.List[model.Category]
			err := s.gateway.Get(ctx, "/categories", p.Values(), &resp)
			return resp, err
		},
		func() (model.List[model.Category], bool) {
			page := query.Categories(s.store.Categories(), p)
			return model.OK(page, "Categories found in local storage", model.SourceLocal), true
		},
	)
	return envelope(out, "Failed to load categories")
}

// All returns every category on one page, for pickers and name lookups.
func (s *CategoryService) All(ctx context.Context) model.List[model.Category] {
	return s.List(ctx, query.Params{Page: 1, Limit: 1000})
}

// Get returns a single category.
func (s *CategoryService) Get(ctx context.Context, id string) model.Response[model.Category] {
	out := resolver.Resolve(ctx, s.resolver, "categories.get", s.opts.DetailPolicy,
		func(ctx context.Context) (model.Response[model.Category], error) {
			var resp model.Response[model.Category]
			err := s.gateway.Get(ctx, entityPath("categories", id), nil, &resp)
			return resp, err
		},
		func() (model.Response[model.Category], bool) {
			c, ok := s.store.FindCategory(id)
			if !ok {
				return model.Response[model.Category]{}, false
			}
			return model.OK(c, "Category found in local storage", model.SourceLocal), true
		},
	)
	return envelope(out, "Category not found")
}

// Create adds a category, keeping it in the snapshot when the API is
// unreachable.
func (s *CategoryService) Create(ctx context.Context, in model.CategoryInput) model.Response[model.Category] {
	if err := model.Validate(in); err != nil {
		return model.Fail[model.Category](err.Error())
	}

	out := resolver.Fallback(ctx, s.resolver, "categories.create",
		func(ctx context.Context) (model.Response[model.Category], error) {
			var resp model.Response[model.Category]
			err := s.gateway.Post(ctx, "/categories", in, &resp)
			return resp, err
		},
		func() (model.Response[model.Category], bool) {
			ts := model.Timestamp(s.store.Now())
			c := model.Category{ID: s.newID(), Name: in.Name, CreatedAt: ts, UpdatedAt: ts}
			if err := s.store.AppendCategory(c); err != nil {
				s.logger.ErrorContext(ctx, "Failed to store demo category", "error", err)
				return model.Response[model.Category]{}, false
			}
			return model.OK(c, "Category created in demo mode", model.SourceLocal), true
		},
	)
	return envelope(out, "Failed to create category")
}

// Update renames a category locally and then remotely.
func (s *CategoryService) Update(ctx context.Context, id string, patch model.CategoryPatch) model.Response[model.Category] {
	if patch.Empty() {
		return model.Fail[model.Category]("Nothing to update")
	}
	if err := model.Validate(patch); err != nil {
		return model.Fail[model.Category](err.Error())
	}

	out := resolver.Apply(ctx, s.resolver, "categories.update",
		func() (model.Response[model.Category], bool) {
			if !s.store.UpsertCategory(id, patch) {
				return model.Response[model.Category]{}, false
			}
			c, ok := s.store.FindCategory(id)
			return model.OK(c, "Category updated in local storage", model.SourceLocal), ok
		},
		func(ctx context.Context) (model.Response[model.Category], error) {
			var resp model.Response[model.Category]
			err := s.gateway.Put(ctx, entityPath("categories", id), patch, &resp)
			return resp, err
		},
	)
	return envelope(out, "Failed to update category")
}

// Delete removes a category locally and then remotely. Articles in the
// category are left pointing at it.
func (s *CategoryService) Delete(ctx context.Context, id string) model.Response[any] {
	out := resolver.Apply(ctx, s.resolver, "categories.delete",
		func() (model.Response[any], bool) {
			if !s.store.RemoveCategory(id) {
				return model.Response[any]{}, false
			}
			return model.OK[any](nil, "Category deleted in local storage", model.SourceLocal), true
		},
		func(ctx context.Context) (model.Response[any], error) {
			var resp model.Response[any]
			err := s.gateway.Delete(ctx, entityPath("categories", id), &resp)
			return resp, err
		},
	)
	return envelope(out, "Failed to delete category")
}
