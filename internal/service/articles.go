package service

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/yourusername/articlesync/internal/gateway"
	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/query"
	"github.com/yourusername/articlesync/internal/resolver"
	"github.com/yourusername/articlesync/internal/snapshot"
)

// ArticleService serves article CRUD with snapshot fallback.
type ArticleService struct {
	gateway  gateway.Gateway
	store    *snapshot.Store
	resolver *resolver.Resolver
	opts     Options
	newID    func() string
	logger   *slog.Logger
}

// NewArticleService creates an article service.
func NewArticleService(gw gateway.Gateway, store *snapshot.Store, opts Options) *ArticleService {
	return NewArticleServiceWithLogger(gw, store, opts, slog.Default())
}

// NewArticleServiceWithLogger creates an article service with a custom logger.
func NewArticleServiceWithLogger(gw gateway.Gateway, store *snapshot.Store, opts Options, logger *slog.Logger) *ArticleService {
	return &ArticleService{
		gateway:  gw,
		store:    store,
		resolver: resolver.NewWithLogger(logger),
		opts:     opts,
		newID:    demoID,
		logger:   logger.With("component", "service.articles"),
	}
}

// List returns one page of articles matching p.
func (s *ArticleService) List(ctx context.Context, p query.Params) model.List[model.Article] {
	s.store.EnsureSeeded()
	p = p.Normalize()

	out := resolver.Resolve(ctx, s.resolver, "articles.list", resolver.RemoteFirst,
		func(ctx context.Context) (model.List[model.Article], error) {
			var resp model.List[model.Article]
			err := s.gateway.Get(ctx, "/articles", p.Values(), &resp)
			return resp, err
		},
		func() (model.List[model.Article], bool) {
			page := query.Articles(s.store.ReadAll(), p)
			return model.OK(page, "Articles found in local storage", model.SourceLocal), true
		},
	)
	return envelope(out, "Failed to load articles")
}

// Get returns a single article.
func (s *ArticleService) Get(ctx context.Context, id string) model.Response[model.Article] {
	out := resolver.Resolve(ctx, s.resolver, "articles.get", s.opts.DetailPolicy,
		func(ctx context.Context) (model.Response[model.Article], error) {
			var resp model.Response[model.Article]
			err := s.gateway.Get(ctx, entityPath("articles", id), nil, &resp)
			return resp, err
		},
		func() (model.Response[model.Article], bool) {
			a, ok := s.store.FindByID(id)
			if !ok {
				return model.Response[model.Article]{}, false
			}
			return model.OK(a, "Article found in local storage", model.SourceLocal), true
		},
	)
	return envelope(out, "Article not found")
}

// Create adds an article. When the API is unreachable the article is kept in
// the snapshot under a demo id.
func (s *ArticleService) Create(ctx context.Context, in model.ArticleInput) model.Response[model.Article] {
	if err := model.Validate(in); err != nil {
		return model.Fail[model.Article](err.Error())
	}

	out := resolver.Fallback(ctx, s.resolver, "articles.create",
		func(ctx context.Context) (model.Response[model.Article], error) {
			var resp model.Response[model.Article]
			err := s.gateway.Post(ctx, "/articles", in, &resp)
			return resp, err
		},
		func() (model.Response[model.Article], bool) {
			ts := model.Timestamp(s.store.Now())
			a := model.Article{
				ID:         s.newID(),
				Title:      in.Title,
				Content:    in.Content,
				CategoryID: in.CategoryID,
				CreatedAt:  ts,
				UpdatedAt:  ts,
			}
			if err := s.store.Append(a); err != nil {
				s.logger.ErrorContext(ctx, "Failed to store demo article", "error", err)
				return model.Response[model.Article]{}, false
			}
			created, _ := s.store.FindByID(a.ID)
			return model.OK(created, "Article created in demo mode", model.SourceLocal), true
		},
	)
	return envelope(out, "Failed to create article")
}

// Update applies patch locally and then remotely. A remote failure is not
// reported when the local record was updated.
func (s *ArticleService) Update(ctx context.Context, id string, patch model.ArticlePatch) model.Response[model.Article] {
	if patch.Empty() {
		return model.Fail[model.Article]("Nothing to update")
	}
	if err := model.Validate(patch); err != nil {
		return model.Fail[model.Article](err.Error())
	}

	out := resolver.Apply(ctx, s.resolver, "articles.update",
		func() (model.Response[model.Article], bool) {
			if !s.store.Upsert(id, patch) {
				return model.Response[model.Article]{}, false
			}
			a, ok := s.store.FindByID(id)
			return model.OK(a, "Article updated in local storage", model.SourceLocal), ok
		},
		func(ctx context.Context) (model.Response[model.Article], error) {
			var resp model.Response[model.Article]
			err := s.gateway.Put(ctx, entityPath("articles", id), patch, &resp)
			return resp, err
		},
	)
	return envelope(out, "Failed to update article")
}

// Delete removes an article locally and then remotely.
func (s *ArticleService) Delete(ctx context.Context, id string) model.Response[any] {
	out := resolver.Apply(ctx, s.resolver, "articles.delete",
		func() (model.Response[any], bool) {
			if !s.store.Remove(id) {
				return model.Response[any]{}, false
			}
			return model.OK[any](nil, "Article deleted in local storage", model.SourceLocal), true
		},
		func(ctx context.Context) (model.Response[any], error) {
			var resp model.Response[any]
			err := s.gateway.Delete(ctx, entityPath("articles", id), &resp)
			return resp, err
		},
	)
	return envelope(out, "Failed to delete article")
}

// Related returns up to n other articles of the same category. n <= 0 uses
// the configured limit.
func (s *ArticleService) Related(ctx context.Context, categoryID, excludeID string, n int) model.List[model.Article] {
	if n <= 0 {
		n = s.opts.relatedLimit()
	}

	out := resolver.Resolve(ctx, s.resolver, "articles.related", resolver.RemoteFirst,
		func(ctx context.Context) (model.List[model.Article], error) {
			var resp model.List[model.Article]
			params := map[string]string{
				"categoryId": categoryID,
				"limit":      strconv.Itoa(n),
				"exclude":    excludeID,
			}
			if err := s.gateway.Get(ctx, "/articles", params, &resp); err != nil {
				return resp, err
			}
			// the API may ignore exclude
			resp.Data.Items = query.Related(resp.Data.Items, categoryID, excludeID, n)
			return resp, nil
		},
		func() (model.List[model.Article], bool) {
			items := query.Related(s.store.ReadAll(), categoryID, excludeID, n)
			page := model.Page[model.Article]{
				Items:      items,
				Total:      len(items),
				Page:       1,
				Limit:      n,
				TotalPages: 1,
			}
			return model.OK(page, "Related articles found in local storage", model.SourceLocal), true
		},
	)
	return envelope(out, "Failed to load related articles")
}
