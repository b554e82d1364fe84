// Package demoapi is a self-contained implementation of the content API,
// backed by SQLite and seeded with the bundled dataset. It lets the client be
// exercised end to end without the hosted backend.
package demoapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/query"
	"github.com/yourusername/articlesync/internal/session"
)

const userKey = "articlesync_user"

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "articlesync_demoapi_requests_total",
	Help: "Demo API requests by route and status",
}, []string{"method", "route", "status"})

// Server wires the repository to HTTP routes.
type Server struct {
	repo   *Repository
	engine *gin.Engine
	logger *slog.Logger
}

// NewServer creates a server over repo.
func NewServer(repo *Repository) *Server {
	return NewServerWithLogger(repo, slog.Default())
}

// NewServerWithLogger creates a server with a custom logger.
func NewServerWithLogger(repo *Repository, logger *slog.Logger) *Server {
	s := &Server{
		repo:   repo,
		engine: gin.New(),
		logger: logger.With("component", "demoapi.server"),
	}
	s.engine.Use(gin.Recovery(), s.observe())
	s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.engine.Group("/api")
	api.POST("/auth/login", s.login)
	api.POST("/auth/register", s.register)

	authed := api.Group("", s.authenticate())
	authed.POST("/auth/logout", s.logout)
	authed.GET("/articles", s.listArticles)
	authed.GET("/articles/:id", s.getArticle)
	authed.GET("/categories", s.listCategories)
	authed.GET("/categories/:id", s.getCategory)

	admin := authed.Group("", requireRole(model.RoleAdmin))
	admin.POST("/articles", s.createArticle)
	admin.PUT("/articles/:id", s.updateArticle)
	admin.DELETE("/articles/:id", s.deleteArticle)
	admin.POST("/categories", s.createCategory)
	admin.PUT("/categories/:id", s.updateCategory)
	admin.DELETE("/categories/:id", s.deleteCategory)
}

func (s *Server) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		requestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		s.logger.DebugContext(c.Request.Context(), "Handled request",
			"method", c.Request.Method,
			"route", route,
			"status_code", status,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		user, err := s.repo.UserForToken(token)
		if err != nil {
			if !errors.Is(err, ErrUnknownToken) {
				s.logger.ErrorContext(c.Request.Context(), "Token lookup failed", "error", err)
			}
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Set(userKey, user)
		c.Next()
	}
}

func requireRole(role model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, _ := c.Get(userKey)
		user, ok := u.(model.User)
		if !ok || user.Role != role {
			fail(c, http.StatusForbidden, "Forbidden")
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, model.Response[any]{Status: false, Message: msg})
}

func reply[T any](c *gin.Context, status int, data T, msg string) {
	c.JSON(status, model.OK(data, msg, ""))
}

// bind decodes and validates a JSON body, writing a 400 on failure.
func bind(c *gin.Context, v any) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		fail(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := model.Validate(v); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *Server) storeError(c *gin.Context, err error, notFound string) {
	if errors.Is(err, ErrNotFound) {
		fail(c, http.StatusNotFound, notFound)
		return
	}
	s.logger.ErrorContext(c.Request.Context(), "Repository error", "error", err)
	fail(c, http.StatusInternalServerError, "Internal server error")
}

func (s *Server) login(c *gin.Context) {
	var in session.Credentials
	if !bind(c, &in) {
		return
	}
	user, token, err := s.repo.Login(in.Email, in.Password)
	if errors.Is(err, ErrBadPassword) {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.storeError(c, err, "")
		return
	}
	reply(c, http.StatusOK, session.AuthResult{User: user, Token: token}, "Login successful")
}

func (s *Server) register(c *gin.Context) {
	var in session.Registration
	if !bind(c, &in) {
		return
	}
	user, token, err := s.repo.Register(in.Name, in.Email, in.Password, in.Role)
	if errors.Is(err, ErrEmailTaken) {
		fail(c, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		s.storeError(c, err, "")
		return
	}
	reply(c, http.StatusCreated, session.AuthResult{User: user, Token: token}, "Registration successful")
}

func (s *Server) logout(c *gin.Context) {
	if err := s.repo.RevokeToken(bearerToken(c)); err != nil {
		s.storeError(c, err, "")
		return
	}
	reply[any](c, http.StatusOK, nil, "Logged out")
}

func (s *Server) listArticles(c *gin.Context) {
	var p query.Params
	if err := c.ShouldBindQuery(&p); err != nil {
		fail(c, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}
	page, err := s.repo.ListArticles(p)
	if err != nil {
		s.storeError(c, err, "")
		return
	}
	reply(c, http.StatusOK, page, "Articles retrieved successfully")
}

func (s *Server) getArticle(c *gin.Context) {
	a, err := s.repo.Article(c.Param("id"))
	if err != nil {
		s.storeError(c, err, "Article not found")
		return
	}
	reply(c, http.StatusOK, a, "Article retrieved successfully")
}

func (s *Server) createArticle(c *gin.Context) {
	var in model.ArticleInput
	if !bind(c, &in) {
		return
	}
	if _, err := s.repo.Category(in.CategoryID); err != nil {
		s.storeError(c, err, "Category not found")
		return
	}
	a, err := s.repo.CreateArticle(in)
	if err != nil {
		s.storeError(c, err, "")
		return
	}
	reply(c, http.StatusCreated, a, "Article created successfully")
}

func (s *Server) updateArticle(c *gin.Context) {
	var patch model.ArticlePatch
	if !bind(c, &patch) {
		return
	}
	a, err := s.repo.UpdateArticle(c.Param("id"), patch)
	if err != nil {
		s.storeError(c, err, "Article not found")
		return
	}
	reply(c, http.StatusOK, a, "Article updated successfully")
}

func (s *Server) deleteArticle(c *gin.Context) {
	if err := s.repo.DeleteArticle(c.Param("id")); err != nil {
		s.storeError(c, err, "Article not found")
		return
	}
	reply[any](c, http.StatusOK, nil, "Article deleted successfully")
}

func (s *Server) listCategories(c *gin.Context) {
	var p query.Params
	if err := c.ShouldBindQuery(&p); err != nil {
		fail(c, http.StatusBadRequest, "invalid query: "+err.Error())
		return
	}
	page, err := s.repo.ListCategories(p)
	if err != nil {
		s.storeError(c, err, "")
		return
	}
	reply(c, http.StatusOK, page, "Categories retrieved successfully")
}

func (s *Server) getCategory(c *gin.Context) {
	cat, err := s.repo.Category(c.Param("id"))
	if err != nil {
		s.storeError(c, err, "Category not found")
		return
	}
	reply(c, http.StatusOK, cat, "Category retrieved successfully")
}

func (s *Server) createCategory(c *gin.Context) {
	var in model.CategoryInput
	if !bind(c, &in) {
		return
	}
	cat, err := s.repo.CreateCategory(in)
	if err != nil {
		s.storeError(c, err, "")
		return
	}
	reply(c, http.StatusCreated, cat, "Category created successfully")
}

func (s *Server) updateCategory(c *gin.Context) {
	var patch model.CategoryPatch
	if !bind(c, &patch) {
		return
	}
	cat, err := s.repo.UpdateCategory(c.Param("id"), patch)
	if err != nil {
		s.storeError(c, err, "Category not found")
		return
	}
	reply(c, http.StatusOK, cat, "Category updated successfully")
}

func (s *Server) deleteCategory(c *gin.Context) {
	if err := s.repo.DeleteCategory(c.Param("id")); err != nil {
		s.storeError(c, err, "Category not found")
		return
	}
	reply[any](c, http.StatusOK, nil, "Category deleted successfully")
}
