package demoapi

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/query"
	"github.com/yourusername/articlesync/internal/seed"
)

// DefaultPassword is the password of the bundled demo users.
const DefaultPassword = "password123"

var (
	ErrNotFound     = errors.New("not found")
	ErrEmailTaken   = errors.New("email already registered")
	ErrBadPassword  = errors.New("invalid email or password")
	ErrUnknownToken = errors.New("unknown token")
)

// Repository stores the demo API's data in SQLite.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

// OpenRepository opens (creating if needed) the database at path. ":memory:"
// gives a private in-memory database.
func OpenRepository(path string) (*Repository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	// a single connection keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	r := &Repository{db: db, now: time.Now}
	if err := r.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

func (r *Repository) init() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS categories (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT NOT NULL UNIQUE,
			name       TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS articles (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			id          TEXT NOT NULL UNIQUE,
			title       TEXT NOT NULL,
			content     TEXT NOT NULL,
			category_id TEXT NOT NULL,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category_id);

		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			name          TEXT NOT NULL,
			email         TEXT NOT NULL UNIQUE,
			role          TEXT NOT NULL,
			password_hash TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tokens (
			token   TEXT PRIMARY KEY,
			user_id TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Seed loads the bundled dataset into an empty database. It reports whether
// anything was inserted.
func (r *Repository) Seed() (bool, error) {
	var v string
	err := r.db.QueryRow(`SELECT value FROM meta WHERE key = 'seeded'`).Scan(&v)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return false, err
	}
	data := seed.Default()

	tx, err := r.db.Begin()
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	for _, c := range data.Categories {
		if _, err := tx.Exec(`INSERT INTO categories (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			c.ID, c.Name, c.CreatedAt, c.UpdatedAt); err != nil {
			return false, fmt.Errorf("seeding category %s: %w", c.ID, err)
		}
	}
	for _, a := range data.Articles {
		if _, err := tx.Exec(`INSERT INTO articles (id, title, content, category_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, a.Title, a.Content, a.CategoryID, a.CreatedAt, a.UpdatedAt); err != nil {
			return false, fmt.Errorf("seeding article %s: %w", a.ID, err)
		}
	}
	for _, u := range data.Users {
		if _, err := tx.Exec(`INSERT INTO users (id, name, email, role, password_hash) VALUES (?, ?, ?, ?, ?)`,
			u.ID, u.Name, u.Email, string(u.Role), string(hash)); err != nil {
			return false, fmt.Errorf("seeding user %s: %w", u.Email, err)
		}
		if u.Token != "" {
			if _, err := tx.Exec(`INSERT INTO tokens (token, user_id) VALUES (?, ?)`, u.Token, u.ID); err != nil {
				return false, err
			}
		}
	}
	if _, err := tx.Exec(`INSERT INTO meta (key, value) VALUES ('seeded', ?)`, model.Timestamp(r.now())); err != nil {
		return false, err
	}
	return true, tx.Commit()
}

// Articles returns every article in insertion order with its category
// embedded when it exists.
func (r *Repository) Articles() ([]model.Article, error) {
	rows, err := r.db.Query(`
		SELECT a.id, a.title, a.content, a.category_id, a.created_at, a.updated_at,
		       c.id, c.name, c.created_at, c.updated_at
		FROM articles a
		LEFT JOIN categories c ON c.id = a.category_id
		ORDER BY a.seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListArticles filters and paginates with the same rules the client applies
// to its snapshot.
func (r *Repository) ListArticles(p query.Params) (model.Page[model.Article], error) {
	all, err := r.Articles()
	if err != nil {
		return model.Page[model.Article]{}, err
	}
	return query.Articles(all, p), nil
}

// Article returns one article.
func (r *Repository) Article(id string) (model.Article, error) {
	row := r.db.QueryRow(`
		SELECT a.id, a.title, a.content, a.category_id, a.created_at, a.updated_at,
		       c.id, c.name, c.created_at, c.updated_at
		FROM articles a
		LEFT JOIN categories c ON c.id = a.category_id
		WHERE a.id = ?`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Article{}, ErrNotFound
	}
	return a, err
}

// CreateArticle inserts a new article with a generated id.
func (r *Repository) CreateArticle(in model.ArticleInput) (model.Article, error) {
	id := uuid.NewString()
	ts := model.Timestamp(r.now())
	if _, err := r.db.Exec(`INSERT INTO articles (id, title, content, category_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, in.Title, in.Content, in.CategoryID, ts, ts); err != nil {
		return model.Article{}, err
	}
	return r.Article(id)
}

// UpdateArticle applies patch to an article.
func (r *Repository) UpdateArticle(id string, patch model.ArticlePatch) (model.Article, error) {
	a, err := r.Article(id)
	if err != nil {
		return model.Article{}, err
	}
	patch.ApplyTo(&a, r.now())
	if _, err := r.db.Exec(`UPDATE articles SET title = ?, content = ?, category_id = ?, updated_at = ? WHERE id = ?`,
		a.Title, a.Content, a.CategoryID, a.UpdatedAt, id); err != nil {
		return model.Article{}, err
	}
	return r.Article(id)
}

// DeleteArticle removes an article.
func (r *Repository) DeleteArticle(id string) error {
	return r.deleteByID(`DELETE FROM articles WHERE id = ?`, id)
}

// Categories returns every category in insertion order.
func (r *Repository) Categories() ([]model.Category, error) {
	rows, err := r.db.Query(`SELECT id, name, created_at, updated_at FROM categories ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListCategories filters by name and paginates.
func (r *Repository) ListCategories(p query.Params) (model.Page[model.Category], error) {
	all, err := r.Categories()
	if err != nil {
		return model.Page[model.Category]{}, err
	}
	return query.Categories(all, p), nil
}

// Category returns one category.
func (r *Repository) Category(id string) (model.Category, error) {
	var c model.Category
	err := r.db.QueryRow(`SELECT id, name, created_at, updated_at FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Category{}, ErrNotFound
	}
	return c, err
}

// CreateCategory inserts a new category with a generated id.
func (r *Repository) CreateCategory(in model.CategoryInput) (model.Category, error) {
	id := uuid.NewString()
	ts := model.Timestamp(r.now())
	if _, err := r.db.Exec(`INSERT INTO categories (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		id, in.Name, ts, ts); err != nil {
		return model.Category{}, err
	}
	return r.Category(id)
}

// UpdateCategory applies patch to a category.
func (r *Repository) UpdateCategory(id string, patch model.CategoryPatch) (model.Category, error) {
	c, err := r.Category(id)
	if err != nil {
		return model.Category{}, err
	}
	patch.ApplyTo(&c, r.now())
	if _, err := r.db.Exec(`UPDATE categories SET name = ?, updated_at = ? WHERE id = ?`, c.Name, c.UpdatedAt, id); err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category. Its articles keep the dangling id.
func (r *Repository) DeleteCategory(id string) error {
	return r.deleteByID(`DELETE FROM categories WHERE id = ?`, id)
}

// Register creates a user and issues a token.
func (r *Repository) Register(name, email, password string, role model.Role) (model.User, string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return model.User{}, "", err
	}
	var exists int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM users WHERE email = ?`, email).Scan(&exists); err != nil {
		return model.User{}, "", err
	}
	if exists > 0 {
		return model.User{}, "", ErrEmailTaken
	}
	u := model.User{ID: uuid.NewString(), Name: name, Email: email, Role: role}
	if _, err := r.db.Exec(`INSERT INTO users (id, name, email, role, password_hash) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, string(u.Role), string(hash)); err != nil {
		return model.User{}, "", err
	}
	token, err := r.issueToken(u.ID)
	return u, token, err
}

// Login checks a password and issues a token.
func (r *Repository) Login(email, password string) (model.User, string, error) {
	var u model.User
	var role, hash string
	err := r.db.QueryRow(`SELECT id, name, email, role, password_hash FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Name, &u.Email, &role, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, "", ErrBadPassword
	}
	if err != nil {
		return model.User{}, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return model.User{}, "", ErrBadPassword
	}
	u.Role = model.Role(role)
	token, err := r.issueToken(u.ID)
	return u, token, err
}

// UserForToken resolves a bearer token.
func (r *Repository) UserForToken(token string) (model.User, error) {
	var u model.User
	var role string
	err := r.db.QueryRow(`
		SELECT u.id, u.name, u.email, u.role
		FROM tokens t JOIN users u ON u.id = t.user_id
		WHERE t.token = ?`, token).Scan(&u.ID, &u.Name, &u.Email, &role)
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUnknownToken
	}
	if err != nil {
		return model.User{}, err
	}
	u.Role = model.Role(role)
	return u, nil
}

// RevokeToken forgets a token.
func (r *Repository) RevokeToken(token string) error {
	_, err := r.db.Exec(`DELETE FROM tokens WHERE token = ?`, token)
	return err
}

func (r *Repository) issueToken(userID string) (string, error) {
	token := uuid.NewString()
	if _, err := r.db.Exec(`INSERT INTO tokens (token, user_id) VALUES (?, ?)`, token, userID); err != nil {
		return "", err
	}
	return token, nil
}

func (r *Repository) deleteByID(stmt, id string) error {
	res, err := r.db.Exec(stmt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(s scanner) (model.Article, error) {
	var a model.Article
	var cid, cname, ccreated, cupdated sql.NullString
	if err := s.Scan(&a.ID, &a.Title, &a.Content, &a.CategoryID, &a.CreatedAt, &a.UpdatedAt,
		&cid, &cname, &ccreated, &cupdated); err != nil {
		return model.Article{}, err
	}
	if cid.Valid {
		a.Category = &model.Category{ID: cid.String, Name: cname.String, CreatedAt: ccreated.String, UpdatedAt: cupdated.String}
	}
	return a, nil
}
