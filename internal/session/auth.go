package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/articlesync/internal/gateway"
	"github.com/yourusername/articlesync/internal/model"
	"github.com/yourusername/articlesync/internal/seed"
	"github.com/yourusername/articlesync/internal/storage"
)

// DemoUserPrefix prefixes the per-email demo registration records.
const DemoUserPrefix = "demo_user_"

// ErrInvalidCredentials is returned when a demo password does not match the
// one recorded at registration.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Credentials are the login form.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// Registration is the sign-up form.
type Registration struct {
	Name     string     `json:"name" validate:"required,min=2"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=6"`
	Role     model.Role `json:"role" validate:"required,oneof=user admin"`
}

// AuthResult is the data of a successful login or registration.
type AuthResult struct {
	User  model.User `json:"user"`
	Token string     `json:"token"`
}

// demoRecord is what the simulator remembers about an email.
type demoRecord struct {
	Email        string     `json:"email"`
	Name         string     `json:"name,omitempty"`
	Role         model.Role `json:"role"`
	PasswordHash string     `json:"passwordHash,omitempty"`
}

// Authenticator signs users in against the API and falls back to the demo
// simulator when the API fails.
type Authenticator struct {
	store   *Store
	gateway gateway.Gateway
	logger  *slog.Logger
}

// NewAuthenticator creates an authenticator.
func NewAuthenticator(store *Store, gw gateway.Gateway) *Authenticator {
	return NewAuthenticatorWithLogger(store, gw, slog.Default())
}

// NewAuthenticatorWithLogger creates an authenticator with a custom logger.
func NewAuthenticatorWithLogger(store *Store, gw gateway.Gateway, logger *slog.Logger) *Authenticator {
	return &Authenticator{
		store:   store,
		gateway: gw,
		logger:  logger.With("component", "session.authenticator"),
	}
}

// Login signs in with the API, or with the demo simulator if the API call
// fails.
func (a *Authenticator) Login(ctx context.Context, c Credentials) model.Response[AuthResult] {
	if err := model.Validate(c); err != nil {
		return model.Fail[AuthResult](err.Error())
	}

	var resp model.Response[AuthResult]
	err := a.gateway.Post(ctx, "/auth/login", c, &resp)
	if err == nil {
		if err := a.store.Save(resp.Data.Token, resp.Data.User); err != nil {
			return model.Fail[AuthResult](fmt.Sprintf("failed to save session: %v", err))
		}
		resp.Source = model.SourceRemote
		return resp
	}

	a.logger.WarnContext(ctx, "Remote login failed, using demo login", "error", err)
	result, err := a.demoLogin(c)
	if err != nil {
		return model.Fail[AuthResult](err.Error())
	}
	return model.OK(result, fmt.Sprintf("Demo login successful as %s", result.User.Role), model.SourceLocal)
}

// Register creates an account with the API, or a demo account if the API
// call fails.
func (a *Authenticator) Register(ctx context.Context, r Registration) model.Response[AuthResult] {
	if err := model.Validate(r); err != nil {
		return model.Fail[AuthResult](err.Error())
	}

	var resp model.Response[AuthResult]
	err := a.gateway.Post(ctx, "/auth/register", r, &resp)
	if err == nil {
		if err := a.store.Save(resp.Data.Token, resp.Data.User); err != nil {
			return model.Fail[AuthResult](fmt.Sprintf("failed to save session: %v", err))
		}
		resp.Source = model.SourceRemote
		return resp
	}

	a.logger.WarnContext(ctx, "Remote registration failed, creating demo account", "error", err)
	result, err := a.demoRegister(r)
	if err != nil {
		return model.Fail[AuthResult](err.Error())
	}
	return model.OK(result, fmt.Sprintf("Demo account created with %s role", result.User.Role), model.SourceLocal)
}

func (a *Authenticator) demoLogin(c Credentials) (AuthResult, error) {
	role := model.RoleUser
	if strings.Contains(c.Email, "admin") {
		role = model.RoleAdmin
	}

	rec, found := a.loadRecord(c.Email)
	if found {
		if rec.Role == model.RoleAdmin || rec.Role == model.RoleUser {
			role = rec.Role
		}
		if rec.PasswordHash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(rec.PasswordHash), []byte(c.Password)); err != nil {
				return AuthResult{}, ErrInvalidCredentials
			}
		}
	}

	user, token, err := demoIdentity(role)
	if err != nil {
		return AuthResult{}, err
	}
	user.Email = c.Email
	if found && rec.Name != "" {
		user.Name = rec.Name
	}

	rec.Email = c.Email
	rec.Role = role
	if err := a.saveRecord(rec); err != nil {
		return AuthResult{}, err
	}
	if err := a.store.Save(token, user); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: token}, nil
}

func (a *Authenticator) demoRegister(r Registration) (AuthResult, error) {
	user, token, err := demoIdentity(r.Role)
	if err != nil {
		return AuthResult{}, err
	}
	user.Name = r.Name
	user.Email = r.Email

	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hashing password: %w", err)
	}
	rec := demoRecord{Email: r.Email, Name: r.Name, Role: r.Role, PasswordHash: string(hash)}
	if err := a.saveRecord(rec); err != nil {
		return AuthResult{}, err
	}
	if err := a.store.Save(token, user); err != nil {
		return AuthResult{}, err
	}
	return AuthResult{User: user, Token: token}, nil
}

// DemoAccounts lists the emails known to the demo simulator.
func (a *Authenticator) DemoAccounts() ([]string, error) {
	keys, err := a.store.backend.Keys(DemoUserPrefix)
	if err != nil {
		return nil, err
	}
	emails := make([]string, len(keys))
	for i, k := range keys {
		emails[i] = strings.TrimPrefix(k, DemoUserPrefix)
	}
	return emails, nil
}

func (a *Authenticator) loadRecord(email string) (demoRecord, bool) {
	raw, err := a.store.backend.Get(DemoUserPrefix + email)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn("Failed to read demo user", "email", email, "error", err)
		}
		return demoRecord{}, false
	}
	var rec demoRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		a.logger.Warn("Invalid demo user record", "email", email, "error", err)
		return demoRecord{}, false
	}
	return rec, true
}

func (a *Authenticator) saveRecord(rec demoRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return a.store.backend.Set(DemoUserPrefix+rec.Email, string(data))
}

// demoIdentity returns the bundled demo user for role and its token.
func demoIdentity(role model.Role) (model.User, string, error) {
	u, ok := seed.DemoUser(role)
	if !ok {
		return model.User{}, "", fmt.Errorf("no demo user for role %q", role)
	}
	token := u.Token
	if token == "" {
		token = fmt.Sprintf("dummy-%s-token", role)
	}
	u.Token = ""
	return u, token, nil
}
