package session

import (
	"encoding/json"
	"strings"

	"github.com/yourusername/articlesync/internal/model"
)

// Route paths referenced by the access rules.
const (
	HomePath     = "/"
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	AdminHome    = "/admin/articles"
	UserHome     = "/user/articles"
)

// Decision is the outcome of Authorize. Redirect is empty when Allow is true.
type Decision struct {
	Allow        bool
	Redirect     string
	ClearSession bool
}

func allow() Decision { return Decision{Allow: true} }

func redirect(to string) Decision { return Decision{Redirect: to} }

// IsPublic reports whether path can be visited without a session.
func IsPublic(path string) bool {
	return path == HomePath || path == LoginPath || path == RegisterPath
}

// HomeFor returns the landing page for role.
func HomeFor(role model.Role) string {
	if role == model.RoleAdmin {
		return AdminHome
	}
	return UserHome
}

// Authorize applies the route rules to a token and a serialized user:
// anonymous visitors only see public paths, signed-in visitors are sent from
// public paths to their home, and the /admin and /user trees are restricted
// to their role. A user record that cannot be parsed ends the session.
func Authorize(path, token, rawUser string) Decision {
	public := IsPublic(path)

	if token == "" {
		if public {
			return allow()
		}
		return redirect(LoginPath)
	}

	var user *model.User
	if rawUser != "" {
		var u model.User
		if err := json.Unmarshal([]byte(rawUser), &u); err != nil {
			return Decision{Redirect: LoginPath, ClearSession: true}
		}
		user = &u
	}

	if public {
		if user != nil {
			return redirect(HomeFor(user.Role))
		}
		return redirect(UserHome)
	}

	if user == nil {
		return allow()
	}
	if strings.Contains(path, "/admin") && user.Role != model.RoleAdmin {
		return redirect(UserHome)
	}
	if strings.Contains(path, "/user") && user.Role != model.RoleUser {
		return redirect(AdminHome)
	}
	return allow()
}
