package identity

import (
	"errors"

	"github.com/labstack/echo/v4"
)

var (
	// ErrUnauthorized means the request carries no authenticated user
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNoOrganization means the user has no active organization selected
	ErrNoOrganization = errors.New("no organization selected")
)

const sessionKey = "session"

// Session is the caller identity resolved by the external identity provider
type Session struct {
	UserID  string
	OrgID   string
	OrgName string
	Role    string
}

// Anonymous is the session of an unauthenticated caller
var Anonymous = Session{}

// Tenant runs the shared pre-check: authenticated first, then an active organization
func (s Session) Tenant() (string, error) {
	if s.UserID == "" {
		return "", ErrUnauthorized
	}
	if s.OrgID == "" {
		return "", ErrNoOrganization
	}
	return s.OrgID, nil
}

// SetEcho stores the session on the echo context
func SetEcho(c echo.Context, s Session) {
	c.Set(sessionKey, s)
}

// FromEcho returns the session resolved for this request, anonymous if none
func FromEcho(c echo.Context) Session {
	s, ok := c.Get(sessionKey).(Session)
	if !ok {
		return Anonymous
	}
	return s
}
