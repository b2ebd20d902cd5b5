package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/digitalka/monthly-sales/consts"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
)

const (
	algorithm     = "HS256"
	sessionClaim  = "sid"
	actionClaim   = "act"
	kindClaim     = "kind"
	kindSession   = "session"
	kindFormToken = "form"
)

var (
	ErrNoSession    = errors.New("no valid session")
	ErrInvalidToken = errors.New("invalid anti-forgery token")
)

type Session struct {
	ID string
}

// Manager keeps a signed session cookie and issues anti-forgery tokens bound
// to a session and an action.
type Manager struct {
	auth *jwtauth.JWTAuth
	ttl  time.Duration
}

func NewManager(secret []byte, ttl time.Duration) *Manager {
	return &Manager{
		auth: jwtauth.New(algorithm, secret, nil),
		ttl:  ttl,
	}
}

// Load returns the session of the request, starting a new one (and setting
// its cookie) when the request carries none.
func (m *Manager) Load(w http.ResponseWriter, r *http.Request) (Session, error) {
	if s, err := m.FromRequest(r); err == nil {
		return s, nil
	}

	s := Session{ID: uuid.NewString()}
	expires := time.Now().Add(m.ttl)
	claims := map[string]any{
		sessionClaim: s.ID,
		kindClaim:    kindSession,
	}
	jwtauth.SetIssuedAt(claims, time.Now())
	jwtauth.SetExpiry(claims, expires)
	_, tokenString, err := m.auth.Encode(claims)
	if err != nil {
		return Session{}, fmt.Errorf("encoding session: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     consts.SessionCookieName,
		Value:    tokenString,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return s, nil
}

// FromRequest returns the session of the request without starting a new one.
func (m *Manager) FromRequest(r *http.Request) (Session, error) {
	cookie, err := r.Cookie(consts.SessionCookieName)
	if err != nil {
		return Session{}, ErrNoSession
	}
	claims, err := m.verify(cookie.Value)
	if err != nil || claims[kindClaim] != kindSession {
		return Session{}, ErrNoSession
	}
	id, _ := claims[sessionClaim].(string)
	if id == "" {
		return Session{}, ErrNoSession
	}
	return Session{ID: id}, nil
}

// Token issues an anti-forgery token for action in session s.
func (m *Manager) Token(s Session, action string) (string, error) {
	claims := map[string]any{
		sessionClaim: s.ID,
		actionClaim:  action,
		kindClaim:    kindFormToken,
	}
	jwtauth.SetIssuedAt(claims, time.Now())
	jwtauth.SetExpiry(claims, time.Now().Add(m.ttl))
	_, tokenString, err := m.auth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("encoding form token: %w", err)
	}
	return tokenString, nil
}

// Verify checks that token was issued for action in the session of r.
func (m *Manager) Verify(r *http.Request, action, token string) error {
	s, err := m.FromRequest(r)
	if err != nil {
		return err
	}
	if token == "" {
		return ErrInvalidToken
	}
	claims, err := m.verify(token)
	if err != nil {
		return ErrInvalidToken
	}
	if claims[kindClaim] != kindFormToken || claims[actionClaim] != action || claims[sessionClaim] != s.ID {
		return ErrInvalidToken
	}
	return nil
}

func (m *Manager) verify(tokenString string) (map[string]any, error) {
	token, err := jwtauth.VerifyToken(m.auth, tokenString)
	if err != nil {
		return nil, err
	}
	return token.PrivateClaims(), nil
}
