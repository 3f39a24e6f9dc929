package api

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	AdminCookieName = "hellscape_admin"

	AdminSessionDuration = 12 * time.Hour

	CookieSecure   = false // true behind HTTPS
	CookieHTTPOnly = true
	CookieSameSite = http.SameSiteLaxMode
)

var (
	ErrAdminDisabled = errors.New("admin access disabled")
	ErrBadToken      = errors.New("invalid admin token")
	errBadCookie     = errors.New("invalid cookie")
)

// AdminSession is an authenticated operator session.
type AdminSession struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AdminAuth guards the admin routes. Operators log in with the shared
// token and receive a signed session cookie; scripts may instead send the
// token as a bearer credential. An empty token disables admin access.
type AdminAuth struct {
	mu       sync.RWMutex
	sessions map[string]AdminSession

	token     []byte
	secretKey []byte
	now       func() time.Time
	logger    zerolog.Logger
}

// NewAdminAuth creates the guard. The cookie signing key is random per
// process, so sessions do not survive a restart.
func NewAdminAuth(token string, logger zerolog.Logger) *AdminAuth {
	secretKey := make([]byte, 32)
	if _, err := rand.Read(secretKey); err != nil {
		// crypto/rand does not fail on supported platforms
		panic(err)
	}
	return &AdminAuth{
		sessions:  make(map[string]AdminSession),
		token:     []byte(token),
		secretKey: secretKey,
		now:       time.Now,
		logger:    logger.With().Str("component", "admin_auth").Logger(),
	}
}

// Enabled reports whether a token is configured.
func (a *AdminAuth) Enabled() bool {
	return len(a.token) > 0
}

func (a *AdminAuth) checkToken(token string) error {
	if !a.Enabled() {
		return ErrAdminDisabled
	}
	if subtle.ConstantTimeCompare([]byte(token), a.token) != 1 {
		return ErrBadToken
	}
	return nil
}

// Login exchanges the token for a session.
func (a *AdminAuth) Login(token string) (AdminSession, error) {
	if err := a.checkToken(token); err != nil {
		return AdminSession{}, err
	}

	now := a.now()
	s := AdminSession{
		ID:        uuid.NewString(),
		CreatedAt: now,
		ExpiresAt: now.Add(AdminSessionDuration),
	}

	a.mu.Lock()
	a.sessions[s.ID] = s
	a.pruneLocked(now)
	a.mu.Unlock()

	a.logger.Info().Str("session", s.ID).Msg("admin session created")
	return s, nil
}

// Logout forgets a session.
func (a *AdminAuth) Logout(id string) {
	a.mu.Lock()
	delete(a.sessions, id)
	a.mu.Unlock()
}

// Session returns a live session by id.
func (a *AdminAuth) Session(id string) (AdminSession, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	s, ok := a.sessions[id]
	if !ok || a.now().After(s.ExpiresAt) {
		return AdminSession{}, false
	}
	return s, true
}

func (a *AdminAuth) pruneLocked(now time.Time) {
	for id, s := range a.sessions {
		if now.After(s.ExpiresAt) {
			delete(a.sessions, id)
		}
	}
}

// Authorized reports whether r carries a valid bearer token or session
// cookie.
func (a *AdminAuth) Authorized(r *http.Request) bool {
	if !a.Enabled() {
		return false
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return a.checkToken(bearer) == nil
	}
	_, ok := a.sessionFromCookie(r)
	return ok
}

func (a *AdminAuth) sessionFromCookie(r *http.Request) (AdminSession, bool) {
	cookie, err := r.Cookie(AdminCookieName)
	if err != nil {
		return AdminSession{}, false
	}
	id, err := a.decodeCookie(cookie.Value)
	if err != nil {
		return AdminSession{}, false
	}
	return a.Session(id)
}

// Middleware rejects requests that are not authorized.
func (a *AdminAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			writeError(w, ErrAdminDisabled.Error(), http.StatusForbidden)
			return
		}
		if !a.Authorized(r) {
			writeError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// HandleLogin handles POST /api/admin/login with body {"token": "..."}.
func (a *AdminAuth) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request", http.StatusBadRequest)
		return
	}

	s, err := a.Login(req.Token)
	switch {
	case errors.Is(err, ErrAdminDisabled):
		writeError(w, err.Error(), http.StatusForbidden)
		return
	case err != nil:
		a.logger.Warn().Str("ip", GetClientIP(r)).Msg("admin login rejected")
		writeError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    a.encodeCookie(s.ID),
		Path:     "/",
		MaxAge:   int(AdminSessionDuration.Seconds()),
		HttpOnly: CookieHTTPOnly,
		Secure:   CookieSecure,
		SameSite: CookieSameSite,
	})
	writeJSON(w, map[string]interface{}{
		"authenticated": true,
		"expiresAt":     s.ExpiresAt,
	})
}

// HandleStatus handles GET /api/admin/status.
func (a *AdminAuth) HandleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]interface{}{
		"enabled":       a.Enabled(),
		"authenticated": a.Authorized(r),
	})
}

// HandleLogout handles POST /api/admin/logout.
func (a *AdminAuth) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if s, ok := a.sessionFromCookie(r); ok {
		a.Logout(s.ID)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: CookieHTTPOnly,
		Secure:   CookieSecure,
		SameSite: CookieSameSite,
	})
	writeJSON(w, map[string]bool{"authenticated": false})
}

// encodeCookie returns base64(id.hexsig)
func (a *AdminAuth) encodeCookie(id string) string {
	return base64.URLEncoding.EncodeToString([]byte(id + "." + a.sign(id)))
}

func (a *AdminAuth) decodeCookie(value string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(value)
	if err != nil {
		return "", errBadCookie
	}
	id, sig, ok := strings.Cut(string(decoded), ".")
	if !ok || !hmac.Equal([]byte(sig), []byte(a.sign(id))) {
		return "", errBadCookie
	}
	return id, nil
}

func (a *AdminAuth) sign(id string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(id))
	return hex.EncodeToString(mac.Sum(nil))
}
