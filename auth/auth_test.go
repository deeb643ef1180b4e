package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/spgsite/cms-api/config"
	"github.com/spgsite/cms-api/models"
	"github.com/spgsite/cms-api/store"

	"github.com/Noah-Huppert/golog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// authTest holds an Authenticator backed by a temporary SQLite store
type authTest struct {
	auth  *Authenticator
	store store.Store
	clock time.Time
}

func newAuthTest(t *testing.T, environment string) *authTest {
	ctx := context.Background()

	s, err := store.NewSQLiteStore(ctx, filepath.Join(t.TempDir(), "cms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close(ctx) })

	cfg := &config.Config{
		Environment:       environment,
		SessionTTL:        time.Hour,
		SessionCookieName: "cms_session",
	}

	at := &authTest{
		store: s,
		clock: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}
	at.auth = NewAuthenticator(s, cfg, golog.NewStdLogger("auth-test"))
	at.auth.now = func() time.Time { return at.clock }

	return at
}

// addUser creates a user, and an admin entry if admin is true
func (at *authTest) addUser(t *testing.T, email, password string, admin bool) *models.User {
	ctx := context.Background()

	hash, err := HashPassword(password)
	require.NoError(t, err)

	user := &models.User{Email: email, PasswordHash: hash}
	require.NoError(t, at.store.CreateUser(ctx, user))

	if admin {
		require.NoError(t, at.store.CreateAdmin(ctx, &models.Admin{ID: user.ID, Username: "boss"}))
	}

	return user
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)

	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword("hunter22", hash))
	assert.False(t, CheckPassword("hunter23", hash))
}

func TestTokens(t *testing.T) {
	a, err := NewToken()
	require.NoError(t, err)
	b, err := NewToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
	assert.Len(t, HashToken(a), 64)
	assert.Equal(t, HashToken(a), HashToken(a))
	assert.NotEqual(t, a, HashToken(a))
}

func TestBearerToken(t *testing.T) {
	tests := map[string]string{
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"":             "",
	}

	for header, expected := range tests {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if len(header) > 0 {
			r.Header.Set("Authorization", header)
		}

		assert.Equalf(t, expected, BearerToken(r), "header %q", header)
	}
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	at := newAuthTest(t, config.EnvironmentProduction)
	user := at.addUser(t, "boss@example.com", "hunter22", true)
	at.addUser(t, "guest@example.com", "hunter22", false)

	_, err := at.auth.Login(ctx, "boss@example.com", "wrong")
	assert.True(t, errors.Is(err, ErrBadCredentials))

	_, err = at.auth.Login(ctx, "nobody@example.com", "hunter22")
	assert.True(t, errors.Is(err, ErrBadCredentials))

	_, err = at.auth.Login(ctx, "guest@example.com", "hunter22")
	assert.True(t, errors.Is(err, ErrNotAdmin), "no self provisioning in production")

	res, err := at.auth.Login(ctx, "BOSS@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.User.ID)
	assert.Equal(t, "boss", res.Admin.Username)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, at.clock.Add(time.Hour), res.ExpiresAt)

	session, err := at.store.GetSession(ctx, HashToken(res.Token))
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.UserID)
}

func TestLoginSelfProvisions(t *testing.T) {
	ctx := context.Background()
	at := newAuthTest(t, "development")
	user := at.addUser(t, "new@example.com", "hunter22", false)

	res, err := at.auth.Login(ctx, "new@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, res.Admin.ID)
	assert.Equal(t, "new@example.com", res.Admin.Username)

	_, err = at.store.GetAdmin(ctx, user.ID)
	assert.NoError(t, err)

	at.auth.Cfg.Environment = config.EnvironmentProduction
	at.auth.Cfg.AllowSelfAdminCreate = true
	other := at.addUser(t, "other@example.com", "hunter22", false)

	res, err = at.auth.Login(ctx, "other@example.com", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, other.ID, res.Admin.ID)
}

func TestResolveTokenSlidingExpiry(t *testing.T) {
	ctx := context.Background()
	at := newAuthTest(t, config.EnvironmentProduction)
	at.addUser(t, "boss@example.com", "hunter22", true)

	res, err := at.auth.Login(ctx, "boss@example.com", "hunter22")
	require.NoError(t, err)

	_, err = at.auth.ResolveToken(ctx, "not-a-token")
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	at.clock = at.clock.Add(50 * time.Minute)
	user, err := at.auth.ResolveToken(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)

	session, err := at.store.GetSession(ctx, HashToken(res.Token))
	require.NoError(t, err)
	assert.Equal(t, at.clock.Add(time.Hour), session.ExpiresAt, "expiry moved back")

	at.clock = at.clock.Add(59 * time.Minute)
	_, err = at.auth.ResolveToken(ctx, res.Token)
	assert.NoError(t, err, "still valid thanks to renewal")

	at.clock = at.clock.Add(2 * time.Hour)
	_, err = at.auth.ResolveToken(ctx, res.Token)
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	_, err = at.store.GetSession(ctx, HashToken(res.Token))
	assert.True(t, errors.Is(err, store.ErrNotFound), "expired session is deleted")
}

func TestValidateAdminRequest(t *testing.T) {
	ctx := context.Background()
	at := newAuthTest(t, "development")
	at.addUser(t, "boss@example.com", "hunter22", true)
	guest := at.addUser(t, "guest@example.com", "hunter22", false)

	admin, err := at.auth.Login(ctx, "boss@example.com", "hunter22")
	require.NoError(t, err)

	// Sessions of non admins can only exist if the admin entry was removed later
	nonAdmin, err := at.auth.Login(ctx, "guest@example.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, at.store.DeleteAdmin(ctx, guest.ID))

	newRequest := func(bearer, cookie string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/admin/me", nil)
		if len(bearer) > 0 {
			r.Header.Set("Authorization", "Bearer "+bearer)
		}
		if len(cookie) > 0 {
			r.AddCookie(&http.Cookie{Name: "cms_session", Value: cookie})
		}
		return r
	}

	_, err = at.auth.ValidateAdminRequest(newRequest("", ""))
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	_, err = at.auth.ValidateAdminRequest(newRequest("garbage", ""))
	assert.True(t, errors.Is(err, ErrUnauthenticated))

	id, err := at.auth.ValidateAdminRequest(newRequest(admin.Token, ""))
	require.NoError(t, err)
	assert.Equal(t, "boss", id.Admin.Username)
	assert.Empty(t, id.CookieToken)

	id, err = at.auth.ValidateAdminRequest(newRequest("", admin.Token))
	require.NoError(t, err, "cookie session")
	assert.Equal(t, admin.User.ID, id.User.ID)
	assert.Equal(t, admin.Token, id.CookieToken)

	id, err = at.auth.ValidateAdminRequest(newRequest("garbage", admin.Token))
	require.NoError(t, err, "falls back to the cookie when the bearer token is invalid")
	assert.Equal(t, admin.User.ID, id.User.ID)
	assert.Equal(t, admin.Token, id.CookieToken)

	_, err = at.auth.ValidateAdminRequest(newRequest(nonAdmin.Token, admin.Token))
	assert.True(t, errors.Is(err, ErrNotAdmin), "a valid bearer token wins over the cookie")
}

func TestValidateAdminRequestNotAdmin(t *testing.T) {
	ctx := context.Background()
	at := newAuthTest(t, "development")
	guest := at.addUser(t, "guest@example.com", "hunter22", false)

	res, err := at.auth.Login(ctx, "guest@example.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, at.store.DeleteAdmin(ctx, guest.ID))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+res.Token)

	_, err = at.auth.ValidateAdminRequest(r)
	assert.True(t, errors.Is(err, ErrNotAdmin))

	_, err = at.auth.ValidateAdminToken(ctx, res.Token)
	assert.True(t, errors.Is(err, ErrNotAdmin))
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	at := newAuthTest(t, "development")
	at.addUser(t, "boss@example.com", "hunter22", true)

	res, err := at.auth.Login(ctx, "boss@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, at.auth.Logout(ctx, res.Token))
	require.NoError(t, at.auth.Logout(ctx, res.Token), "logging out twice is fine")
	require.NoError(t, at.auth.Logout(ctx, ""))

	_, err = at.auth.ResolveToken(ctx, res.Token)
	assert.True(t, errors.Is(err, ErrUnauthenticated))
}

func TestSessionCookies(t *testing.T) {
	at := newAuthTest(t, "development")

	r := httptest.NewRequest(http.MethodPost, "/api/admin/login", nil)
	r.Header.Set("X-Forwarded-Proto", "https")
	w := httptest.NewRecorder()
	at.auth.SetSessionCookie(w, r, "tok")

	cookies := w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "cms_session", cookies[0].Name)
	assert.Equal(t, "tok", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.True(t, cookies[0].Secure)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)
	assert.Equal(t, 3600, cookies[0].MaxAge)

	r = httptest.NewRequest(http.MethodPost, "/api/admin/logout", nil)
	w = httptest.NewRecorder()
	at.auth.ClearSessionCookie(w, r)

	cookies = w.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "", cookies[0].Value)
	assert.False(t, cookies[0].Secure)
	assert.True(t, cookies[0].MaxAge < 0)
}
