// Package auth signs users in and decides which requests may use the admin API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spgsite/cms-api/config"
	"github.com/spgsite/cms-api/models"
	"github.com/spgsite/cms-api/store"

	"github.com/Noah-Huppert/golog"
)

// ErrUnauthenticated is returned when a request carries no valid session
var ErrUnauthenticated = errors.New("not authenticated")

// ErrNotAdmin is returned when an authenticated user is not in the admins list
var ErrNotAdmin = errors.New("not an admin")

// ErrBadCredentials is returned when an email and password do not match a user
var ErrBadCredentials = errors.New("invalid email or password")

// extendAfter is the minimum time between two renewals of the same session
const extendAfter = time.Minute

// Identity is an authenticated user and, if they are allowed to use the
// admin API, their admin entry
type Identity struct {
	User  *models.User
	Admin *models.Admin

	// CookieToken is the session token if it was read from the session
	// cookie, empty for bearer tokens. The cookie must be re-issued so its
	// lifetime follows the renewed session.
	CookieToken string
}

// LoginResult is returned by a successful login
type LoginResult struct {
	Identity

	// Token is the plain session token. It is only ever returned here.
	Token string

	// ExpiresAt is when the session expires unless it is used
	ExpiresAt time.Time
}

// Authenticator manages sessions and checks admin access
type Authenticator struct {
	// Store holds users, admins and sessions
	Store store.Store

	// Cfg is the application configuration
	Cfg *config.Config

	// Logger
	Logger golog.Logger

	// now returns the current time
	now func() time.Time
}

// NewAuthenticator creates an Authenticator
func NewAuthenticator(s store.Store, cfg *config.Config, logger golog.Logger) *Authenticator {
	return &Authenticator{
		Store:  s,
		Cfg:    cfg,
		Logger: logger,
		now:    time.Now,
	}
}

// Login checks an email and password, makes sure the user is an admin and
// starts a session.
//
// Users who are not admins yet are added to the admins list if
// Cfg.SelfAdminCreateAllowed() is true.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	// {{{1 Check credentials
	user, err := a.Store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrBadCredentials
	} else if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !CheckPassword(password, user.PasswordHash) {
		return nil, ErrBadCredentials
	}

	// {{{1 Check admins list
	admin, err := a.Store.GetAdmin(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		if !a.Cfg.SelfAdminCreateAllowed() {
			return nil, ErrNotAdmin
		}

		admin, err = a.provisionAdmin(ctx, user)
		if err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	// {{{1 Start session
	token, err := NewToken()
	if err != nil {
		return nil, err
	}

	now := a.now()
	session := &models.Session{
		TokenHash: HashToken(token),
		UserID:    user.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(a.Cfg.SessionTTL),
	}

	if err := a.Store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return &LoginResult{
		Identity: Identity{
			User:  user,
			Admin: admin,
		},
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

// provisionAdmin adds user to the admins list
func (a *Authenticator) provisionAdmin(ctx context.Context, user *models.User) (*models.Admin, error) {
	admin := &models.Admin{
		ID:        user.ID,
		Username:  user.Email,
		CreatedAt: a.now(),
	}

	err := a.Store.CreateAdmin(ctx, admin)
	if errors.Is(err, store.ErrConflict) {
		// Another login created it first
		return a.Store.GetAdmin(ctx, user.ID)
	} else if err != nil {
		return nil, fmt.Errorf("failed to add user to admins: %w", err)
	}

	a.Logger.Infof("added user %s (%s) to admins on login", user.ID, user.Email)

	return admin, nil
}

// ResolveToken returns the user who owns the session identified by token.
// Using a session pushes its expiry back by Cfg.SessionTTL.
func (a *Authenticator) ResolveToken(ctx context.Context, token string) (*models.User, error) {
	if len(token) == 0 {
		return nil, ErrUnauthenticated
	}

	hash := HashToken(token)

	session, err := a.Store.GetSession(ctx, hash)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	now := a.now()
	if session.Expired(now) {
		if err := a.Store.DeleteSession(ctx, hash); err != nil && !errors.Is(err, store.ErrNotFound) {
			a.Logger.Errorf("failed to delete expired session: %s", err.Error())
		}

		return nil, ErrUnauthenticated
	}

	expiresAt := now.Add(a.Cfg.SessionTTL)
	if expiresAt.Sub(session.ExpiresAt) >= extendAfter {
		if err := a.Store.ExtendSession(ctx, hash, expiresAt); err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("failed to extend session: %w", err)
		}
	}

	user, err := a.Store.GetUser(ctx, session.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	} else if err != nil {
		return nil, fmt.Errorf("failed to get session user: %w", err)
	}

	return user, nil
}

// resolveRequest finds the user of a request. The bearer token is tried
// first, the session cookie second. If the cookie was used its token is
// returned.
func (a *Authenticator) resolveRequest(r *http.Request) (*models.User, string, error) {
	var lastErr error = ErrUnauthenticated

	bearer := BearerToken(r)
	cookie := a.SessionCookie(r)

	for _, token := range []string{bearer, cookie} {
		if len(token) == 0 {
			continue
		}

		user, err := a.ResolveToken(r.Context(), token)
		if err == nil {
			if token != bearer {
				return user, token, nil
			}

			return user, "", nil
		}

		if !errors.Is(err, ErrUnauthenticated) {
			lastErr = err
		}
	}

	return nil, "", lastErr
}

// ValidateAdminRequest authenticates the request and checks the user is in
// the admins list. Returns ErrUnauthenticated if no valid session was
// presented and ErrNotAdmin if the user is not an admin.
func (a *Authenticator) ValidateAdminRequest(r *http.Request) (*Identity, error) {
	user, cookieToken, err := a.resolveRequest(r)
	if err != nil {
		return nil, err
	}

	id, err := a.identify(r.Context(), user)
	if err != nil {
		return nil, err
	}

	id.CookieToken = cookieToken
	return id, nil
}

// ValidateAdminToken is ValidateAdminRequest for a bare token
func (a *Authenticator) ValidateAdminToken(ctx context.Context, token string) (*Identity, error) {
	user, err := a.ResolveToken(ctx, token)
	if err != nil {
		return nil, err
	}

	return a.identify(ctx, user)
}

// identify looks up the admin entry of user
func (a *Authenticator) identify(ctx context.Context, user *models.User) (*Identity, error) {
	admin, err := a.Store.GetAdmin(ctx, user.ID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotAdmin
	} else if err != nil {
		return nil, fmt.Errorf("failed to get admin: %w", err)
	}

	return &Identity{
		User:  user,
		Admin: admin,
	}, nil
}

// Logout ends the session identified by token. Unknown tokens are ignored.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if len(token) == 0 {
		return nil
	}

	err := a.Store.DeleteSession(ctx, HashToken(token))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	return nil
}
