package studyblog

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/argon2"
)

const sessionName = "blog_session"

// Argon2id parameters (OWASP second-choice profile: m=19456, t=2, p=1).
const (
	argon2Time    = 2
	argon2Memory  = 19 * 1024
	argon2Threads = 1
	argon2KeyLen  = 32
	argon2SaltLen = 16
)

// HashPassword creates an argon2id hash of password, encoded as
// $argon2id$v=19$m=19456,t=2,p=1$salt$hash.
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// CheckPassword verifies password against an encoded argon2id hash using a
// constant-time comparison.
func CheckPassword(password, encodedHash string) (bool, error) {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("invalid hash format")
	}
	var memory, timeCost uint32
	var threads uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &timeCost, &threads); err != nil {
		return false, fmt.Errorf("parsing parameters: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decoding salt: %w", err)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decoding hash: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt, timeCost, memory, threads, uint32(len(expected)))
	return subtle.ConstantTimeCompare(hash, expected) == 1, nil
}

// currentUserID returns the signed-in identity's id, or "" when there is no
// session.
func currentUserID(c echo.Context) string {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return ""
	}
	id, _ := sess.Values["user_id"].(string)
	return id
}

func setUserSession(c echo.Context, userID string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["user_id"] = userID
	return sess.Save(c.Request(), c.Response())
}

func clearUserSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	// Drop the identity from the payload too; expiring the cookie alone
	// leaves a replayable value.
	delete(sess.Values, "user_id")
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// currentUser resolves the session identity against the store. Returns nil
// when no identity is signed in or the session references a deleted user.
func (a *App) currentUser(c echo.Context) *User {
	id := currentUserID(c)
	if id == "" {
		return nil
	}
	user, err := a.Store.GetUserByID(c.Request().Context(), id)
	if err != nil {
		return nil
	}
	return &user
}

type credentials struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

func (a *App) handleRegister(c echo.Context) error {
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	creds.Email = strings.TrimSpace(creds.Email)
	if !strings.Contains(creds.Email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "a valid email is required")
	}
	if len(creds.Password) < 6 {
		return echo.NewHTTPError(http.StatusBadRequest, "password must be at least 6 characters")
	}
	hash, err := HashPassword(creds.Password)
	if err != nil {
		return err
	}
	user, err := a.Store.CreateUser(c.Request().Context(), creds.Email, hash)
	if err != nil {
		// Unique constraint on email is the common failure here.
		return echo.NewHTTPError(http.StatusConflict, "could not create account")
	}
	return c.JSON(http.StatusCreated, user)
}

func (a *App) handleLogin(c echo.Context) error {
	if !a.loginLimiter.Check(c.RealIP()) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var creds credentials
	if err := c.Bind(&creds); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	user, err := a.Store.GetUserByEmail(c.Request().Context(), strings.TrimSpace(creds.Email))
	if err != nil {
		a.loginLimiter.Record(c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	ok, err := CheckPassword(creds.Password, user.PasswordHash)
	if err != nil || !ok {
		a.loginLimiter.Record(c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if err := setUserSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// handleMe exposes the current identity to the client, or 401 when signed out.
func (a *App) handleMe(c echo.Context) error {
	user := a.currentUser(c)
	if user == nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "not signed in")
	}
	return c.JSON(http.StatusOK, user)
}
