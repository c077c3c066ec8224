// Package auth issues and verifies the bearer tokens clients present on
// the websocket URL, and hashes account passwords for the HTTP layer.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mlaroche/chatnet/pkg/model"
)

const DefaultTokenTTL = 24 * time.Hour

var ErrInvalidToken = errors.New("auth: invalid or expired token")

// Identity is the authenticated principal extracted from a token.
type Identity struct {
	ID       string
	Username string
	Roles    model.RoleSet
}

// claims is the JWT payload carried by chatnet tokens.
type claims struct {
	jwt.RegisteredClaims
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// Manager signs and verifies HS256 tokens with a shared secret.
type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// New creates a token manager. An empty secret is rejected at server
// startup, not here.
func New(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Manager{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Mint issues a signed token for the user.
func (m *Manager) Mint(user *model.User) (string, error) {
	now := m.now()
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
		Username: user.Username,
		Roles:    user.Roles.Strings(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Authenticate verifies a bearer token and returns the identity it carries.
func (m *Manager) Authenticate(token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	var parsed claims
	_, err := jwt.ParseWithClaims(token, &parsed, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if parsed.Subject == "" || parsed.Username == "" {
		return nil, ErrInvalidToken
	}

	return &Identity{
		ID:       parsed.Subject,
		Username: parsed.Username,
		Roles:    model.ParseRoleSet(parsed.Roles),
	}, nil
}

// HashPassword hashes an account password with bcrypt.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
