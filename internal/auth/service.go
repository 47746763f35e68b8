// Package auth guards the API behind the single administrator account.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/noah-isme/backend-liquido/internal/common"
)

const defaultAccessTTL = 12 * time.Hour

var errInvalidCredentials = common.NewAppError("INVALID_CREDENTIALS", "invalid username or password", http.StatusUnauthorized, nil)

// Service verifies admin credentials and issues and checks access tokens.
type Service struct {
	username     string
	passwordHash string
	decoyHash    string
	secret       []byte
	accessTTL    time.Duration
	now          func() time.Time
	signer       jwa.SignatureAlgorithm
	validator    TokenValidator
	issuer       string
	audience     string
	clockSkew    time.Duration
	denylist     Denylist
}

// Config configures the auth service.
type Config struct {
	Username       string
	PasswordHash   string
	Secret         string
	AccessTokenTTL time.Duration
	Issuer         string
	Audience       string
	ClockSkew      time.Duration
	Denylist       Denylist
}

// Admin is the authenticated principal returned to clients.
type Admin struct {
	Username string `json:"username"`
}

// LoginResult bundles token material returned after a successful login.
type LoginResult struct {
	Admin        Admin     `json:"admin"`
	AccessToken  string    `json:"access_token"`
	AccessExpiry time.Time `json:"access_token_expires_at"`
}

// Claims is the verified content of an access token.
type Claims struct {
	Subject string
	ID      string
	Expiry  time.Time
}

// NewService constructs a Service instance with sane defaults.
func NewService(cfg Config) (*Service, error) {
	username := strings.TrimSpace(cfg.Username)
	if username == "" {
		return nil, errors.New("auth: admin username is required")
	}
	params, _, _, err := argon2id.DecodeHash(cfg.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("auth: admin password hash: %w", err)
	}
	// A wrong username is checked against a decoy with the same cost, so it
	// takes as long as a wrong password.
	decoy, err := argon2id.CreateHash(uuid.NewString(), params)
	if err != nil {
		return nil, fmt.Errorf("auth: decoy hash: %w", err)
	}
	secret := strings.TrimSpace(cfg.Secret)
	if secret == "" {
		return nil, errors.New("auth: secret is required")
	}
	accessTTL := cfg.AccessTokenTTL
	if accessTTL <= 0 {
		accessTTL = defaultAccessTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = "backend-liquido"
	}
	audience := strings.TrimSpace(cfg.Audience)
	if audience == "" {
		audience = "liquido-admin"
	}
	clockSkew := max(cfg.ClockSkew, 0)
	denylist := cfg.Denylist
	if denylist == nil {
		denylist = NewMemoryDenylist()
	}

	return &Service{
		username:     username,
		passwordHash: cfg.PasswordHash,
		decoyHash:    decoy,
		secret:       []byte(secret),
		accessTTL:    accessTTL,
		now:          time.Now,
		signer:       jwa.HS256,
		validator: TokenValidator{
			Issuer:    issuer,
			Audience:  audience,
			ClockSkew: clockSkew,
			Algorithm: jwa.HS256,
		},
		issuer:    issuer,
		audience:  audience,
		clockSkew: clockSkew,
		denylist:  denylist,
	}, nil
}

// WithNow allows tests to override the time provider.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// HashPassword produces an argon2id hash suitable for ADMIN_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	return argon2id.CreateHash(password, argon2id.DefaultParams)
}

// Login verifies the admin credentials and issues an access token.
func (s *Service) Login(_ context.Context, username, password string) (LoginResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return LoginResult{}, errInvalidCredentials
	}

	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	hash := s.passwordHash
	if !userOK {
		hash = s.decoyHash
	}
	passOK, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		return LoginResult{}, fmt.Errorf("compare password: %w", err)
	}
	if !userOK || !passOK {
		return LoginResult{}, errInvalidCredentials
	}

	token, expiry, err := s.signAccessToken(s.username)
	if err != nil {
		return LoginResult{}, fmt.Errorf("sign access token: %w", err)
	}
	return LoginResult{
		Admin:        Admin{Username: s.username},
		AccessToken:  token,
		AccessExpiry: expiry,
	}, nil
}

// Logout revokes the token so it is refused until it would have expired, and
// returns its subject. Invalid tokens are ignored.
func (s *Service) Logout(ctx context.Context, token string) (string, error) {
	claims, err := s.ParseAccessToken(ctx, token)
	if err != nil {
		return "", nil
	}
	if err := s.denylist.Revoke(ctx, claims.ID, claims.Expiry); err != nil {
		return "", fmt.Errorf("revoke token: %w", err)
	}
	return claims.Subject, nil
}

// Me returns the principal behind subject.
func (s *Service) Me(subject string) (Admin, error) {
	if subject != s.username {
		return Admin{}, common.Unauthorized("unauthorized", nil)
	}
	return Admin{Username: s.username}, nil
}

// ParseAccessToken verifies signature, claims and revocation status.
func (s *Service) ParseAccessToken(ctx context.Context, token string) (Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return Claims{}, common.Unauthorized("missing token", nil)
	}
	algorithm, err := extractTokenAlgorithm(trimmed)
	if err != nil {
		return Claims{}, common.Unauthorized("invalid token", err)
	}
	if s.validator.Algorithm != "" && algorithm != s.validator.Algorithm {
		return Claims{}, common.Unauthorized("invalid token", fmt.Errorf("unexpected token algorithm %s", algorithm))
	}
	parsed, err := jwt.ParseString(trimmed, jwt.WithKey(algorithm, s.secret), jwt.WithValidate(false))
	if err != nil {
		return Claims{}, common.Unauthorized("invalid token", err)
	}
	if err := s.validator.Validate(parsed, algorithm, s.now()); err != nil {
		return Claims{}, common.Unauthorized("invalid token", err)
	}
	revoked, err := s.denylist.Revoked(ctx, parsed.JwtID())
	if err != nil {
		return Claims{}, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return Claims{}, common.Unauthorized("token revoked", nil)
	}
	return Claims{Subject: parsed.Subject(), ID: parsed.JwtID(), Expiry: parsed.Expiration()}, nil
}

func extractTokenAlgorithm(token string) (jwa.SignatureAlgorithm, error) {
	message, err := jws.ParseString(token)
	if err != nil {
		return "", err
	}
	signatures := message.Signatures()
	if len(signatures) != 1 {
		return "", errors.New("auth: token must carry exactly one signature")
	}
	headers := signatures[0].ProtectedHeaders()
	if headers == nil {
		return "", errors.New("auth: token missing protected headers")
	}
	switch alg := headers.Algorithm(); alg {
	case "":
		return "", errors.New("auth: token missing algorithm")
	case jwa.NoSignature:
		return "", errors.New("auth: token uses none algorithm")
	default:
		return alg, nil
	}
}

func (s *Service) signAccessToken(subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.accessTTL)
	token, err := jwt.NewBuilder().
		JwtID(uuid.NewString()).
		Subject(subject).
		Issuer(s.issuer).
		Audience([]string{s.audience}).
		IssuedAt(now).
		NotBefore(now.Add(-s.clockSkew)).
		Expiration(expiresAt).
		Build()
	if err != nil {
		return "", time.Time{}, err
	}
	signed, err := jwt.Sign(token, jwt.WithKey(s.signer, s.secret))
	if err != nil {
		return "", time.Time{}, err
	}
	return string(signed), expiresAt, nil
}
