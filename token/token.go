// Package token issues and verifies the platform's self-contained bearer
// tokens. Access and refresh tokens share one signing mechanism and are
// distinguished by a mandatory `typ` claim; a parser expecting one kind
// rejects the other.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind discriminates access tokens from refresh tokens.
type Kind string

const (
	// KindAccess marks short-path API credentials.
	KindAccess Kind = "access"
	// KindRefresh marks tokens accepted only by the refresh endpoint.
	KindRefresh Kind = "refresh"
)

var (
	// ErrMalformed is returned when the token is not a well-formed compact JWT.
	ErrMalformed = errors.New("malformed token")
	// ErrSignature is returned when the signature does not verify.
	ErrSignature = errors.New("invalid token signature")
	// ErrExpired is returned when a correctly signed token is past its expiry.
	ErrExpired = errors.New("token expired")
	// ErrWrongType is returned when an access parser receives a refresh
	// token or vice versa.
	ErrWrongType = errors.New("wrong token type")
)

// Config holds the signing parameters. Secret is the HMAC-SHA256 server
// key and must be at least 32 bytes.
type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Leeway     time.Duration
}

// Claims is the decoded token payload. Tier and Permissions are a
// point-in-time snapshot taken at issuance; privilege-escalating
// decisions must re-resolve live identity state instead of trusting
// them on long-lived tokens.
type Claims struct {
	Kind        Kind     `json:"typ"`
	Role        string   `json:"role,omitempty"`
	Tier        string   `json:"tier,omitempty"`
	Permissions []string `json:"perms,omitempty"`
	SessionID   string   `json:"sid,omitempty"`
	jwt.RegisteredClaims
}

// Service signs and verifies tokens. Pure function of input, secret, and
// clock; safe for concurrent use.
type Service struct {
	config Config
}

// NewService validates the configuration and returns a token [Service].
func NewService(cfg Config) (*Service, error) {
	if len(cfg.Secret) < 32 {
		return nil, errors.New("token secret must be at least 32 bytes")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.RefreshTTL < cfg.AccessTTL {
		return nil, errors.New("refresh TTL must not be shorter than access TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Service{config: cfg}, nil
}

// IssueAccess signs an access token carrying the identity's role, tier,
// and permission snapshot.
func (s *Service) IssueAccess(userID, sessionID, role, tier string, perms []string) (string, error) {
	return s.issue(Claims{
		Kind:        KindAccess,
		Role:        role,
		Tier:        tier,
		Permissions: perms,
		SessionID:   sessionID,
	}, userID, s.config.AccessTTL)
}

// IssueRefresh signs a refresh token bound to the originating session.
// Refresh tokens carry no permission snapshot; permissions are re-resolved
// when the token is redeemed.
func (s *Service) IssueRefresh(userID, sessionID string) (string, error) {
	return s.issue(Claims{
		Kind:      KindRefresh,
		SessionID: sessionID,
	}, userID, s.config.RefreshTTL)
}

func (s *Service) issue(claims Claims, userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Issuer:    s.config.Issuer,
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		ID:        uuid.NewString(),
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(s.config.Secret)
}

// ParseAccess verifies a token and requires it to be of kind access.
func (s *Service) ParseAccess(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, KindAccess)
}

// ParseRefresh verifies a token and requires it to be of kind refresh.
func (s *Service) ParseRefresh(tokenStr string) (*Claims, error) {
	return s.parse(tokenStr, KindRefresh)
}

func (s *Service) parse(tokenStr string, want Kind) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if s.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(s.config.Leeway))
	}
	if s.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(s.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	tok, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.config.Secret, nil
	})
	if err != nil {
		return nil, translateParseError(err)
	}

	claims, ok := tok.Claims.(*Claims)
	if !ok || !tok.Valid {
		return nil, ErrMalformed
	}
	if claims.Kind != want {
		return nil, ErrWrongType
	}

	return claims, nil
}

// translateParseError maps golang-jwt failures onto this package's
// sentinels. Order matters: a garbled token is malformed before it is
// anything else, and a signature failure outranks claim validation.
func translateParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignature
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	default:
		return ErrMalformed
	}
}
