package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/smallbiznis/hrledger/internal/auth/domain"
	"github.com/smallbiznis/hrledger/internal/clock"
	"github.com/smallbiznis/hrledger/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const issuer = "hrledger"

type Params struct {
	fx.In

	Log   *zap.Logger
	Cfg   config.Config
	Clock clock.Clock `optional:"true"`
}

type adminKey struct {
	id   string
	role string
	hash string
}

type Service struct {
	log    *zap.Logger
	secret []byte
	keys   []adminKey
	clock  clock.Clock
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.New()
	}
	keys := make([]adminKey, 0, len(p.Cfg.AdminAPIKeys))
	for _, k := range p.Cfg.AdminAPIKeys {
		keys = append(keys, adminKey{id: k.ID, role: k.Role, hash: domain.HashAPIKey(k.Key)})
	}
	log := p.Log.Named("auth.service")
	if strings.TrimSpace(p.Cfg.AuthJWTSecret) == "" {
		log.Warn("AUTH_JWT_SECRET is empty, user endpoints will reject every request")
	}
	return &Service{
		log:    log,
		secret: []byte(strings.TrimSpace(p.Cfg.AuthJWTSecret)),
		keys:   keys,
		clock:  c,
	}
}

type userClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

func (s *Service) AuthenticateUser(ctx context.Context, rawToken string) (domain.User, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return domain.User{}, domain.ErrMissingToken
	}
	if len(s.secret) == 0 {
		return domain.User{}, domain.ErrNotConfigured
	}

	claims := &userClaims{}
	token, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.clock.Now), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.User{}, domain.ErrTokenExpired
		}
		return domain.User{}, domain.ErrInvalidToken
	}
	if !token.Valid {
		return domain.User{}, domain.ErrInvalidToken
	}

	userID := strings.TrimSpace(claims.Subject)
	if userID == "" {
		return domain.User{}, domain.ErrInvalidToken
	}
	return domain.User{ID: userID, Email: strings.TrimSpace(claims.Email)}, nil
}

// AuthenticateAdmin compares the key hash against every configured key so the
// time taken does not reveal which key matched.
func (s *Service) AuthenticateAdmin(ctx context.Context, rawKey string) (domain.Admin, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return domain.Admin{}, domain.ErrMissingToken
	}
	if len(s.keys) == 0 {
		return domain.Admin{}, domain.ErrNotConfigured
	}

	hash := []byte(domain.HashAPIKey(rawKey))
	var found *adminKey
	for i := range s.keys {
		if subtle.ConstantTimeCompare([]byte(s.keys[i].hash), hash) == 1 && found == nil {
			found = &s.keys[i]
		}
	}
	if found == nil {
		return domain.Admin{}, domain.ErrInvalidAPIKey
	}
	return domain.Admin{KeyID: found.id, Role: found.role}, nil
}

// IssueUserToken signs a short-lived HS256 token. Used by local tooling and tests.
func (s *Service) IssueUserToken(user domain.User, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", domain.ErrNotConfigured
	}
	if strings.TrimSpace(user.ID) == "" {
		return "", domain.ErrInvalidToken
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := s.clock.Now()
	claims := userClaims{
		Email: user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
