package auth

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fastygo/taskhub/domain"
)

const defaultTTL = 24 * time.Hour

// UseCase issues and verifies the HS256 bearer tokens the REST API accepts.
type UseCase struct {
	secret []byte
	issuer string
	now    func() time.Time
	logger *zap.Logger
}

func New(secret, issuer string, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		secret: []byte(secret),
		issuer: issuer,
		now:    time.Now,
		logger: logger,
	}
}

// Enabled reports whether a signing secret is configured.
func (uc *UseCase) Enabled() bool {
	return len(uc.secret) > 0
}

// IssueToken signs a token for subject valid for ttl.
func (uc *UseCase) IssueToken(subject string, ttl time.Duration) (string, time.Time, error) {
	if !uc.Enabled() {
		return "", time.Time{}, domain.NewError(domain.ErrCodeInvalid, "JWT_SECRET is not configured")
	}
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, domain.NewError(domain.ErrCodeInvalid, "token subject is required")
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	now := uc.now()
	expires := now.Add(ttl)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Subject:   subject,
		Issuer:    uc.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(uc.secret)
	if err != nil {
		return "", time.Time{}, domain.WrapError(domain.ErrCodeInternal, "sign token", err)
	}
	uc.logger.Info("token issued", zap.String("subject", subject), zap.Time("expires_at", expires))
	return signed, expires, nil
}

// Verify checks signature, expiry and issuer and returns the subject.
func (uc *UseCase) Verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return uc.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", err)
	}
	if uc.issuer != "" && !claims.VerifyIssuer(uc.issuer, true) {
		return "", domain.WrapError(domain.ErrCodeUnauthorized, "invalid token", fmt.Errorf("issuer %q", claims.Issuer))
	}
	return claims.Subject, nil
}
