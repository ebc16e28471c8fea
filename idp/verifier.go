package idp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	keyfunc "github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/upb/jobtracker/internal/shared"
)

var errAdapterClosed = errors.New("adapter is closed")

// jwksLocator returns the JWKS URL for an issuer; it may perform network discovery
type jwksLocator func(ctx context.Context) (string, error)

// verifier holds the verification state shared by every provider variant
type verifier struct {
	provider string
	issuer   string
	audience []string
	algs     []string
	leeway   time.Duration
	locate   jwksLocator
	logger   *zap.Logger

	// key source lifetime, independent of any request
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	keys   keyfunc.Keyfunc
	closed bool
}

func newVerifier(provider, issuer string, audience, algs []string, leeway time.Duration, locate jwksLocator, logger *zap.Logger) *verifier {
	ctx, cancel := context.WithCancel(context.Background())
	return &verifier{
		provider: provider,
		issuer:   issuer,
		audience: audience,
		algs:     algs,
		leeway:   leeway,
		locate:   locate,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// keySource returns the cached JWKS key source, building it on first use
func (v *verifier) keySource(ctx context.Context) (keyfunc.Keyfunc, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return nil, errAdapterClosed
	}
	if v.keys != nil {
		return v.keys, nil
	}

	jwksURL, err := v.locate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to locate JWKS: %w", err)
	}

	kf, err := keyfunc.NewDefaultCtx(v.ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwks init failed: %w", err)
	}

	v.logger.Info("JWKS key source initialized",
		zap.String("provider", v.provider),
		zap.String("jwks_url", jwksURL),
	)
	v.keys = kf
	return kf, nil
}

// verify checks signature, algorithm, issuer, expiry and subject and returns the raw claims.
// Audience is checked separately by the caller since some providers carry it outside aud.
func (v *verifier) verify(ctx context.Context, rawToken string) (jwt.MapClaims, error) {
	if err := ctx.Err(); err != nil {
		return nil, shared.WrapAuthError(shared.CodeInvalidToken, "token verification cancelled", err)
	}

	kf, err := v.keySource(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, shared.WrapAuthError(shared.CodeInvalidToken, "token verification cancelled", ctxErr)
		}
		return nil, shared.WrapAuthError(shared.CodeInvalidToken, "signing keys unavailable", err)
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods(v.algs),
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	)

	claims := jwt.MapClaims{}
	if _, err := parser.ParseWithClaims(rawToken, claims, kf.Keyfunc); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, shared.WrapAuthError(shared.CodeInvalidToken, "token verification cancelled", ctxErr)
		}
		return nil, shared.WrapAuthError(shared.CodeInvalidToken, "token verification failed", err)
	}

	if StringClaim(claims, claimSubject) == "" {
		return nil, shared.NewAuthError(shared.CodeInvalidToken, "token is missing the sub claim")
	}

	return claims, nil
}

// checkAudience requires at least one token audience to be in the configured list
func (v *verifier) checkAudience(tokenAudience []string) error {
	for _, got := range tokenAudience {
		for _, want := range v.audience {
			if got == want {
				return nil
			}
		}
	}
	return shared.NewAuthError(shared.CodeInvalidToken, "token audience is not accepted")
}

// Close stops background JWKS refresh
func (v *verifier) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return
	}
	v.closed = true
	v.keys = nil
	v.cancel()
}
