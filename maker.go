// maker.go

package oneclick

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// unsubscribeTokenType is the typ claim stamped into JWT unsubscribe tokens.
const unsubscribeTokenType = "unsubscribe"

// TokenClaims carries the verified contents of an unsubscribe token.
type TokenClaims struct {
	ID           uuid.UUID // Unique token identifier (jti); zero for HMAC tokens
	SubscriberID uuid.UUID // Subscriber the token was minted for
	ListID       string    // Mailing list the token is bound to
	IssuedAt     time.Time // Issuance time; zero for HMAC tokens
	ExpiresAt    time.Time // Expiry time; zero for HMAC tokens
}

// TokenResponse contains the response after minting an unsubscribe token.
// Token is URL-safe by construction and can be passed directly to
// NewUnsubscribeLink.
type TokenResponse struct {
	Token        string    `json:"tok"`
	SubscriberID uuid.UUID `json:"sub"`
	ListID       string    `json:"lst"`
	IssuedAt     time.Time `json:"iat"`
	ExpiresAt    time.Time `json:"exp"`
}

// TokenMaker defines the interface for minting and verifying the opaque
// per-subscriber tokens embedded in unsubscribe links.
//
// Methods:
//   - CreateToken: Mints a URL-safe token binding a subscriber to a list
//   - VerifyToken: Checks a presented token against the given list and
//     returns its claims
type TokenMaker interface {
	CreateToken(ctx context.Context, subscriberID uuid.UUID, listID string) (*TokenResponse, error)
	VerifyToken(ctx context.Context, token, listID string) (*TokenClaims, error)
}

// HMACTokenMaker mints compact opaque tokens: the subscriber UUID followed
// by an HMAC-SHA256 tag over (subscriberID, listID), base64url-encoded
// without padding.
type HMACTokenMaker struct {
	key []byte
}

// NewHMACTokenMaker creates a token maker minting raw HMAC-SHA256 tokens.
// The config's SigningMethod must be HMACSigning.
func NewHMACTokenMaker(config TokenMakerConfig) (TokenMaker, error) {
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.SigningMethod != HMACSigning {
		return nil, fmt.Errorf("signing method must be %s, got %s", HMACSigning, config.SigningMethod)
	}

	return &HMACTokenMaker{key: []byte(config.SecretKey)}, nil
}

// CreateToken mints a token for the subscriber on the given list.
func (maker *HMACTokenMaker) CreateToken(ctx context.Context, subscriberID uuid.UUID, listID string) (*TokenResponse, error) {
	if subscriberID == uuid.Nil {
		return nil, fmt.Errorf("subscriber ID cannot be nil")
	}
	if listID == "" {
		return nil, fmt.Errorf("list ID cannot be empty")
	}

	tag := maker.sign(subscriberID, listID)
	raw := make([]byte, 0, len(subscriberID)+len(tag))
	raw = append(raw, subscriberID[:]...)
	raw = append(raw, tag...)

	return &TokenResponse{
		Token:        base64.RawURLEncoding.EncodeToString(raw),
		SubscriberID: subscriberID,
		ListID:       listID,
		IssuedAt:     time.Now(),
	}, nil
}

// VerifyToken decodes the token, recomputes the HMAC tag for the embedded
// subscriber ID and the given list, and compares the tags in constant time.
func (maker *HMACTokenMaker) VerifyToken(ctx context.Context, token, listID string) (*TokenClaims, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if len(raw) != 16+sha256.Size {
		return nil, fmt.Errorf("%w: unexpected token length %d", ErrInvalidToken, len(raw))
	}

	subscriberID, err := uuid.FromBytes(raw[:16])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	expected := maker.sign(subscriberID, listID)
	if !hmac.Equal(raw[16:], expected) {
		return nil, ErrTokenMismatch
	}

	return &TokenClaims{
		SubscriberID: subscriberID,
		ListID:       listID,
	}, nil
}

// sign computes the HMAC-SHA256 tag binding a subscriber to a list. A zero
// byte separates the two inputs so (id, list) pairs cannot collide.
func (maker *HMACTokenMaker) sign(subscriberID uuid.UUID, listID string) []byte {
	mac := hmac.New(sha256.New, maker.key)
	mac.Write(subscriberID[:])
	mac.Write([]byte{0})
	mac.Write([]byte(listID))
	return mac.Sum(nil)
}

// JWTTokenMaker mints signed JWT unsubscribe tokens. Unlike HMAC tokens,
// JWT tokens are self-describing and carry an expiry, at the cost of being
// considerably longer.
type JWTTokenMaker struct {
	config        TokenMakerConfig
	signingMethod jwt.SigningMethod
	key           []byte
}

// NewJWTTokenMaker creates a token maker minting signed JWT tokens. The
// config's SigningMethod must be JWTSigning and its Algorithm one of HS256,
// HS384 or HS512.
func NewJWTTokenMaker(config TokenMakerConfig) (TokenMaker, error) {
	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.SigningMethod != JWTSigning {
		return nil, fmt.Errorf("signing method must be %s, got %s", JWTSigning, config.SigningMethod)
	}

	maker := &JWTTokenMaker{
		config: config,
		key:    []byte(config.SecretKey),
	}

	switch config.Algorithm {
	case "HS256":
		maker.signingMethod = jwt.SigningMethodHS256
	case "HS384":
		maker.signingMethod = jwt.SigningMethodHS384
	case "HS512":
		maker.signingMethod = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported algorithm: %s", config.Algorithm)
	}

	return maker, nil
}

// CreateToken mints a signed JWT for the subscriber on the given list.
func (maker *JWTTokenMaker) CreateToken(ctx context.Context, subscriberID uuid.UUID, listID string) (*TokenResponse, error) {
	if subscriberID == uuid.Nil {
		return nil, fmt.Errorf("subscriber ID cannot be nil")
	}
	if listID == "" {
		return nil, fmt.Errorf("list ID cannot be empty")
	}

	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token ID: %w", err)
	}

	now := time.Now()
	expiresAt := now.Add(maker.config.TokenDuration)

	token := jwt.NewWithClaims(maker.signingMethod, jwt.MapClaims{
		"jti": tokenID.String(),
		"sub": subscriberID.String(),
		"lst": listID,
		"iss": maker.config.Issuer,
		"iat": now.Unix(),
		"exp": expiresAt.Unix(),
		"typ": unsubscribeTokenType,
	})

	signedToken, err := token.SignedString(maker.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign unsubscribe token: %w", err)
	}

	return &TokenResponse{
		Token:        signedToken,
		SubscriberID: subscriberID,
		ListID:       listID,
		IssuedAt:     now,
		ExpiresAt:    expiresAt,
	}, nil
}

// VerifyToken validates the token signature, expiry, type and list binding,
// and returns the decoded claims.
func (maker *JWTTokenMaker) VerifyToken(ctx context.Context, tokenString, listID string) (*TokenClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != maker.signingMethod.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return maker.key, nil
	})

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	for _, claim := range []string{"jti", "sub", "lst", "iat", "exp", "typ"} {
		if _, ok := claims[claim]; !ok {
			return nil, fmt.Errorf("missing required claim: %s", claim)
		}
	}

	tokenType, ok := claims["typ"].(string)
	if !ok || tokenType != unsubscribeTokenType {
		return nil, fmt.Errorf("invalid token type: expected %s", unsubscribeTokenType)
	}

	boundList, ok := claims["lst"].(string)
	if !ok || boundList != listID {
		return nil, fmt.Errorf("%w: token is not bound to list %q", ErrTokenMismatch, listID)
	}

	return mapToTokenClaims(claims)
}

// mapToTokenClaims converts JWT claims to TokenClaims. Claim values are
// type-checked before use; a correctly-signed token minted by a peer may
// still carry claims of the wrong type.
func mapToTokenClaims(claims jwt.MapClaims) (*TokenClaims, error) {
	rawTokenID, ok := claims["jti"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid jti claim type: expected string")
	}
	tokenID, err := uuid.Parse(rawTokenID)
	if err != nil {
		return nil, fmt.Errorf("invalid token ID: %w", err)
	}

	rawSubscriberID, ok := claims["sub"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid sub claim type: expected string")
	}
	subscriberID, err := uuid.Parse(rawSubscriberID)
	if err != nil {
		return nil, fmt.Errorf("invalid subscriber ID: %w", err)
	}

	listID, ok := claims["lst"].(string)
	if !ok {
		return nil, fmt.Errorf("invalid lst claim type: expected string")
	}

	iat, ok := claims["iat"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid iat claim type")
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return nil, fmt.Errorf("invalid exp claim type")
	}

	return &TokenClaims{
		ID:           tokenID,
		SubscriberID: subscriberID,
		ListID:       listID,
		IssuedAt:     time.Unix(int64(iat), 0),
		ExpiresAt:    time.Unix(int64(exp), 0),
	}, nil
}
