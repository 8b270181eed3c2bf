package oneclick

import (
	"fmt"
	"time"
)

// SigningMethod represents how opaque unsubscribe tokens are minted.
type SigningMethod string

const (
	HMACSigning SigningMethod = "hmac" // Raw HMAC-SHA256 tokens (compact, no embedded expiry)
	JWTSigning  SigningMethod = "jwt"  // Signed JWT tokens (self-describing, carry expiry)
)

// TokenMakerConfig holds the configuration for minting and verifying
// unsubscribe tokens.
//
// Fields:
//   - SigningMethod: Token format to mint (HMACSigning or JWTSigning)
//   - SecretKey: Shared secret for signing (min 32 bytes)
//   - Algorithm: JWT signing algorithm ("HS256", "HS384", "HS512"); JWT only
//   - Issuer: Issuer claim stamped into JWT tokens; JWT only
//   - TokenDuration: Validity window for JWT tokens; JWT only
type TokenMakerConfig struct {
	SigningMethod SigningMethod
	SecretKey     string
	Algorithm     string
	Issuer        string
	TokenDuration time.Duration
}

// DefaultTokenMakerConfig returns a configuration minting compact
// HMAC-SHA256 tokens with the given secret key. The JWT fields are
// pre-filled with sensible values so switching SigningMethod to JWTSigning
// is a one-line change.
func DefaultTokenMakerConfig(secretKey string) TokenMakerConfig {
	return TokenMakerConfig{
		SigningMethod: HMACSigning,
		SecretKey:     secretKey,
		Algorithm:     "HS256",
		Issuer:        "oneclick",
		TokenDuration: 30 * 24 * time.Hour,
	}
}

// validateConfig validates the configuration.
func validateConfig(config *TokenMakerConfig) error {
	if config.SecretKey == "" {
		return fmt.Errorf("secret key is required")
	}
	if len(config.SecretKey) < 32 {
		return fmt.Errorf("secret key must be at least 32 bytes")
	}

	switch config.SigningMethod {
	case HMACSigning:
		// HMAC tokens ignore Algorithm, Issuer and TokenDuration.
	case JWTSigning:
		switch config.Algorithm {
		case "HS256", "HS384", "HS512":
		default:
			return fmt.Errorf("unsupported algorithm: %s", config.Algorithm)
		}
		if config.Issuer == "" {
			return fmt.Errorf("issuer is required for JWT signing")
		}
		if config.TokenDuration <= 0 {
			return fmt.Errorf("token duration must be positive")
		}
	default:
		return fmt.Errorf("unsupported signing method: %s, supports %s and %s", config.SigningMethod, HMACSigning, JWTSigning)
	}

	return nil
}
