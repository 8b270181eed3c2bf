package oneclick

import "errors"

// Sentinel errors returned by link construction, validation and storage.
// Construction failures wrap these with additional diagnostic context, so
// callers should match them with errors.Is.
var (
	// ErrRequiresHTTPS indicates the base URI did not start with the literal
	// lowercase "https://" prefix. The check is deliberately a case-sensitive
	// prefix match; "HTTP://" and "HTTPS://" are both rejected.
	ErrRequiresHTTPS = errors.New("unsubscribe base URI must use the https scheme")

	// ErrInvalidToken indicates an empty or malformed opaque token.
	ErrInvalidToken = errors.New("invalid unsubscribe token")

	// ErrInvalidURI indicates the composed unsubscribe URI failed to re-parse.
	ErrInvalidURI = errors.New("invalid unsubscribe URI")

	// ErrTokenMismatch indicates a presented token did not match the stored
	// one. Validate reports mismatches as a plain false; this error exists for
	// callers layering stricter error-based flows (ValidateToken, RedeemLink).
	ErrTokenMismatch = errors.New("unsubscribe token mismatch")

	// ErrLinkNotFound indicates no stored link exists for the presented token.
	ErrLinkNotFound = errors.New("unsubscribe link not found")

	// ErrLinkUsed indicates the link was already redeemed.
	ErrLinkUsed = errors.New("unsubscribe link already used")
)
