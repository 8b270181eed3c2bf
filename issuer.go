// issuer.go

package oneclick

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LinkIssuer composes a TokenMaker, a base URI and an optional
// LinkRepository into an end-to-end issue/redeem flow: IssueLink mints a
// token and builds the unsubscribe link for it, RedeemLink validates a
// presented token and enforces single use. This is the wrapping layer that
// adds lifecycle on top of the bare UnsubscribeLink value.
type LinkIssuer struct {
	maker   TokenMaker
	repo    LinkRepository
	baseURI string
	linkTTL time.Duration
}

// NewLinkIssuer creates a link issuer. repo may be nil, in which case
// issued links are not persisted and RedeemLink is unavailable. linkTTL
// bounds both the stored link and its used marker and must be positive when
// a repository is configured.
func NewLinkIssuer(maker TokenMaker, baseURI string, repo LinkRepository, linkTTL time.Duration) (*LinkIssuer, error) {
	if maker == nil {
		return nil, fmt.Errorf("token maker cannot be nil")
	}
	if !strings.HasPrefix(baseURI, httpsPrefix) {
		return nil, fmt.Errorf("%w: got %q", ErrRequiresHTTPS, baseURI)
	}
	if repo != nil && linkTTL <= 0 {
		return nil, fmt.Errorf("link ttl must be positive when a repository is configured")
	}

	return &LinkIssuer{
		maker:   maker,
		repo:    repo,
		baseURI: baseURI,
		linkTTL: linkTTL,
	}, nil
}

// IssueLink mints a token for the subscriber on the given list, builds the
// unsubscribe link and, when a repository is configured, persists it.
func (issuer *LinkIssuer) IssueLink(ctx context.Context, subscriberID uuid.UUID, listID string) (UnsubscribeLink, error) {
	response, err := issuer.maker.CreateToken(ctx, subscriberID, listID)
	if err != nil {
		return UnsubscribeLink{}, fmt.Errorf("failed to create token: %w", err)
	}

	link, err := NewUnsubscribeLink(issuer.baseURI, response.Token)
	if err != nil {
		return UnsubscribeLink{}, err
	}

	if issuer.repo != nil {
		if err := issuer.repo.SaveLink(ctx, link, issuer.linkTTL); err != nil {
			return UnsubscribeLink{}, fmt.Errorf("failed to save link: %w", err)
		}
	}

	return link, nil
}

// RedeemLink looks up the stored link for a presented token, validates the
// token in constant time and atomically marks the link used. Of any number
// of concurrent redemptions of the same token exactly one succeeds; the
// rest fail with ErrLinkUsed.
func (issuer *LinkIssuer) RedeemLink(ctx context.Context, candidate string) (UnsubscribeLink, error) {
	if issuer.repo == nil {
		return UnsubscribeLink{}, fmt.Errorf("link repository is not configured")
	}

	link, err := issuer.repo.FindLink(ctx, candidate)
	if err != nil {
		return UnsubscribeLink{}, err
	}

	if err := link.ValidateToken(candidate); err != nil {
		return UnsubscribeLink{}, err
	}

	if err := issuer.repo.ConsumeLink(ctx, candidate, issuer.linkTTL); err != nil {
		if errors.Is(err, ErrLinkUsed) {
			return UnsubscribeLink{}, err
		}
		return UnsubscribeLink{}, fmt.Errorf("failed to mark link used: %w", err)
	}

	return link, nil
}
