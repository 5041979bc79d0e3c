package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrInvalidSite is returned for a site parameter that does not
	// parse as an absolute URL with a host.
	ErrInvalidSite = errors.New("invalid site url")

	// ErrInsecureSite is returned for a non-https site parameter.
	ErrInsecureSite = errors.New("insecure site url")

	// ErrSiteRejectedToken is returned when a site answers the
	// verification call but declines the token.
	ErrSiteRejectedToken = fmt.Errorf("%w: site rejected token", ErrUpstreamVerification)

	// ErrSiteVerificationFailed is returned when a site answers with a
	// non-2xx status.
	ErrSiteVerificationFailed = fmt.Errorf("%w: verification request failed", ErrUpstreamVerification)
)

// verifyPath is the WordPress REST route that redeems a plugin-minted
// login token.
const verifyPath = "/wp-json/trusthive-reviews/v1/verify"

// wpVerifyTimeout bounds the outbound verification call. A timeout is
// a verification failure, not a retry trigger: the token is one-time
// on the WordPress side and a retry could double-consume it.
const wpVerifyTimeout = 10 * time.Second

// SiteIdentity is the identity asserted by a WordPress site after a
// successful token redemption.
type SiteIdentity struct {
	Site   string
	UserID string
	Email  string
}

// SiteVerifier redeems WordPress-minted login tokens against the
// originating site's verification endpoint.
type SiteVerifier struct {
	client *resty.Client
}

// NewSiteVerifier creates a verifier with the default timeout and no
// retries.
func NewSiteVerifier() *SiteVerifier {
	client := resty.New().
		SetTimeout(wpVerifyTimeout).
		SetRetryCount(0)
	return &SiteVerifier{client: client}
}

type wpVerifyResponse struct {
	Success bool   `json:"success"`
	UserID  string `json:"user_id"`
	Email   string `json:"email"`
}

// ParseSiteURL validates a caller-supplied site parameter. Only https
// origins are accepted.
func ParseSiteURL(site string) (*url.URL, error) {
	u, err := url.Parse(site)
	if err != nil || u.Host == "" {
		return nil, ErrInvalidSite
	}
	if u.Scheme != "https" {
		return nil, ErrInsecureSite
	}
	return u, nil
}

// Verify redeems token against the site's verification endpoint and
// returns the asserted identity. Any transport error, non-2xx status,
// or non-success body yields ErrUpstreamVerification.
func (v *SiteVerifier) Verify(ctx context.Context, siteOrigin, token string) (*SiteIdentity, error) {
	endpoint := strings.TrimSuffix(siteOrigin, "/") + verifyPath

	var body wpVerifyResponse
	resp, err := v.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"token": token}).
		SetResult(&body).
		Post(endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamVerification, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d", ErrSiteVerificationFailed, resp.StatusCode())
	}
	if !body.Success {
		return nil, ErrSiteRejectedToken
	}
	return &SiteIdentity{Site: siteOrigin, UserID: body.UserID, Email: body.Email}, nil
}
