package square

import (
	"context"
	"net/url"
)

// OAuthConfig holds the Square application credentials for token grants.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// TokenGrant is the result of a code exchange or refresh.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	MerchantID   string `json:"merchant_id"`
	ExpiresAt    string `json:"expires_at"`
}

type tokenRequest struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	GrantType    string `json:"grant_type"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

type merchantsResponse struct {
	Merchant []struct {
		BusinessName string `json:"business_name"`
	} `json:"merchant"`
}

// AuthorizeURL builds the merchant-facing authorization URL.
func (c *Client) AuthorizeURL(cfg OAuthConfig, scope string) string {
	q := url.Values{}
	q.Set("client_id", cfg.ClientID)
	q.Set("redirect_uri", cfg.RedirectURI)
	q.Set("scope", scope)
	q.Set("response_type", "code")
	return c.baseURL + "/oauth2/authorize?" + q.Encode()
}

// ExchangeCode trades an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, cfg OAuthConfig, code string) (*TokenGrant, error) {
	var grant TokenGrant
	err := c.postJSON(ctx, "oauth2/token", "", tokenRequest{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		GrantType:    "authorization_code",
		Code:         code,
		RedirectURI:  cfg.RedirectURI,
	}, &grant)
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

// Refresh obtains a fresh access token. When the response omits a refresh
// token, the old one stays valid and is carried forward.
func (c *Client) Refresh(ctx context.Context, cfg OAuthConfig, refreshToken string) (*TokenGrant, error) {
	var grant TokenGrant
	err := c.postJSON(ctx, "oauth2/token", "", tokenRequest{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		GrantType:    "refresh_token",
		RefreshToken: refreshToken,
	}, &grant)
	if err != nil {
		return nil, err
	}
	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}
	return &grant, nil
}

// BusinessName looks up the merchant's display name. A failure here is
// cosmetic; callers treat it as best-effort.
func (c *Client) BusinessName(ctx context.Context, accessToken string) (string, error) {
	var out merchantsResponse
	if err := c.getJSON(ctx, "v2/merchants", accessToken, &out); err != nil {
		return "", err
	}
	if len(out.Merchant) == 0 {
		return "", nil
	}
	return out.Merchant[0].BusinessName, nil
}
