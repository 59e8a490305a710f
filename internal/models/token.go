package models

import "time"

// Credentials holds the OAuth2 client pair and the Flume account login.
// Loaded once at startup and immutable for the process lifetime.
type Credentials struct {
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
}

// Token is the vendor's OAuth2 token pair together with its computed expiry.
// Owned exclusively by the token manager; mutated only by login and refresh.
type Token struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// ValidUntil reports whether the access token is still usable at least
// margin before its actual expiry. An empty token is never valid.
func (t Token) ValidUntil(now time.Time, margin time.Duration) bool {
	if t.AccessToken == "" {
		return false
	}
	return now.Add(margin).Before(t.ExpiresAt)
}

// TokenResponse is the wire shape of the vendor's oauth2/token endpoint.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}
