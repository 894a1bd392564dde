package authvital

import (
	"context"

	"golang.org/x/oauth2"
)

// TokenSource adapts the client's token cache to the oauth2.TokenSource
// interface so the SDK can feed libraries built on golang.org/x/oauth2.
// The returned source shares the client's cache: tokens are refreshed at
// most once regardless of how many consumers ask.
//
// ctx governs every refresh triggered through the source, because the
// oauth2.TokenSource interface carries no per-call context.
func (c *Client) TokenSource(ctx context.Context) oauth2.TokenSource {
	return &tokenSource{ctx: ctx, tokens: c.tokens}
}

type tokenSource struct {
	ctx    context.Context
	tokens *tokenManager
}

// Token implements oauth2.TokenSource
func (s *tokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.tokens.Token(s.ctx)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.ExpiresAt,
	}, nil
}

var _ oauth2.TokenSource = (*tokenSource)(nil)
