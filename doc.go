// Package authvital provides the official Go SDK for the AuthVital Identity
// Platform.
//
// A Client obtains access tokens through the OAuth2 client-credentials
// grant, caches them in memory, and refreshes them transparently before
// expiry. Concurrent refreshes are coalesced so at most one token request is
// in flight per client. Requests to resource endpoints carry the token as a
// bearer Authorization header; a 401 response triggers exactly one
// refresh-and-retry before the error is surfaced.
//
//	client, err := authvital.New(
//		authvital.WithClientID("avc_example"),
//		authvital.WithClientSecret(os.Getenv("AUTHVITAL_CLIENT_SECRET")),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	resp, err := client.Get(ctx, "/v1/users")
//
// Failures surface as *AuthenticationError (credentials rejected, fatal),
// *TransientError (network or 5xx, retried before surfacing) or
// *ClientError (other 4xx). Inspect them with errors.As.
//
// The sibling package authvader configures the same client for the
// AuthVader platform, which differs only in host and endpoint paths.
package authvital
