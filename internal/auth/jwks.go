package auth

import (
	"context"
	"fmt"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// KeySet resolves the public key a token was signed with.
// keyfunc.Keyfunc satisfies it.
type KeySet interface {
	Keyfunc(token *jwt.Token) (any, error)
}

// NewRemoteKeySet serves the identity provider's JWKS. The set is fetched
// once up front (a failure there is not fatal), refreshed hourly in the
// background, and refetched on an unknown kid at most every five minutes.
// Fetches run on ctx, not on the request being verified; cancelling ctx
// stops the background refresh.
func NewRemoteKeySet(ctx context.Context, jwksURL string) (KeySet, error) {
	k, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("create jwks key set: %w", err)
	}
	return k, nil
}

// NewStaticKeySet serves a fixed set of public keys by kid and never fetches.
func NewStaticKeySet(keys map[string]any) (KeySet, error) {
	ctx := context.Background()
	storage := jwkset.NewMemoryStorage()
	for kid, key := range keys {
		jwk, err := jwkset.NewJWKFromKey(key, jwkset.JWKOptions{
			Metadata: jwkset.JWKMetadataOptions{
				KID: kid,
				USE: jwkset.UseSig,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("build jwk %q: %w", kid, err)
		}
		if err := storage.KeyWrite(ctx, jwk); err != nil {
			return nil, fmt.Errorf("store jwk %q: %w", kid, err)
		}
	}
	k, err := keyfunc.New(keyfunc.Options{Ctx: ctx, Storage: storage})
	if err != nil {
		return nil, fmt.Errorf("create static key set: %w", err)
	}
	return k, nil
}
