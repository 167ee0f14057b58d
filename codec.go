package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

// TokenDecoder extracts claims from tokens without tying callers to a
// specific decoding implementation.
type TokenDecoder interface {
	Decode(tokenString string) (IdentityClaims, error)
}

// TokenDecoderFunc adapts a function into a TokenDecoder.
type TokenDecoderFunc func(tokenString string) (IdentityClaims, error)

// Decode satisfies the TokenDecoder interface.
func (f TokenDecoderFunc) Decode(tokenString string) (IdentityClaims, error) {
	if f == nil {
		return nil, ErrTokenMalformed
	}
	return f(tokenString)
}

// TokenCodec performs pure, offline decoding of a token's embedded claims. It
// never verifies the cryptographic signature: that trust decision belongs to
// the server, the client only reads claims for display and expiry bookkeeping.
type TokenCodec struct {
	parser *jwt.Parser
	logger Logger
}

// Verify interface compliance
var _ TokenDecoder = (*TokenCodec)(nil)

// NewTokenCodec creates a new TokenCodec instance
func NewTokenCodec(logger Logger) *TokenCodec {
	if logger == nil {
		logger = defLogger{}
	}
	return &TokenCodec{
		parser: jwt.NewParser(),
		logger: logger,
	}
}

// Decode parses the claims embedded in tokenString without contacting the
// network or checking signatures.
func (tc *TokenCodec) Decode(tokenString string) (IdentityClaims, error) {
	claims := &SessionClaims{}

	if _, _, err := tc.parser.ParseUnverified(tokenString, claims); err != nil {
		tc.logger.Debug("TokenCodec decode failed", "error", err)
		return nil, errors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}

	return claims, nil
}

// IsExpired compares the claims' expiry instant to now. A decode failure or a
// missing exp claim counts as expired (fail-closed).
func (tc *TokenCodec) IsExpired(tokenString string, now time.Time) bool {
	claims, err := tc.Decode(tokenString)
	if err != nil {
		return true
	}

	expires := claims.Expires()
	if expires.IsZero() {
		return true
	}

	return !now.Before(expires)
}
