// Package bearer checks Google-signed OIDC tokens carried in an
// Authorization header.
package bearer

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"google.golang.org/api/idtoken"

	"github.com/iota-uz/sentencing-etl/pkg/serrors"
)

var ErrUnauthorized = serrors.NewError("UNAUTHORIZED", "unauthorized")

// ValidateFunc has the shape of idtoken.Validate.
type ValidateFunc func(ctx context.Context, token, audience string) (*idtoken.Payload, error)

type Verifier struct {
	audience string
	validate ValidateFunc
}

// NewVerifier validates tokens against Google's public keys. An empty
// audience skips the aud check.
func NewVerifier(audience string) *Verifier {
	return NewVerifierWithValidator(audience, idtoken.Validate)
}

func NewVerifierWithValidator(audience string, validate ValidateFunc) *Verifier {
	return &Verifier{audience: audience, validate: validate}
}

// Verify checks that authorization is "Bearer <token>" for a verified
// expectedEmail. Every failure wraps ErrUnauthorized.
func (v *Verifier) Verify(ctx context.Context, authorization, expectedEmail string) error {
	if expectedEmail == "" {
		return errors.Wrap(ErrUnauthorized, "no expected principal configured")
	}
	token, ok := Token(authorization)
	if !ok {
		return errors.Wrap(ErrUnauthorized, "missing bearer token")
	}
	payload, err := v.validate(ctx, token, v.audience)
	if err != nil {
		return errors.Wrap(ErrUnauthorized, err.Error())
	}
	email, _ := payload.Claims["email"].(string)
	if !claimTrue(payload.Claims["email_verified"]) {
		return errors.Wrapf(ErrUnauthorized, "email %q is not verified", email)
	}
	if !strings.EqualFold(email, expectedEmail) {
		return errors.Wrapf(ErrUnauthorized, "token email %q does not match", email)
	}
	return nil
}

// Token extracts the token of a "Bearer <token>" header value.
func Token(authorization string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(authorization), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// email_verified arrives as a bool from Google and as a string from some issuers.
func claimTrue(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return strings.EqualFold(b, "true")
	}
	return false
}
