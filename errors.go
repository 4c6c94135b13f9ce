package auth

import (
	stderrors "errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeEmptySegment       = "EMPTY_SEGMENT"
	TextCodeDecode             = "SEGMENT_DECODE_FAILED"
	TextCodeMalformedToken     = "MALFORMED_TOKEN"
	TextCodeUnsupportedHeader  = "UNSUPPORTED_TOKEN_HEADER"
	TextCodeMalformedClaims    = "MALFORMED_CLAIMS"
	TextCodeInvalidClaims      = "INVALID_CLAIMS"
	TextCodeCrypto             = "CRYPTO_FAILURE"
	TextCodeRandomSource       = "RANDOM_SOURCE_FAILURE"
	TextCodeSecretIntegrity    = "SECRET_STORE_INTEGRITY"
	TextCodeWeakSecret         = "WEAK_SECRET"
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeCredentialLookup   = "CREDENTIAL_LOOKUP_FAILED"
	TextCodeRejected           = "AUTHENTICATION_REJECTED"
)

// Structural errors. They originate from untrusted input and are never
// reported as system failures.
var (
	// ErrEmptySegment is returned when asked to encode zero bytes
	ErrEmptySegment = goerrors.New("cannot encode an empty segment", goerrors.CategoryBadInput).
			WithTextCode(TextCodeEmptySegment).
			WithCode(goerrors.CodeBadRequest)

	// ErrDecode is returned for input outside the base64url alphabet or with
	// an impossible length
	ErrDecode = goerrors.New("unable to base64url decode segment", goerrors.CategoryBadInput).
			WithTextCode(TextCodeDecode).
			WithCode(goerrors.CodeBadRequest)

	// ErrMalformedToken is returned when a token does not split into three
	// non-empty segments
	ErrMalformedToken = goerrors.New("token is malformed", goerrors.CategoryBadInput).
				WithTextCode(TextCodeMalformedToken).
				WithCode(goerrors.CodeBadRequest)

	// ErrUnsupportedHeader is returned when the header is not exactly
	// {"alg":"HS256","typ":"JWT"}
	ErrUnsupportedHeader = goerrors.New("token header is not supported", goerrors.CategoryBadInput).
				WithTextCode(TextCodeUnsupportedHeader).
				WithCode(goerrors.CodeBadRequest)

	// ErrMalformedClaims is returned when the payload is missing a claim or a
	// claim has the wrong type
	ErrMalformedClaims = goerrors.New("token claims are malformed", goerrors.CategoryBadInput).
				WithTextCode(TextCodeMalformedClaims).
				WithCode(goerrors.CodeBadRequest)
)

// ErrInvalidClaims is returned by NewClaims when the issuance side tries to
// build claims that break the claims invariants.
var ErrInvalidClaims = goerrors.New("invalid claims", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidClaims).
	WithCode(goerrors.CodeBadRequest)

// System errors. These are operator problems, not user problems.
var (
	// ErrCrypto is returned when the HMAC primitive cannot run, e.g. empty key
	ErrCrypto = goerrors.New("hmac signer failure", goerrors.CategoryInternal).
			WithTextCode(TextCodeCrypto).
			WithCode(goerrors.CodeInternal)

	// ErrRandomSource is returned when the secure random source fails
	ErrRandomSource = goerrors.New("secure random source failure", goerrors.CategoryInternal).
			WithTextCode(TextCodeRandomSource).
			WithCode(goerrors.CodeInternal)

	// ErrSecretIntegrity is returned when the secret store would end up in an
	// inconsistent state
	ErrSecretIntegrity = goerrors.New("secret store integrity violation", goerrors.CategoryInternal).
				WithTextCode(TextCodeSecretIntegrity).
				WithCode(goerrors.CodeInternal)

	// ErrWeakSecret is returned when installing a secret shorter than MinSecretLength
	ErrWeakSecret = goerrors.New("secret is too short", goerrors.CategoryInternal).
			WithTextCode(TextCodeWeakSecret).
			WithCode(goerrors.CodeInternal)
)

// ErrInvalidCredentials is the only error the issuer reports for a failed
// credential check. It never tells whether the login or the credential was wrong.
var ErrInvalidCredentials = goerrors.New("unable to authenticate user login", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrCredentialNotFound and ErrAccountInactive may be returned by a
// CredentialVerifier. The issuer folds both into ErrInvalidCredentials.
var (
	ErrCredentialNotFound = stderrors.New("credential not found")
	ErrAccountInactive    = stderrors.New("account inactive")
)

// IsSystemError reports whether err belongs to the system class: crypto,
// randomness or store integrity failures that operators must look at.
func IsSystemError(err error) bool {
	if err == nil {
		return false
	}
	var rich *goerrors.Error
	if stderrors.As(err, &rich) && rich != nil {
		return rich.Category == goerrors.CategoryInternal
	}
	return false
}

// IsStructuralError reports whether err was caused by malformed token input.
func IsStructuralError(err error) bool {
	return stderrors.Is(err, ErrMalformedToken) ||
		stderrors.Is(err, ErrUnsupportedHeader) ||
		stderrors.Is(err, ErrMalformedClaims) ||
		stderrors.Is(err, ErrDecode)
}
