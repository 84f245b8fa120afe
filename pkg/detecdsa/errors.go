package detecdsa

// ErrorKind identifies a kind of error. It has full support for errors.Is
// and errors.As, so the caller can directly check against an error kind when
// determining the reason for an error.
type ErrorKind string

// These constants are used to identify a specific Error.
const (
	// ErrUnknownCurve is returned when a curve name is not in the registry.
	ErrUnknownCurve = ErrorKind("ErrUnknownCurve")

	// ErrInvalidSignatureFormat is returned when r or s lies outside
	// [1, n-1]. Verify reports this case as a plain false; the kind is
	// surfaced by the signature parsers.
	ErrInvalidSignatureFormat = ErrorKind("ErrInvalidSignatureFormat")

	// ErrNonceGenerationExhausted is returned when the nonce generator hits
	// its candidate bound. It indicates a broken hash or arithmetic provider,
	// never a normal runtime condition.
	ErrNonceGenerationExhausted = ErrorKind("ErrNonceGenerationExhausted")

	// ErrDegenerateSignatureComponent is returned when a nonce yields r = 0
	// or s = 0. Signing handles it by advancing the nonce generator; it only
	// escapes from the single-nonce signing step.
	ErrDegenerateSignatureComponent = ErrorKind("ErrDegenerateSignatureComponent")

	// ErrInvalidPrivateKey is returned when a private scalar is outside
	// [1, n-1].
	ErrInvalidPrivateKey = ErrorKind("ErrInvalidPrivateKey")

	// ErrInvalidPublicKey is returned when a public key is malformed, the
	// identity, or not on the curve.
	ErrInvalidPublicKey = ErrorKind("ErrInvalidPublicKey")

	// ErrInvalidEncoding is returned when a serialized signature or record
	// cannot be decoded.
	ErrInvalidEncoding = ErrorKind("ErrInvalidEncoding")
)

// Error satisfies the error interface and prints human-readable errors.
func (e ErrorKind) Error() string {
	return string(e)
}

// Error identifies an error related to signing or verification. It has full
// support for errors.Is and errors.As, so the caller can ascertain the
// specific reason for the error by checking the underlying error.
type Error struct {
	Err         error
	Description string
}

// Error satisfies the error interface and prints human-readable errors.
func (e Error) Error() string {
	return e.Description
}

// Unwrap returns the underlying wrapped error.
func (e Error) Unwrap() error {
	return e.Err
}

// makeError creates an Error given a set of arguments.
func makeError(kind ErrorKind, desc string) Error {
	return Error{Err: kind, Description: desc}
}
