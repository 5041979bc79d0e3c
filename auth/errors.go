// Package auth implements the cross-system authentication core: opaque
// single-use tokens, HMAC request triples, and both session cookie
// codecs. All verification failures collapse to a uniform unauthorized
// outcome at the HTTP boundary; the finer-grained sentinels here exist
// for audit logging only.
package auth

import "errors"

// ErrMissingCredential indicates no token, triple, or cookie was supplied.
var ErrMissingCredential = errors.New("missing credential")

// ErrInvalidCredential indicates a bad signature, unknown token hash,
// or unknown shop. Callers must not distinguish these cases to clients.
var ErrInvalidCredential = errors.New("invalid credential")

// ErrExpiredCredential indicates a credential past its expiry or a
// timestamp outside the replay window. Externally treated as invalid.
var ErrExpiredCredential = errors.New("expired credential")

// ErrConsumedCredential indicates a one-time token that was already
// used. Externally treated as invalid.
var ErrConsumedCredential = errors.New("credential already consumed")

// ErrUpstreamVerification indicates the third-party site verification
// call failed or returned non-success. Never retried.
var ErrUpstreamVerification = errors.New("upstream verification failed")
