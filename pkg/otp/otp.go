// Package otp issues and adjudicates short-lived numeric verification codes.
package otp

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"
)

const (
	// DefaultLength is the number of decimal digits in a code.
	DefaultLength = 6
	// DefaultTTL is how long a code stays valid after issuance.
	DefaultTTL = 10 * time.Minute
)

// Issue produces a code of uniformly random decimal digits and its expiry.
// Codes are scoped per identity, so collisions across users are acceptable.
// Non-positive length or ttl fall back to the defaults.
func Issue(length int, ttl time.Duration) (string, time.Time, error) {
	if length <= 0 {
		length = DefaultLength
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			return "", time.Time{}, err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}
	return b.String(), time.Now().UTC().Add(ttl), nil
}

// IsExpired reports whether a code's expiry has passed.
// A missing expiry counts as expired (fail closed). Both sides of the
// comparison are taken in UTC so aware/naive drift cannot occur.
func IsExpired(expiry *time.Time) bool {
	if expiry == nil {
		return true
	}
	return time.Now().UTC().After(expiry.UTC())
}

// Verify reports whether a submitted code matches the stored one and the
// stored code has not expired. The comparison is an exact string compare
// with no normalization. It never returns an error: every failure mode
// (no outstanding code, mismatch, expiry) yields false and the caller is
// expected to present a single undifferentiated message.
func Verify(submitted string, stored *string, expiry *time.Time) bool {
	if stored == nil || submitted == "" {
		return false
	}
	if IsExpired(expiry) {
		return false
	}
	return submitted == *stored
}
