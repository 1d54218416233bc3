// Package otp generates and compares one-time codes for locally issued OTPs.
package otp

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"math/big"
)

// CodeDigits is the length of generated codes.
const CodeDigits = 6

var digitRange = big.NewInt(10)

// GenerateCode returns a numeric code of CodeDigits digits (e.g. "042917") from crypto/rand.
func GenerateCode() (string, error) {
	s := make([]byte, CodeDigits)
	for i := range s {
		n, err := rand.Int(rand.Reader, digitRange)
		if err != nil {
			return "", err
		}
		s[i] = '0' + byte(n.Int64())
	}
	return string(s), nil
}

// HashCode returns the hex SHA-256 of code.
func HashCode(code string) string {
	h := sha256.Sum256([]byte(code))
	return hex.EncodeToString(h[:])
}

// CodeEqual compares provided against storedHash in constant time.
func CodeEqual(provided, storedHash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(provided)), []byte(storedHash)) == 1
}
