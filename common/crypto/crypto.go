// Package crypto provides the request signing used by the exchange gateways
// and the salt generation used by config encryption.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

var errSaltTooSmall = errors.New("salt length is too small")

// SignHex returns the hex encoded HMAC-SHA256 of payload keyed by secret
func SignHex(payload, secret string) string {
	return hex.EncodeToString(hmacSHA256(payload, secret))
}

// SignBase64 returns the standard base64 encoded HMAC-SHA256 of payload keyed
// by secret
func SignBase64(payload, secret string) string {
	return base64.StdEncoding.EncodeToString(hmacSHA256(payload, secret))
}

func hmacSHA256(payload, secret string) []byte {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(payload))
	return h.Sum(nil)
}

// GetRandomSalt appends saltLen random bytes to prefix
func GetRandomSalt(prefix []byte, saltLen int) ([]byte, error) {
	if saltLen <= 0 {
		return nil, errSaltTooSmall
	}
	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	result := make([]byte, 0, len(prefix)+saltLen)
	result = append(result, prefix...)
	return append(result, salt...), nil
}
