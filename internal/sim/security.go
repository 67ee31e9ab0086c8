package sim

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
)

// ComputeMAC returns the truncated hex HMAC-SHA256 of "token|command".
// A macLength <= 0 keeps the full 64-character digest.
func ComputeMAC(token, command, key string, macLength int) (string, error) {
	if token == "" {
		return "", ErrMissingToken
	}

	h := hmac.New(sha256.New, []byte(key))
	h.Write([]byte(token + "|" + command))
	mac := hex.EncodeToString(h.Sum(nil))
	if macLength <= 0 || macLength >= len(mac) {
		return mac, nil
	}
	return mac[:macLength], nil
}

// CounterToken renders a counter the way it is fed into ComputeMAC.
func CounterToken(counter int64) string {
	return strconv.FormatInt(counter, 10)
}

// ConstantTimeCompare reports whether a and b are equal without leaking the
// position of the first differing byte. Absent values never match.
func ConstantTimeCompare(a, b *string) bool {
	if a == nil || b == nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(*a), []byte(*b)) == 1
}
