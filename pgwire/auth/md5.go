// Package auth implements the three frontend authentication exchanges
// elefant supports: cleartext, MD5, and SASL SCRAM-SHA-256
// (spec.md §4.1 connect, §6.2).
package auth

import (
	"crypto/md5"
	"encoding/hex"
)

// EncodeMD5Password computes PostgreSQL's
// "md5" + md5(md5(password+user)+salt) response to an
// AuthenticationMD5Password challenge.
func EncodeMD5Password(username, password string, salt [4]byte) string {
	inner := md5Hex(password + username)
	outer := md5Hex(inner + string(salt[:]))
	return "md5" + outer
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
