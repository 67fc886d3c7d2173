package csp

// hash.go
import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
)

// ComputeHash считает hash-source для inline-скрипта или стиля.
// CSP требует стандартный base64 с паддингом.
func ComputeHash(alg HashAlgorithm, content []byte) Source {
	var sum []byte
	switch alg {
	case SHA384:
		s := sha512.Sum384(content)
		sum = s[:]
	case SHA512:
		s := sha512.Sum512(content)
		sum = s[:]
	default:
		alg = SHA256
		s := sha256.Sum256(content)
		sum = s[:]
	}
	return Hash(alg, base64.StdEncoding.EncodeToString(sum))
}
