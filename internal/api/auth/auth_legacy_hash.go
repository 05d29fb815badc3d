package auth

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
	"golang.org/x/crypto/scrypt"
)

// Credentials written by the old site carry werkzeug hashes of the form
// "pbkdf2:<digest>:<iterations>$<salt>$<hex>" or "scrypt:<n>:<r>:<p>$<salt>$<hex>".
const (
	defaultPBKDF2Iterations = 600000
	defaultScryptN          = 1 << 15
	defaultScryptR          = 8
	defaultScryptP          = 1
	scryptKeyLen            = 64
)

var errUnknownHash = errors.New("unknown password hash format")

func isLegacyHash(stored string) bool {
	return strings.HasPrefix(stored, "pbkdf2:") || strings.HasPrefix(stored, "scrypt:")
}

// checkLegacyHash reports whether password matches a werkzeug hash.
func checkLegacyHash(stored, password string) (bool, error) {
	method, rest, ok := strings.Cut(stored, "$")
	if !ok {
		return false, errUnknownHash
	}
	salt, want, ok := strings.Cut(rest, "$")
	if !ok {
		return false, errUnknownHash
	}
	expected, err := hex.DecodeString(want)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errUnknownHash, err)
	}

	parts := strings.Split(method, ":")
	var got []byte
	switch parts[0] {
	case "pbkdf2":
		h, iter, err := pbkdf2Params(parts[1:])
		if err != nil {
			return false, err
		}
		got = pbkdf2.Key([]byte(password), []byte(salt), iter, len(expected), h)
	case "scrypt":
		n, r, p, err := scryptParams(parts[1:])
		if err != nil {
			return false, err
		}
		got, err = scrypt.Key([]byte(password), []byte(salt), n, r, p, scryptKeyLen)
		if err != nil {
			return false, err
		}
	default:
		return false, errUnknownHash
	}
	return subtle.ConstantTimeCompare(got, expected) == 1, nil
}

func pbkdf2Params(args []string) (func() hash.Hash, int, error) {
	h := sha256.New
	if len(args) > 0 {
		switch args[0] {
		case "sha256":
		case "sha1":
			h = sha1.New
		case "sha512":
			h = sha512.New
		default:
			return nil, 0, fmt.Errorf("%w: digest %q", errUnknownHash, args[0])
		}
	}
	iter := defaultPBKDF2Iterations
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			return nil, 0, fmt.Errorf("%w: iterations %q", errUnknownHash, args[1])
		}
		iter = n
	}
	return h, iter, nil
}

func scryptParams(args []string) (n, r, p int, err error) {
	n, r, p = defaultScryptN, defaultScryptR, defaultScryptP
	if len(args) == 0 {
		return n, r, p, nil
	}
	if len(args) != 3 {
		return 0, 0, 0, fmt.Errorf("%w: scrypt parameters %v", errUnknownHash, args)
	}
	vals := make([]int, 3)
	for i, a := range args {
		v, convErr := strconv.Atoi(a)
		if convErr != nil || v <= 0 {
			return 0, 0, 0, fmt.Errorf("%w: scrypt parameter %q", errUnknownHash, a)
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], nil
}
