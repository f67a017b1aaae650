package catalog

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltBytes = 16
	keyBytes  = 32
)

// HashPassword 使用 PBKDF2-SHA256 派生口令，返回标准 base64 编码的 hash 与 salt.
func HashPassword(password string, iterations int) (hash, salt string, err error) {
	s := make([]byte, saltBytes)
	if _, err := rand.Read(s); err != nil {
		return "", "", fmt.Errorf("read salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), s, iterations, keyBytes, sha256.New)

	return base64.StdEncoding.EncodeToString(key), base64.StdEncoding.EncodeToString(s), nil
}

// VerifyPassword 常数时间比较派生结果.
func VerifyPassword(password, salt, hash string, iterations int) bool {
	s, err := base64.StdEncoding.DecodeString(salt)
	if err != nil {
		return false
	}

	want, err := base64.StdEncoding.DecodeString(hash)
	if err != nil || len(want) == 0 {
		return false
	}

	got := pbkdf2.Key([]byte(password), s, iterations, len(want), sha256.New)

	return subtle.ConstantTimeCompare(got, want) == 1
}
