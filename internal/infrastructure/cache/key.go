package cache

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var sourceCleaner = regexp.MustCompile(`[^a-z0-9_-]+`)

// NormalizeKey trims, lower-cases and collapses internal whitespace
func NormalizeKey(key string) string {
	return strings.ToLower(strings.Join(strings.Fields(key), " "))
}

// CompositeKey joins logical key parts into a single logical key
func CompositeKey(parts ...string) string {
	return strings.Join(parts, "|")
}

// ContentKey returns a stable logical key for binary content such as an uploaded image
func ContentKey(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// DeriveKey maps a source namespace and logical key to a filesystem-safe cache key
// of the form {source}_{md5hex}. Equal normalized keys give equal cache keys.
func DeriveKey(source, logicalKey string) string {
	sum := md5.Sum([]byte(source + "\x00" + NormalizeKey(logicalKey)))
	return sanitizeSource(source) + "_" + hex.EncodeToString(sum[:])
}

func sanitizeSource(source string) string {
	s := sourceCleaner.ReplaceAllString(strings.ToLower(source), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return "cache"
	}
	return s
}
