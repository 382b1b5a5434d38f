package core

import (
	"crypto/sha256"
	"encoding/hex"
)

// CacheKey derives the content-addressed cache key of an image for one evaluation kind
func CacheKey(kind EvaluationKind, image []byte) string {
	sum := sha256.Sum256(image)
	return string(kind) + "_" + hex.EncodeToString(sum[:])
}
