package decision

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// HashRecord returns the hex SHA-256 of the canonical JSON encoding of
// record. Map keys are sorted by encoding/json, so equal records hash equally
// regardless of insertion order.
func HashRecord(record interface{}) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}
	return HashContent(data), nil
}

// HashJSON hashes a JSON document after re-encoding it canonically. Input
// that is not valid JSON is hashed as raw bytes.
func HashJSON(data []byte) string {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return HashContent(data)
	}
	canonical, err := json.Marshal(v)
	if err != nil {
		return HashContent(data)
	}
	return HashContent(canonical)
}

// HashContent returns the hex-encoded SHA-256 of content.
func HashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
