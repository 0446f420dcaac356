package utils

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// NewID returns a task, context, or message identifier of the form
// prefix-<8 random bytes hex>-<UTC timestamp>. The random segment carries
// the uniqueness; the timestamp only dates the ID.
func NewID(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b) + "-" + time.Now().UTC().Format("20060102150405")
}
