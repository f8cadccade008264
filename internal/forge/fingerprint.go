package forge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"planforge/internal/models"
)

// Fingerprint hashes the conversation state a document set was rendered
// from. Any appended message changes the fingerprint, which is what the
// staleness check compares against. The hash covers message identity and
// content in order, so it is exact rather than heuristic.
func Fingerprint(sessionID uint, messages []models.Message) string {
	h := sha256.New()
	fmt.Fprintf(h, "session:%d\n", sessionID)
	for _, msg := range messages {
		fmt.Fprintf(h, "%d|%s|%d|", msg.ID, msg.Role, msg.CreatedAt.UnixNano())
		h.Write([]byte(msg.Content))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
