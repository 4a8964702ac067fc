package receipt

import (
	"strings"

	"github.com/google/uuid"
)

// NewID generates a receipt identifier like "BW-3FA85F64B2C1". Twelve hex
// characters of UUID entropy keep the collision probability negligible; an
// actual collision is caught by the unique index and retried by the
// submission service.
func NewID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "BW-" + strings.ToUpper(raw[:12])
}
