package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewCorrelationID tags one webhook delivery or API call across log lines.
func NewCorrelationID() string {
	return "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
}
