package util

import (
	"strings"

	"github.com/google/uuid"
)

// NewID returns a prefixed random identifier such as "ses_3f2a...".
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")
}
