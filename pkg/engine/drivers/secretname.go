package drivers

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewSecretName generates a collision-resistant engine secret name
// scoped to one attach attempt. Re-running an attach generates a fresh
// name, so a half-cleaned previous attempt cannot shadow the new one.
func NewSecretName(alias string) string {
	suffix := strings.ReplaceAll(uuid.NewString()[:8], "-", "")
	return fmt.Sprintf("skiff_sec_%s_%s", alias, suffix)
}
