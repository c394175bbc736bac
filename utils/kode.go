// utils/kode.go
package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// GenProjectCode membuat kode publik proyek, mis. PRJ-2026-7F3A2C1B.
func GenProjectCode(t time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
	return fmt.Sprintf("PRJ-%d-%s", t.Year(), suffix)
}
