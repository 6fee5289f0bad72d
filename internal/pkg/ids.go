package pkg

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const roomSuffixLength = 8

// GenerateRoomID returns room_<unix millis>_<8 hex chars>.
func GenerateRoomID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:roomSuffixLength]

	return fmt.Sprintf("room_%d_%s", now.UnixMilli(), suffix)
}

func GeneratePlayerID() string {
	return uuid.NewString()
}
