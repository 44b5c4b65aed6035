package tool

import "github.com/google/uuid"

func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// GenerateOrderID builds a per-attempt billing order reference. UUIDv7 keeps
// references unique across concurrent or retried sweeps.
func GenerateOrderID() string {
	return "AUTO_" + GenerateUUIDV7()
}
