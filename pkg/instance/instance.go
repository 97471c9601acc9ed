package instance

import (
	"os"

	"github.com/angelmondragon/civicpulse-backend/pkg/env"
)

// GetID identifies this process in logs and lock values. It prefers
// CIVICPULSE_INSTANCE_ID, then the hostname.
func GetID() string {
	if id := env.First("", "CIVICPULSE_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "instance-0"
}
