// Package gcp holds the client options shared by the Google Cloud SDK clients.
package gcp

import (
	"strings"

	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"google.golang.org/api/option"
)

// ClientOptions picks explicit credentials when configured and otherwise
// leaves the SDK on Application Default Credentials.
func ClientOptions(cfg config.GCPConfig) []option.ClientOption {
	var opts []option.ClientOption
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case strings.TrimSpace(cfg.ApplicationCredentials) != "":
		opts = append(opts, option.WithCredentialsFile(cfg.ApplicationCredentials))
	}
	return opts
}
