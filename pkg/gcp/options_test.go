package gcp

import (
	"testing"

	"github.com/angelmondragon/civicpulse-backend/pkg/config"
	"github.com/stretchr/testify/assert"
)

func TestClientOptions(t *testing.T) {
	assert.Empty(t, ClientOptions(config.GCPConfig{}))
	assert.Len(t, ClientOptions(config.GCPConfig{CredentialsJSON: `{"type":"service_account"}`}), 1)
	assert.Len(t, ClientOptions(config.GCPConfig{ApplicationCredentials: "/etc/creds.json"}), 1)
	assert.Len(t, ClientOptions(config.GCPConfig{
		CredentialsJSON:        `{"type":"service_account"}`,
		ApplicationCredentials: "/etc/creds.json",
	}), 1)
}
