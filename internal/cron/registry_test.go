package cron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryKeepsOrder(t *testing.T) {
	registry, err := NewRegistry(&testJob{name: "outbox-retention"}, &testJob{name: "orphan-image-cleanup"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outbox-retention", "orphan-image-cleanup"}, registry.Names())

	jobs := registry.Jobs()
	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsBadJobs(t *testing.T) {
	_, err := NewRegistry(&testJob{name: "a"}, &testJob{name: "a"})
	assert.ErrorContains(t, err, "registered twice")

	_, err = NewRegistry(&testJob{name: "  "})
	assert.Error(t, err)

	registry, err := NewRegistry()
	require.NoError(t, err)
	assert.Error(t, registry.Register(nil))
	assert.Empty(t, registry.Jobs())
}
