package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartJobs(t *testing.T) {
	s, err := startJobs(newStatusTracker(), time.Second)
	require.NoError(t, err)

	names := make([]string, 0, 3)
	for _, j := range s.Jobs() {
		names = append(names, j.Name())
	}
	assert.ElementsMatch(t, []string{"heartbeat-watchdog", "status-log", "proc-title"}, names)
	require.NoError(t, s.Shutdown())
}
