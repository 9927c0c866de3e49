package scheduler

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func TestRegisterJobRejectsInvalidSchedule(t *testing.T) {
	service := NewService(arbor.NewLogger())

	err := service.RegisterJob("sweep", "0 */6 * * *", "five fields are not accepted", func() error { return nil })
	assert.Error(t, err)

	require.NoError(t, service.RegisterJob("sweep", "0 0 */6 * * *", "cache sweep", func() error { return nil }))
	assert.Error(t, service.RegisterJob("sweep", "0 0 */6 * * *", "duplicate", func() error { return nil }))
}

func TestTriggerJobRecordsOutcome(t *testing.T) {
	service := NewService(arbor.NewLogger())
	runs := 0
	require.NoError(t, service.RegisterJob("sweep", "0 0 */6 * * *", "cache sweep", func() error {
		runs++
		if runs == 2 {
			return errors.New("store unavailable")
		}
		return nil
	}))

	require.NoError(t, service.TriggerJob("sweep"))
	status, err := service.GetJobStatus("sweep")
	require.NoError(t, err)
	assert.NotNil(t, status.LastRun)
	assert.Empty(t, status.LastError)
	assert.False(t, status.IsRunning)

	require.NoError(t, service.TriggerJob("sweep"))
	status, err = service.GetJobStatus("sweep")
	require.NoError(t, err)
	assert.Equal(t, "store unavailable", status.LastError)

	assert.Error(t, service.TriggerJob("missing"))
}

func TestTriggerJobRecoversPanic(t *testing.T) {
	service := NewService(arbor.NewLogger())
	require.NoError(t, service.RegisterJob("boom", "0 0 * * * *", "panics", func() error {
		panic("bad state")
	}))

	require.NoError(t, service.TriggerJob("boom"))

	status, err := service.GetJobStatus("boom")
	require.NoError(t, err)
	assert.False(t, status.IsRunning)
	assert.Contains(t, status.LastError, "bad state")
}

func TestStartStop(t *testing.T) {
	service := NewService(arbor.NewLogger())
	require.NoError(t, service.RegisterJob("sweep", "0 0 */6 * * *", "cache sweep", func() error { return nil }))

	require.NoError(t, service.Start())
	assert.True(t, service.IsRunning())
	assert.Error(t, service.Start())

	statuses := service.GetAllJobStatuses()
	require.Contains(t, statuses, "sweep")
	assert.NotNil(t, statuses["sweep"].NextRun)

	require.NoError(t, service.Stop())
	assert.False(t, service.IsRunning())
	require.NoError(t, service.Stop())
}
