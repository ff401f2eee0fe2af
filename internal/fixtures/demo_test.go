package fixtures

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/settlement-backend-go/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeedDemo(t *testing.T) {
	store := memory.NewStore()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	ids := SeedDemo(store, DemoBusinessID, now)
	require.Len(t, ids.EmployeeIDs, 5)

	dir := memory.NewDirectory(store)
	active, err := dir.GetActiveByBusinessID(context.Background(), DemoBusinessID)
	require.NoError(t, err)
	assert.Len(t, active, 4)

	// May 2024 has 23 weekdays.
	summary, err := dir.GetAttendanceSummary(context.Background(), DemoBusinessID, ids.EmployeeIDs["EMP001"],
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Len(t, summary.Daily, 23)

	resigned, err := dir.GetAttendanceSummary(context.Background(), DemoBusinessID, ids.EmployeeIDs["EMP005"],
		time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, resigned.Daily)
}

func TestDefaultTemplateRequest_Valid(t *testing.T) {
	req := DefaultTemplateRequest()
	assert.NoError(t, req.Validate())

	cfg := DefaultConfigurationRequest("tmpl-1")
	assert.NoError(t, cfg.Validate())
}
