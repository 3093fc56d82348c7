package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBuildReport(t *testing.T) {
	r := BuildReport(ReportInput{
		SigningAlgorithm: "hs256",
		AccessTTL:        15 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
		SessionTTL:       24 * time.Hour,
		MaxLoginAttempts: 3,
		LockoutDuration:  15 * time.Minute,
	})
	require.True(t, r.LockoutActive)
	require.True(t, r.RefreshOutlivesSession)
	require.Equal(t, 3, r.MaxLoginAttempts)

	r = BuildReport(ReportInput{RefreshTTL: time.Hour, SessionTTL: 24 * time.Hour})
	require.False(t, r.LockoutActive)
	require.False(t, r.RefreshOutlivesSession)
}
