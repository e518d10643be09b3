package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityRank(t *testing.T) {
	assert.Greater(t, SeverityRank(SeverityHigh), SeverityRank(SeverityMedium))
	assert.Greater(t, SeverityRank(SeverityMedium), SeverityRank(SeverityLow))
	assert.Equal(t, 0, SeverityRank(Severity("critical")))
}

func TestValidSeverity(t *testing.T) {
	assert.True(t, ValidSeverity(SeverityLow))
	assert.True(t, ValidSeverity(SeverityHigh))
	assert.False(t, ValidSeverity(Severity("")))
	assert.False(t, ValidSeverity(Severity("urgent")))
}

func TestLookupMode(t *testing.T) {
	for _, key := range ModeKeys() {
		m, ok := LookupMode(key)
		require.True(t, ok, key)
		assert.Equal(t, key, m.Key)
		assert.NotEmpty(t, m.FocusAreas)
	}

	_, ok := LookupMode("vibes")
	assert.False(t, ok)
}

func TestCountSeverities(t *testing.T) {
	counts := CountSeverities([]Finding{
		{Severity: SeverityHigh},
		{Severity: SeverityHigh},
		{Severity: SeverityMedium},
		{Severity: SeverityLow},
		{Severity: Severity("weird")}, // counts as low
	})
	assert.Equal(t, 2, counts.High)
	assert.Equal(t, 1, counts.Medium)
	assert.Equal(t, 2, counts.Low)
}

func TestReduce(t *testing.T) {
	f := Finding{
		Type:        "bug",
		File:        "main.go",
		Line:        12,
		Severity:    SeverityHigh,
		Description: "race in init",
		Suggestion:  "guard with a mutex",
	}
	h := Reduce(f)
	assert.Equal(t, f.Type, h.Type)
	assert.Equal(t, f.Line, h.Line)
	assert.Equal(t, f.Description, h.Description)
}

func TestChangedLines(t *testing.T) {
	f := FilePatch{Additions: 7, Deletions: 3}
	assert.Equal(t, 10, f.ChangedLines())
}
