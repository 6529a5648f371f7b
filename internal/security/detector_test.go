package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightharbor/homecare-platform/internal/audit"
)

func entriesOf(userID, action, entity, ip string, n int, at time.Time) []audit.Entry {
	out := make([]audit.Entry, n)
	for i := range out {
		out[i] = audit.Entry{
			UserID:     userID,
			ActionType: action,
			Entity:     entity,
			IPAddress:  ip,
			CreatedAt:  at,
		}
	}
	return out
}

func findingsByType(findings []Finding, userID string) map[string]Finding {
	out := make(map[string]Finding)
	for _, f := range findings {
		if f.UserID == userID {
			out[f.Type+"/"+string(f.Severity)] = f
		}
	}
	return out
}

func TestDetectFailedLoginPattern(t *testing.T) {
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	findings := Detect(entriesOf("u1", audit.ActionFailedLogin, "", "10.0.0.1", 5, noon), DefaultThresholds, time.UTC)
	require.Len(t, findings, 1)
	assert.Equal(t, TypeFailedLoginPattern, findings[0].Type)
	assert.Equal(t, audit.RiskHigh, findings[0].Severity)
	assert.Equal(t, 5, findings[0].Count)

	// 4 is below threshold
	findings = Detect(entriesOf("u1", audit.ActionFailedLogin, "", "10.0.0.1", 4, noon), DefaultThresholds, time.UTC)
	assert.Empty(t, findings)
}

func TestDetectExcessivePHIReads(t *testing.T) {
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Exactly 50 is not flagged; 51 is.
	findings := Detect(entriesOf("u2", audit.ActionAccessPHI, audit.EntityClient, "10.0.0.1", 50, noon), DefaultThresholds, time.UTC)
	assert.Empty(t, findings)

	findings = Detect(entriesOf("u2", audit.ActionAccessPHI, audit.EntityClient, "10.0.0.1", 51, noon), DefaultThresholds, time.UTC)
	require.Len(t, findings, 1)
	assert.Equal(t, audit.RiskCritical, findings[0].Severity)
	assert.Equal(t, TypeSuspiciousActivity, findings[0].Type)
}

func TestDetectPHIReadsCountEntityReads(t *testing.T) {
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// Plain reads of PHI entities count even without the Access PHI action.
	entries := entriesOf("u2", audit.ActionRead, audit.EntityVisitNote, "10.0.0.1", 51, noon)
	findings := Detect(entries, DefaultThresholds, time.UTC)
	require.Len(t, findings, 1)
	assert.Equal(t, audit.RiskCritical, findings[0].Severity)
}

func TestDetectPHIReadsIgnoreWrites(t *testing.T) {
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	// A caregiver updating visit notes all day is not a breach pattern;
	// only read-type access counts toward the PHI threshold.
	entries := entriesOf("caregiver", audit.ActionUpdate, audit.EntityVisitNote, "10.0.0.1", 51, noon)
	entries = append(entries, entriesOf("caregiver", audit.ActionCreate, audit.EntityClient, "10.0.0.1", 20, noon)...)

	assert.Empty(t, Detect(entries, DefaultThresholds, time.UTC))
}

func TestDetectDistinctIPs(t *testing.T) {
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	var entries []audit.Entry
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4"} {
		entries = append(entries, audit.Entry{UserID: "u3", ActionType: audit.ActionRead, IPAddress: ip, CreatedAt: noon})
	}
	findings := Detect(entries, DefaultThresholds, time.UTC)
	require.Len(t, findings, 1)
	assert.Equal(t, audit.RiskMedium, findings[0].Severity)
	assert.Equal(t, 4, findings[0].Count)
}

func TestDetectAfterHoursActivity(t *testing.T) {
	night := time.Date(2026, 8, 1, 23, 30, 0, 0, time.UTC)
	earlyMorning := time.Date(2026, 8, 2, 5, 0, 0, 0, time.UTC)

	entries := entriesOf("u4", audit.ActionRead, "", "10.0.0.1", 6, night)
	entries = append(entries, entriesOf("u4", audit.ActionRead, "", "10.0.0.1", 5, earlyMorning)...)

	findings := Detect(entries, DefaultThresholds, time.UTC)
	require.Len(t, findings, 1)
	assert.Equal(t, audit.RiskMedium, findings[0].Severity)
	assert.Equal(t, 11, findings[0].Count)
}

func TestDetectAfterHoursUsesLocation(t *testing.T) {
	// 23:00 UTC is 16:00 in Los Angeles, not after hours there.
	la, err := time.LoadLocation("America/Los_Angeles")
	require.NoError(t, err)

	utcNight := time.Date(2026, 8, 1, 23, 0, 0, 0, time.UTC)
	entries := entriesOf("u5", audit.ActionRead, "", "10.0.0.1", 11, utcNight)

	assert.NotEmpty(t, Detect(entries, DefaultThresholds, time.UTC))
	assert.Empty(t, Detect(entries, DefaultThresholds, la))
}

func TestDetectMultipleUsersAndPatterns(t *testing.T) {
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

	entries := entriesOf("attacker", audit.ActionFailedLogin, "", "10.0.0.9", 7, noon)
	entries = append(entries, entriesOf("snoop", audit.ActionAccessPHI, audit.EntityClient, "10.0.0.2", 60, noon)...)
	entries = append(entries, entriesOf("normal", audit.ActionRead, audit.EntityVisit, "10.0.0.3", 10, noon)...)

	findings := Detect(entries, DefaultThresholds, time.UTC)
	require.Len(t, findings, 2)

	attacker := findingsByType(findings, "attacker")
	assert.Contains(t, attacker, TypeFailedLoginPattern+"/High")

	snoop := findingsByType(findings, "snoop")
	assert.Contains(t, snoop, TypeSuspiciousActivity+"/Critical")

	assert.Empty(t, findingsByType(findings, "normal"))
}

func TestDetectZeroThresholdsFallBackToDefaults(t *testing.T) {
	noon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	entries := entriesOf("u1", audit.ActionFailedLogin, "", "10.0.0.1", 5, noon)

	findings := Detect(entries, Thresholds{}, nil)
	require.Len(t, findings, 1)
}
