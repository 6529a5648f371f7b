package audit

import (
	"sort"
	"time"
)

// ReportFilter narrows an access report to a date range and/or entity.
// Filtering happens in memory after the target user's log is fetched.
type ReportFilter struct {
	Start  time.Time
	End    time.Time
	Entity string
}

// Summary aggregates a set of entries for compliance review.
type Summary struct {
	TotalActions   int               `json:"total_actions"`
	ByAction       map[string]int    `json:"by_action"`
	ByEntity       map[string]int    `json:"by_entity"`
	ByRiskLevel    map[RiskLevel]int `json:"by_risk_level"`
	PHIAccessCount int               `json:"phi_access_count"`
	FailedActions  int               `json:"failed_actions"`
}

// AccessReport is the result of an access audit query.
type AccessReport struct {
	TargetUserID string  `json:"target_user_id"`
	Entries      []Entry `json:"entries"`
	Summary      Summary `json:"summary"`
}

// BuildReport filters, sorts (newest first), and summarizes a user's entries.
func BuildReport(targetUserID string, entries []Entry, filter ReportFilter) AccessReport {
	filtered := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if !filter.Start.IsZero() && e.CreatedAt.Before(filter.Start) {
			continue
		}
		if !filter.End.IsZero() && e.CreatedAt.After(filter.End) {
			continue
		}
		if filter.Entity != "" && e.Entity != filter.Entity {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
	})

	summary := Summary{
		TotalActions: len(filtered),
		ByAction:     make(map[string]int),
		ByEntity:     make(map[string]int),
		ByRiskLevel:  make(map[RiskLevel]int),
	}
	for _, e := range filtered {
		summary.ByAction[e.ActionType]++
		if e.Entity != "" {
			summary.ByEntity[e.Entity]++
		}
		summary.ByRiskLevel[e.RiskLevel]++
		if e.ActionType == ActionAccessPHI || IsPHIEntity(e.Entity) {
			summary.PHIAccessCount++
		}
		if !e.Success {
			summary.FailedActions++
		}
	}

	return AccessReport{
		TargetUserID: targetUserID,
		Entries:      filtered,
		Summary:      summary,
	}
}
