// Package lifecycle implements the HIPAA data-lifecycle flows: the retention
// and archival sweep, and data-subject erasure. Both flows consume the same
// declarative field-masking policy so the anonymized field sets cannot drift.
package lifecycle

import (
	"fmt"
	"strings"
)

// Mode selects the sentinel family written into masked fields.
type Mode string

const (
	// ModeArchived marks records anonymized by the retention sweep.
	ModeArchived Mode = "ARCHIVED"
	// ModeDeleted marks records anonymized by a data-subject erasure request.
	ModeDeleted Mode = "DELETED"
)

// MaskKind is how a masked column's replacement value is derived.
type MaskKind int

const (
	// MaskIDTag writes "<MODE>_<id8>", keeping a non-identifying handle.
	MaskIDTag MaskKind = iota
	// MaskBracket writes "[<MODE>]".
	MaskBracket
	// MaskEmail writes a syntactically valid but undeliverable address.
	MaskEmail
	// MaskEmptyText blanks the column.
	MaskEmptyText
	// MaskEmptyList writes an empty array.
	MaskEmptyList
	// MaskBracketList writes a single-element array holding "[<MODE>]",
	// for array columns that must keep a visible tombstone.
	MaskBracketList
)

// FieldMask pairs a column with its replacement rule.
type FieldMask struct {
	Column string
	Kind   MaskKind
}

// Policy is the single masking table consumed by both archival and erasure.
// Adding a PHI column to an entity means adding it here, once.
var Policy = map[string][]FieldMask{
	"clients": {
		{Column: "name", Kind: MaskIDTag},
		{Column: "email", Kind: MaskEmail},
		{Column: "phone", Kind: MaskBracket},
		{Column: "address", Kind: MaskBracket},
		{Column: "medical_conditions", Kind: MaskBracket},
		{Column: "medications", Kind: MaskBracket},
		{Column: "emergency_contact", Kind: MaskBracket},
	},
	"visit_notes": {
		{Column: "tasks", Kind: MaskBracketList},
		{Column: "meals", Kind: MaskBracketList},
		{Column: "medications", Kind: MaskBracketList},
		{Column: "observations", Kind: MaskBracketList},
		{Column: "incidents", Kind: MaskBracketList},
		{Column: "photos", Kind: MaskEmptyList},
	},
	"invoices": {
		{Column: "notes", Kind: MaskEmptyText},
	},
}

// shortID returns the 8-character handle embedded in ID-tagged sentinels.
func shortID(id string) string {
	compact := strings.ReplaceAll(id, "-", "")
	if len(compact) > 8 {
		return compact[:8]
	}
	return compact
}

// maskValue computes the replacement for one column.
func maskValue(mode Mode, recordID string, kind MaskKind) any {
	switch kind {
	case MaskIDTag:
		return fmt.Sprintf("%s_%s", mode, shortID(recordID))
	case MaskBracket:
		return fmt.Sprintf("[%s]", mode)
	case MaskEmail:
		return fmt.Sprintf("%s_%s@anonymized.invalid", strings.ToLower(string(mode)), shortID(recordID))
	case MaskEmptyList:
		return []string{}
	case MaskBracketList:
		return []string{fmt.Sprintf("[%s]", mode)}
	default:
		return ""
	}
}

// SetClause renders the policy for an entity as a SQL SET fragment with
// positional placeholders starting at firstArg, plus the matching args.
func SetClause(entity string, mode Mode, recordID string, firstArg int) (string, []any, error) {
	masks, ok := Policy[entity]
	if !ok {
		return "", nil, fmt.Errorf("lifecycle: no masking policy for entity %q", entity)
	}
	parts := make([]string, 0, len(masks))
	args := make([]any, 0, len(masks))
	for i, m := range masks {
		parts = append(parts, fmt.Sprintf("%s = $%d", m.Column, firstArg+i))
		args = append(args, maskValue(mode, recordID, m.Kind))
	}
	return strings.Join(parts, ", "), args, nil
}
