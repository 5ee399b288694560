package index

import "github.com/luasem/luasem/internal/types"

// PropertyEntry is the free-form documentation associated with a
// semantic decl id (§3 Property index): descriptions, deprecation, and
// `---@source` provenance.
type PropertyEntry struct {
	Description string
	Deprecated  bool
	DeprecatedReason string
	Source      string // `---@source` annotation, if present
	SeeAlso     []string
}

// SemanticDeclId is re-exported for call-site readability.
type SemanticDeclId = types.SemanticDeclId
