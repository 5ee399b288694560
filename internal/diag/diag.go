// Package diag holds the shared diagnostic and inference-failure
// vocabulary every analysis pass reports through (§7 Error handling
// design): the Diagnostic struct surfaced to editor clients and the
// InferFailReason values component G and H coordinate the unresolved
// fixpoint through.
package diag

import "github.com/luasem/luasem/internal/types"

// Severity mirrors the editor-protocol severity levels (error/warning/
// information/hint), kept here rather than in internal/protocol so
// that analysis passes producing diagnostics don't import the
// transport layer.
type Severity uint8

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityInformation
	SeverityHint
)

// RelatedLocation is one secondary location attached to a Diagnostic
// ("see also: declared here").
type RelatedLocation struct {
	File    types.FileID
	Range   types.ByteRange
	Message string
}

// Diagnostic is one analyzer finding (§7): severity, range, a stable
// code for per-code enable/disable, a human message, and optional
// related locations.
type Diagnostic struct {
	File     types.FileID
	Range    types.ByteRange
	Severity Severity
	Code     string
	Message  string
	Related  []RelatedLocation
}

// InferFailReasonKind enumerates the ways component G's inference of
// one expression can fail to produce an immediate answer (§4.7/§7).
type InferFailReasonKind uint8

const (
	ReasonNone InferFailReasonKind = iota
	ReasonFieldNotFound
	ReasonUnResolveDecl
	ReasonUnResolveExpr
	ReasonUnResolveMember
)

// InferFailReason is the typed payload of a failed inference attempt;
// exactly one of DeclID/ExprID/MemberID is meaningful, selected by
// Kind.
type InferFailReason struct {
	Kind    InferFailReasonKind
	DeclID  types.DeclId
	ExprID  types.ExprId
	MemberID types.MemberId
	// RetIdx selects which element of a multi-return tuple the deferred
	// binding wants, used by UnResolveDecl{expr, retIdx} (§4.7 local-stat
	// contract).
	RetIdx int
}

func NoOpinion() InferFailReason { return InferFailReason{Kind: ReasonNone} }

func FieldNotFound() InferFailReason { return InferFailReason{Kind: ReasonFieldNotFound} }

func UnResolveDecl(id types.DeclId, retIdx int) InferFailReason {
	return InferFailReason{Kind: ReasonUnResolveDecl, DeclID: id, RetIdx: retIdx}
}

func UnResolveExpr(id types.ExprId) InferFailReason {
	return InferFailReason{Kind: ReasonUnResolveExpr, ExprID: id}
}

func UnResolveMember(id types.MemberId) InferFailReason {
	return InferFailReason{Kind: ReasonUnResolveMember, MemberID: id}
}

// Sentinel errors for the boundary failure kinds §7 names that aren't
// per-expression inference reasons.
type ConfigError struct {
	Key string
	Err error
}

func (e *ConfigError) Error() string { return "config error for " + e.Key + ": " + e.Err.Error() }
func (e *ConfigError) Unwrap() error { return e.Err }

type DecodeError struct {
	File types.FileID
	Err  error
}

func (e *DecodeError) Error() string { return e.Err.Error() }
func (e *DecodeError) Unwrap() error { return e.Err }

type GlobError struct {
	Pattern string
	Err     error
}

func (e *GlobError) Error() string { return "invalid glob " + e.Pattern + ": " + e.Err.Error() }
func (e *GlobError) Unwrap() error { return e.Err }
