package index

import "github.com/luasem/luasem/internal/types"

// OperatorKind enumerates the metamethod-like hooks a type or element
// can register (§4.2 operators[owner][meta-kind]).
type OperatorKind uint8

const (
	OpIndex OperatorKind = iota
	OpNewIndex
	OpCall
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpUnm
	OpConcat
	OpLen
	OpEq
	OpLt
	OpLe
)

// OperatorId names one registered operator implementation by the
// signature that backs it.
type OperatorId struct {
	Kind OperatorKind
	Sig  types.SignatureId
}
