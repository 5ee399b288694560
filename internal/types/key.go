package types

import "fmt"

// MemberKeyKind distinguishes the three forms a member key can take.
type MemberKeyKind uint8

const (
	KeyName MemberKeyKind = iota
	KeyInteger
	KeyExprType
)

// MemberKey is the key under which a Member is stored on its owner.
// ExprType lets the key itself be a type, for table-indexed-by-type
// patterns (e.g. enum-keyed dispatch tables).
type MemberKey struct {
	Kind MemberKeyKind
	Name string // interned, valid when Kind == KeyName
	Int  int64  // valid when Kind == KeyInteger
	Expr *Type  // valid when Kind == KeyExprType
}

func NameKey(name string) MemberKey { return MemberKey{Kind: KeyName, Name: Intern(name)} }
func IntKey(i int64) MemberKey      { return MemberKey{Kind: KeyInteger, Int: i} }
func ExprTypeKey(t *Type) MemberKey { return MemberKey{Kind: KeyExprType, Expr: t} }

func (k MemberKey) String() string {
	switch k.Kind {
	case KeyName:
		return k.Name
	case KeyInteger:
		return fmt.Sprintf("[%d]", k.Int)
	case KeyExprType:
		return fmt.Sprintf("[%s]", k.Expr)
	default:
		return "<bad-key>"
	}
}

// Equal compares two keys structurally. ExprType keys compare by the
// structural equality of their carried type, per the type algebra's
// general equality rule.
func (k MemberKey) Equal(o MemberKey) bool {
	if k.Kind != o.Kind {
		return false
	}
	switch k.Kind {
	case KeyName:
		return k.Name == o.Name
	case KeyInteger:
		return k.Int == o.Int
	case KeyExprType:
		return Equal(k.Expr, o.Expr)
	default:
		return false
	}
}
