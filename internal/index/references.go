package index

import "github.com/luasem/luasem/internal/types"

// FileReferences holds the per-file reference sub-indices described in
// §3 References index: decl→ranges, global-name→ranges,
// index-key→ranges, and string-literal→ranges (short strings only).
type FileReferences struct {
	ByDecl      map[DeclId][]types.ByteRange
	ByGlobal    map[string][]types.ByteRange
	ByIndexKey  map[string][]types.ByteRange // MemberKey.String() keyed
	ByStringLit map[string][]types.ByteRange
}

func newFileReferences() *FileReferences {
	return &FileReferences{
		ByDecl:      make(map[DeclId][]types.ByteRange),
		ByGlobal:    make(map[string][]types.ByteRange),
		ByIndexKey:  make(map[string][]types.ByteRange),
		ByStringLit: make(map[string][]types.ByteRange),
	}
}

func (r *FileReferences) addDecl(id DeclId, rng types.ByteRange) {
	r.ByDecl[id] = append(r.ByDecl[id], rng)
}
func (r *FileReferences) addGlobal(name string, rng types.ByteRange) {
	r.ByGlobal[name] = append(r.ByGlobal[name], rng)
}
func (r *FileReferences) addIndexKey(key types.MemberKey, rng types.ByteRange) {
	r.ByIndexKey[key.String()] = append(r.ByIndexKey[key.String()], rng)
}

// shortStringLimit is the maximum string-literal length recorded for
// reference search (§6 `references.shortStringSearch`, default cap).
const shortStringLimit = 64

func (r *FileReferences) addStringLiteral(s string, rng types.ByteRange, enabled bool) {
	if !enabled || len(s) > shortStringLimit {
		return
	}
	r.ByStringLit[s] = append(r.ByStringLit[s], rng)
}
