package index

import (
	"sync"

	"github.com/luasem/luasem/internal/types"
)

// Index is the in-memory index database (component B). All tables are
// append-only within one analysis generation (§4.2); mutation happens
// through the Index's methods, which play the role of the spec's
// `get_X_index_mut`-style handles, held only for the duration of one
// analysis pass (§5 Shared resources).
//
// A single sync.RWMutex gives the reader-writer discipline §5
// requires: multiple concurrent readers (hover/completion/goto), one
// writer at a time (an analysis pass or a per-file re-index).
type Index struct {
	mu sync.RWMutex

	generation uint64

	decls     map[types.FileID]map[DeclId]*Decl
	declOrder map[types.FileID][]DeclId // lexical declaration order, for position lookup

	members     map[ownerKey][]*Member
	memberByKey map[ownerKey]map[string][]*Member

	typeDecls map[TypeDeclId]*TypeDecl

	signatures map[SignatureId]*Signature

	operators map[ownerKey]map[OperatorKind][]OperatorId

	references map[types.FileID]*FileReferences

	globalIndex map[string]map[DeclId]bool

	moduleIndex *ModuleIndex

	fileDeps map[types.FileID]map[types.FileID]bool // requiring -> set(required)

	metatableIndex map[ownerKey]MemberOwner // table owner key -> metatable owner

	propertyIndex map[SemanticDeclId]*PropertyEntry
}

// New builds an empty Index database.
func New() *Index {
	return &Index{
		decls:          make(map[types.FileID]map[DeclId]*Decl),
		declOrder:      make(map[types.FileID][]DeclId),
		members:        make(map[ownerKey][]*Member),
		memberByKey:    make(map[ownerKey]map[string][]*Member),
		typeDecls:      make(map[TypeDeclId]*TypeDecl),
		signatures:     make(map[SignatureId]*Signature),
		operators:      make(map[ownerKey]map[OperatorKind][]OperatorId),
		references:     make(map[types.FileID]*FileReferences),
		globalIndex:    make(map[string]map[DeclId]bool),
		moduleIndex:    newModuleIndex(),
		fileDeps:       make(map[types.FileID]map[types.FileID]bool),
		metatableIndex: make(map[ownerKey]MemberOwner),
		propertyIndex:  make(map[SemanticDeclId]*PropertyEntry),
	}
}

// Generation returns the current write generation counter, bumped each
// time a writer commits (used by the inference cache and by clients to
// detect "this snapshot is stale").
func (ix *Index) Generation() uint64 {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.generation
}

func (ix *Index) bump() { ix.generation++ }

// --- Decls ---------------------------------------------------------

// AddDecl inserts d, honoring §8 invariant 1 (d.ID.File must equal the
// table it's filed under) and auto-entering Global decls into the
// global index.
func (ix *Index) AddDecl(d *Decl) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.addDeclLocked(d)
	ix.bump()
}

func (ix *Index) addDeclLocked(d *Decl) {
	file := d.ID.File
	if ix.decls[file] == nil {
		ix.decls[file] = make(map[DeclId]*Decl)
	}
	ix.decls[file][d.ID] = d
	ix.declOrder[file] = append(ix.declOrder[file], d.ID)

	if d.Variant == DeclGlobal {
		if ix.globalIndex[d.Name] == nil {
			ix.globalIndex[d.Name] = make(map[DeclId]bool)
		}
		ix.globalIndex[d.Name][d.ID] = true
	}
}

func (ix *Index) GetDecl(id DeclId) (*Decl, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	d, ok := ix.decls[id.File][id]
	return d, ok
}

// DeclAtPosition returns the innermost decl visible at pos in file,
// per lexical declaration order (last decl whose name matches and
// whose position precedes pos wins — shadowing).
func (ix *Index) DeclAtPosition(file types.FileID, name string, pos int) (*Decl, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var best *Decl
	for _, id := range ix.declOrder[file] {
		d := ix.decls[file][id]
		if d == nil || d.Name != name {
			continue
		}
		if d.ID.Pos > pos {
			continue
		}
		if best == nil || d.ID.Pos >= best.ID.Pos {
			best = d
		}
	}
	return best, best != nil
}

func (ix *Index) GlobalDecls(name string) []DeclId {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	set := ix.globalIndex[name]
	out := make([]DeclId, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}

// --- Members ---------------------------------------------------------

// AddMember appends m to its owner's member list, honoring §3's
// invariant that a member's owner owns exactly the set of members
// whose add_member targeted that owner.
func (ix *Index) AddMember(m *Member) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.addMemberLocked(m)
	ix.bump()
}

func (ix *Index) addMemberLocked(m *Member) {
	ok := m.Owner.key()
	ix.members[ok] = append(ix.members[ok], m)
	if ix.memberByKey[ok] == nil {
		ix.memberByKey[ok] = make(map[string][]*Member)
	}
	ks := m.Key.String()
	ix.memberByKey[ok][ks] = append(ix.memberByKey[ok][ks], m)
}

// Members returns every member recorded for owner, in insertion order.
func (ix *Index) Members(owner MemberOwner) []*Member {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*Member(nil), ix.members[owner.key()]...)
}

// MembersByKey returns the members of owner whose key equals k
// (§8 invariant 2: subset of Members(owner), same key).
func (ix *Index) MembersByKey(owner MemberOwner, k types.MemberKey) []*Member {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]*Member(nil), ix.memberByKey[owner.key()][k.String()]...)
}

// --- Type declarations ------------------------------------------------

// EnsureTypeDecl returns the TypeDecl for id, creating an empty Class
// one if it doesn't exist yet (decl pass may create it before the doc
// pass installs its real kind/generics/supers).
func (ix *Index) EnsureTypeDecl(id TypeDeclId) *TypeDecl {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if td, ok := ix.typeDecls[id]; ok {
		return td
	}
	td := &TypeDecl{ID: id, Kind: KindClass}
	ix.typeDecls[id] = td
	ix.bump()
	return td
}

func (ix *Index) GetTypeDecl(id TypeDeclId) (*TypeDecl, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	td, ok := ix.typeDecls[id]
	return td, ok
}

// IsSuperOf implements types.SuperResolver over the live type-decl
// graph: is `super` sub's id itself, or anywhere in sub's transitive
// super closure?
func (ix *Index) IsSuperOf(super, sub TypeDeclId) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.isSuperOfLocked(super, sub, make(map[TypeDeclId]bool))
}

func (ix *Index) isSuperOfLocked(super, sub TypeDeclId, guard map[TypeDeclId]bool) bool {
	if super == sub {
		return true
	}
	if guard[sub] {
		return false
	}
	guard[sub] = true
	td, ok := ix.typeDecls[sub]
	if !ok {
		return false
	}
	for _, s := range td.Supers {
		if ix.isSuperOfLocked(super, s, guard) {
			return true
		}
	}
	return false
}

// --- Signatures --------------------------------------------------------

func (ix *Index) AddSignature(s *Signature) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.signatures[s.ID] = s
	ix.bump()
}

func (ix *Index) GetSignature(id SignatureId) (*Signature, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	s, ok := ix.signatures[id]
	return s, ok
}

// --- Operators --------------------------------------------------------

func (ix *Index) AddOperator(owner MemberOwner, op OperatorId) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	k := owner.key()
	if ix.operators[k] == nil {
		ix.operators[k] = make(map[OperatorKind][]OperatorId)
	}
	ix.operators[k][op.Kind] = append(ix.operators[k][op.Kind], op)
	ix.bump()
}

func (ix *Index) Operators(owner MemberOwner, kind OperatorKind) []OperatorId {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return append([]OperatorId(nil), ix.operators[owner.key()][kind]...)
}

// --- References --------------------------------------------------------

func (ix *Index) refsForFile(file types.FileID) *FileReferences {
	if ix.references[file] == nil {
		ix.references[file] = newFileReferences()
	}
	return ix.references[file]
}

func (ix *Index) AddDeclReference(file types.FileID, id DeclId, rng types.ByteRange) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refsForFile(file).addDecl(id, rng)
	ix.bump()
}

func (ix *Index) AddGlobalReference(file types.FileID, name string, rng types.ByteRange) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refsForFile(file).addGlobal(name, rng)
	ix.bump()
}

func (ix *Index) AddIndexKeyReference(file types.FileID, key types.MemberKey, rng types.ByteRange) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refsForFile(file).addIndexKey(key, rng)
	ix.bump()
}

func (ix *Index) AddStringLiteralReference(file types.FileID, s string, rng types.ByteRange, enabled bool) {
	if !enabled {
		return
	}
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.refsForFile(file).addStringLiteral(s, rng, enabled)
	ix.bump()
}

func (ix *Index) ReferencesToDecl(id DeclId) []types.ByteRange {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []types.ByteRange
	for _, refs := range ix.references {
		out = append(out, refs.ByDecl[id]...)
	}
	return out
}

// --- Module index / file dependencies / metatables ----------------------

func (ix *Index) SetModule(file types.FileID, path string, class WorkspaceClass) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.moduleIndex.Set(file, path, class)
	ix.bump()
}

func (ix *Index) ModuleOf(file types.FileID) (*ModuleEntry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.moduleIndex.Get(file)
}

func (ix *Index) ResolveModule(path string) (types.FileID, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.moduleIndex.Resolve(path)
}

func (ix *Index) AddFileDependency(requiring, required types.FileID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if ix.fileDeps[requiring] == nil {
		ix.fileDeps[requiring] = make(map[types.FileID]bool)
	}
	ix.fileDeps[requiring][required] = true
	ix.bump()
}

// Dependents returns every file that (directly) requires `file` —
// used to fan out cache invalidation (§9 incremental re-index).
func (ix *Index) Dependents(file types.FileID) []types.FileID {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	var out []types.FileID
	for requiring, reqs := range ix.fileDeps {
		if reqs[file] {
			out = append(out, requiring)
		}
	}
	return out
}

func (ix *Index) SetMetatable(table MemberOwner, meta MemberOwner) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.metatableIndex[table.key()] = meta
	ix.bump()
}

func (ix *Index) Metatable(table MemberOwner) (MemberOwner, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	m, ok := ix.metatableIndex[table.key()]
	return m, ok
}

// --- Property index ------------------------------------------------------

func (ix *Index) SetProperty(id SemanticDeclId, p *PropertyEntry) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.propertyIndex[id] = p
	ix.bump()
}

func (ix *Index) Property(id SemanticDeclId) (*PropertyEntry, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	p, ok := ix.propertyIndex[id]
	return p, ok
}
