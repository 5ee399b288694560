package index

import "github.com/luasem/luasem/internal/types"

// ClearFile removes every entry the decl/doc/flow/infer passes wrote
// for `file`: its decls, its Element-owned members, any member whose
// defining syntax node lives in that file regardless of owner (a
// class's methods can be declared across several files), its
// references, its module-index entry, and the file-dependency edges it
// originates. Type declarations and global decls introduced by `file`
// lose only the portions that trace back to it; a class extended by
// other files keeps their contributions.
//
// This is the "clear then repopulate" operation §3 Lifecycle and §9
// Incremental re-index call for per-file re-index.
func (ix *Index) ClearFile(file types.FileID) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.clearFileLocked(file)
	ix.bump()
}

func (ix *Index) clearFileLocked(file types.FileID) {
	// Decls + global index entries they created.
	for id, d := range ix.decls[file] {
		if d.Variant == DeclGlobal {
			if set := ix.globalIndex[d.Name]; set != nil {
				delete(set, id)
				if len(set) == 0 {
					delete(ix.globalIndex, d.Name)
				}
			}
		}
	}
	delete(ix.decls, file)
	delete(ix.declOrder, file)

	// Members: drop Element-owned members whose owner range lives in
	// this file outright; for Type/GlobalPath-owned members, drop only
	// the members whose own defining node is in this file.
	for ok, list := range ix.members {
		if ok.kind == OwnerElement && ok.file == file {
			delete(ix.members, ok)
			delete(ix.memberByKey, ok)
			continue
		}
		kept := list[:0:0]
		removed := false
		for _, m := range list {
			if m.ID.File == file {
				removed = true
				continue
			}
			kept = append(kept, m)
		}
		if removed {
			if len(kept) == 0 {
				delete(ix.members, ok)
				delete(ix.memberByKey, ok)
			} else {
				ix.members[ok] = kept
				ix.rebuildMemberByKeyLocked(ok, kept)
			}
		}
	}

	// Type declarations: drop the partial-declaration locations that
	// trace back to `file`; drop the TypeDecl entirely only if it has
	// no remaining definitions from any other file.
	for id, td := range ix.typeDecls {
		before := len(td.Definitions)
		kept := td.Definitions[:0:0]
		for _, d := range td.Definitions {
			if d.File != file {
				kept = append(kept, d)
			}
		}
		td.Definitions = kept
		if before > 0 && len(kept) == 0 {
			delete(ix.typeDecls, id)
		}
	}

	// Signatures declared in this file.
	for id := range ix.signatures {
		if id.File == file {
			delete(ix.signatures, id)
		}
	}

	// Operators owned by an Element in this file.
	for ok := range ix.operators {
		if ok.kind == OwnerElement && ok.file == file {
			delete(ix.operators, ok)
		}
	}

	// References, module index, and outgoing file-dependency edges.
	delete(ix.references, file)
	ix.moduleIndex.clearFile(file)
	delete(ix.fileDeps, file)
}

func (ix *Index) rebuildMemberByKeyLocked(owner ownerKey, members []*Member) {
	byKey := make(map[string][]*Member)
	for _, m := range members {
		ks := m.Key.String()
		byKey[ks] = append(byKey[ks], m)
	}
	ix.memberByKey[owner] = byKey
}
