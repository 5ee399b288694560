package main

import (
	"github.com/luasem/luasem/internal/index"
	"github.com/luasem/luasem/internal/store"
	"github.com/luasem/luasem/internal/store/remote"
	"github.com/luasem/luasem/internal/types"
	"github.com/luasem/luasem/internal/workspace"
)

// moduleClass looks up file's workspace classification (Main/Library/
// Std) through the index's module table, defaulting to ClassMain for
// the narrow window between FullIndex assigning a FileID and
// SetModule registering its class — a window an AnalyzeFunc closure
// never actually observes, since Manager always calls SetModule first.
func moduleClass(mgr *workspace.Manager, file types.FileID) index.WorkspaceClass {
	if entry, ok := mgr.Index().ModuleOf(file); ok {
		return entry.Class
	}
	return index.ClassMain
}

// openStore resolves the persisted warm-cache store from --db and/or
// EMMYLUALS_REMOTE_DB (§3 internal/store / internal/store/remote): a
// remote DSN, when set, always wins over a local --db path, mirroring
// the teacher's db.Connect(dsn, debug)/isURL(dsn) branch this package
// is grounded on. Returns a nil *store.Store (not an error) when
// neither is configured — the store is optional everywhere it is
// consulted.
func openStore(localDSN string, debug bool) (*store.Store, error) {
	if dsn, ok := remote.Enabled(); ok {
		return remote.Open(dsn, debug)
	}
	if localDSN == "" {
		return nil, nil
	}
	return store.Open(localDSN, debug)
}

// recordSnapshot persists one file's content hash and generation for a
// future cold start's warm-start check (§3), swallowing (not failing
// the analysis over) a persistence error — the store is an
// accelerator, never a source of truth, so a write failure degrades to
// "no warm cache for this file" rather than aborting analysis.
func recordSnapshot(st *store.Store, path, text string, generation uint64, class index.WorkspaceClass, onErr func(error)) {
	if st == nil {
		return
	}
	if err := st.SaveSnapshot(path, store.HashText(text), generation, class); err != nil && onErr != nil {
		onErr(err)
	}
}
