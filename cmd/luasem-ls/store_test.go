package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luasem/luasem/internal/index"
)

func TestOpenStoreReturnsNilWhenNeitherConfigured(t *testing.T) {
	st, err := openStore("", false)
	require.NoError(t, err)
	require.Nil(t, st)
}

func TestOpenStoreOpensLocalWhenDBFlagSet(t *testing.T) {
	st, err := openStore(":memory:", false)
	require.NoError(t, err)
	require.NotNil(t, st)
	defer st.Close()

	require.NoError(t, st.SaveSnapshot("a.lua", "deadbeef", 1, index.ClassMain))
	ok, err := st.Matches("a.lua", "return 1")
	require.NoError(t, err)
	require.False(t, ok, "hash recorded was not the hash of this text")
}

func TestOpenStorePrefersRemoteOverLocal(t *testing.T) {
	// A control character makes the DSN fail net/url parsing inside
	// libsql.NewConnector synchronously, so this assertion never
	// depends on actually reaching a network host — only on which
	// branch openStore took.
	t.Setenv("EMMYLUALS_REMOTE_DB", "libsql://exa\x7fmple")

	_, err := openStore(":memory:", false)
	require.Error(t, err, "a remote DSN must take the remote path even when --db is also set")
	require.Contains(t, err.Error(), "remote store")
}

func TestRecordSnapshotNilStoreIsNoop(t *testing.T) {
	called := false
	recordSnapshot(nil, "a.lua", "return 1", 1, index.ClassMain, func(error) { called = true })
	require.False(t, called)
}

func TestRecordSnapshotReportsPersistFailureWithoutPanicking(t *testing.T) {
	st, err := openStore(":memory:", false)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Close()) // closing twice: second SaveSnapshot must fail, not panic

	var gotErr error
	recordSnapshot(st, "a.lua", "return 1", 1, index.ClassMain, func(err error) { gotErr = err })
	require.Error(t, gotErr)
}
