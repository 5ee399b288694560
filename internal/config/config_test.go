package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultHasClassConstructorName(t *testing.T) {
	cfg := Default()
	require.Equal(t, []string{"DefineClass"}, cfg.Runtime.ClassConstructorNames)
	require.Equal(t, "utf-8", cfg.Workspace.Encoding)
}

func TestLoadMergesWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, ".luarc.json"), []byte(`{
		"runtime": {"classConstructorNames": ["DefineClass", "DefineEntity"]},
		"strict": {"arrayIndex": false}
	}`), 0o644)
	require.NoError(t, err)

	cfg, warnings := Load(dir)
	require.Empty(t, warnings)
	require.Equal(t, []string{"DefineClass", "DefineEntity"}, cfg.Runtime.ClassConstructorNames)
}

func TestLoadSkipsMalformedFileAndWarns(t *testing.T) {
	dir := t.TempDir()
	err := os.WriteFile(filepath.Join(dir, ".luarc.json"), []byte(`not json`), 0o644)
	require.NoError(t, err)

	cfg, warnings := Load(dir)
	require.NotEmpty(t, warnings)
	require.Equal(t, Default().Runtime.ClassConstructorNames, cfg.Runtime.ClassConstructorNames)
}
