// Package config implements the hierarchical configuration merge (§6
// Configuration): workspace discovery settings, reference-recording
// toggles, strict-mode flags, and the runtime hooks the analyzer
// consults (class-constructor call names, the default-call method
// name). Discovery files are JSON, loaded in increasing-precedence
// order the way the teacher's own config layer loads environment
// variables with explicit defaults (internal/config/config.go).
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Workspace holds file-discovery and require-resolution settings.
type Workspace struct {
	IgnoreDir               []string          `json:"ignoreDir"`
	IgnoreGlobs             []string          `json:"ignoreGlobs"`
	ForceIncludePathGlobs   []string          `json:"forceIncludePathGlobs"`
	Library                 []string          `json:"library"`
	WorkspaceRoots          []string          `json:"workspaceRoots"`
	Encoding                string            `json:"encoding"`
	ModuleMap               map[string]string `json:"moduleMap"`
	WorkspacePrefixMap      map[string]string `json:"workspacePrefixMap"`
	ReindexDurationMillis   int               `json:"reindexDuration"`
	EnableReindex           bool              `json:"enableReindex"`
}

// References holds reference-index recording toggles.
type References struct {
	ShortStringSearch bool `json:"shortStringSearch"`
}

// Strict holds soundness-mode toggles.
type Strict struct {
	ArrayIndex bool `json:"arrayIndex"`
}

// RuntimeClassDefaultCall names the method that becomes a type's Call
// metamethod when assigned via `func T.<name>(...)`.
type RuntimeClassDefaultCall struct {
	FunctionName string `json:"functionName"`
}

// Runtime holds domain-specific behavior hooks.
type Runtime struct {
	ClassDefaultCall    RuntimeClassDefaultCall `json:"classDefaultCall"`
	Extensions          []string                `json:"extensions"`
	ClassConstructorNames []string              `json:"classConstructorNames"`
	RequireNames          []string              `json:"requireNames"`
}

// Config is the merged configuration object (§6).
type Config struct {
	Workspace  Workspace  `json:"workspace"`
	References References `json:"references"`
	Strict     Strict     `json:"strict"`
	Runtime    Runtime    `json:"runtime"`
}

// Default returns the configuration defaults named throughout §6 and
// SPEC_FULL.md §5.3's generalized registration-call list.
func Default() *Config {
	return &Config{
		Workspace: Workspace{
			Encoding:              "utf-8",
			ReindexDurationMillis: 5000,
			EnableReindex:         true,
		},
		References: References{ShortStringSearch: true},
		Strict:     Strict{ArrayIndex: true},
		Runtime: Runtime{
			ClassDefaultCall:      RuntimeClassDefaultCall{FunctionName: "new"},
			Extensions:            []string{".lua"},
			ClassConstructorNames: []string{"DefineClass"},
			RequireNames:          []string{"require"},
		},
	}
}

// discoveryFiles returns the ordered (later overrides earlier) list of
// `.luarc.json`/`.emmyrc.json` paths to merge (§6 Configuration
// discovery files), rooted at workspaceDir.
func discoveryFiles(workspaceDir string) []string {
	var out []string
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out, filepath.Join(home, ".luarc.json"), filepath.Join(home, ".emmyrc.json"))
	}
	if cfgDir, err := os.UserConfigDir(); err == nil {
		out = append(out,
			filepath.Join(cfgDir, "emmylua_ls", ".luarc.json"),
			filepath.Join(cfgDir, "emmylua_ls", ".emmyrc.json"),
		)
	}
	if env := os.Getenv("EMMYLUALS_CONFIG"); env != "" {
		out = append(out, env)
	}
	if workspaceDir != "" {
		out = append(out,
			filepath.Join(workspaceDir, ".luarc.json"),
			filepath.Join(workspaceDir, ".emmyrc.json"),
		)
	}
	return out
}

// Load merges the discovery chain over the defaults (§6). A missing
// file is skipped silently; a malformed file is logged by the caller
// (via the returned warnings slice) and that file's contribution is
// dropped — the "config error: replaced with defaults" rule in §7.
func Load(workspaceDir string) (*Config, []string) {
	_ = godotenv.Load(filepath.Join(workspaceDir, ".env"))

	cfg := Default()
	var warnings []string
	for _, path := range discoveryFiles(workspaceDir) {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var partial Config
		if err := json.Unmarshal(data, &partial); err != nil {
			warnings = append(warnings, "config: "+path+": "+err.Error())
			continue
		}
		cfg.merge(&partial)
	}
	return cfg, warnings
}

// MergeClient applies a client-sent partial configuration (e.g. an
// editor's `didChangeConfiguration` payload or an `initialize` request's
// `initializationOptions`) on top of cfg. It is the fifth and highest-
// priority tier in §6's discovery order — called by
// `internal/workspace` after `Load`, not by `Load` itself, since the
// client payload only exists once a session starts.
func (cfg *Config) MergeClient(partial *Config) {
	cfg.merge(partial)
}

// merge overlays non-zero fields of o onto cfg, later files winning
// per key (§6 "later overrides earlier").
func (cfg *Config) merge(o *Config) {
	if len(o.Workspace.IgnoreDir) > 0 {
		cfg.Workspace.IgnoreDir = o.Workspace.IgnoreDir
	}
	if len(o.Workspace.IgnoreGlobs) > 0 {
		cfg.Workspace.IgnoreGlobs = o.Workspace.IgnoreGlobs
	}
	if len(o.Workspace.ForceIncludePathGlobs) > 0 {
		cfg.Workspace.ForceIncludePathGlobs = o.Workspace.ForceIncludePathGlobs
	}
	if len(o.Workspace.Library) > 0 {
		cfg.Workspace.Library = o.Workspace.Library
	}
	if len(o.Workspace.WorkspaceRoots) > 0 {
		cfg.Workspace.WorkspaceRoots = o.Workspace.WorkspaceRoots
	}
	if o.Workspace.Encoding != "" {
		cfg.Workspace.Encoding = o.Workspace.Encoding
	}
	if len(o.Workspace.ModuleMap) > 0 {
		cfg.Workspace.ModuleMap = o.Workspace.ModuleMap
	}
	if len(o.Workspace.WorkspacePrefixMap) > 0 {
		cfg.Workspace.WorkspacePrefixMap = o.Workspace.WorkspacePrefixMap
	}
	if o.Workspace.ReindexDurationMillis > 0 {
		cfg.Workspace.ReindexDurationMillis = o.Workspace.ReindexDurationMillis
	}
	cfg.Workspace.EnableReindex = o.Workspace.EnableReindex || cfg.Workspace.EnableReindex

	cfg.References.ShortStringSearch = o.References.ShortStringSearch || cfg.References.ShortStringSearch
	cfg.Strict.ArrayIndex = o.Strict.ArrayIndex || cfg.Strict.ArrayIndex

	if o.Runtime.ClassDefaultCall.FunctionName != "" {
		cfg.Runtime.ClassDefaultCall.FunctionName = o.Runtime.ClassDefaultCall.FunctionName
	}
	if len(o.Runtime.Extensions) > 0 {
		cfg.Runtime.Extensions = o.Runtime.Extensions
	}
	if len(o.Runtime.ClassConstructorNames) > 0 {
		cfg.Runtime.ClassConstructorNames = o.Runtime.ClassConstructorNames
	}
	if len(o.Runtime.RequireNames) > 0 {
		cfg.Runtime.RequireNames = o.Runtime.RequireNames
	}
}
