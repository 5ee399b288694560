package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/pipeline"
	"github.com/luasem/luasem/internal/types"
	"github.com/luasem/luasem/internal/workspace"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Run one full analysis pass over a workspace and print a summary",
	RunE:  runIndex,
}

func init() {
	indexCmd.Flags().String("root", "", "workspace root (default: current directory)")
	indexCmd.Flags().String("parser", "treesitter", "registered surface-parser name to analyze with")
	indexCmd.Flags().String("db", "", "path to a local sqlite warm-cache database to populate (disabled unless set)")
	indexCmd.Flags().Bool("db-debug", false, "log every SQL statement the warm-cache store issues")
}

func runIndex(cmd *cobra.Command, _ []string) error {
	root, _ := cmd.Flags().GetString("root")
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		root = wd
	}

	parserName, _ := cmd.Flags().GetString("parser")
	p, err := resolveParser(parserName)
	if err != nil {
		return err
	}

	dbPath, _ := cmd.Flags().GetString("db")
	dbDebug, _ := cmd.Flags().GetBool("db-debug")
	st, err := openStore(dbPath, dbDebug)
	if err != nil {
		return err
	}
	if st != nil {
		defer st.Close()
	}

	var fileCount int
	var byteCount uint64
	var mgr *workspace.Manager
	var pl *pipeline.Pipeline
	mgr, warnings := workspace.New(root, p, func(_ context.Context, file types.FileID, tree *parser.Tree) {
		pl.Analyze(tree)
		fileCount++
		byteCount += uint64(len(tree.Text))
		if path, ok := mgr.Path(file); ok {
			recordSnapshot(st, path, tree.Text, mgr.Index().Generation(), moduleClass(mgr, file), func(err error) {
				warnf("warm-cache: failed to persist snapshot for %s: %v", path, err)
			})
		}
	})
	for _, w := range warnings {
		warnf("%s", w)
	}
	pl = pipeline.New(mgr.Index(), mgr.Config())

	start := time.Now()
	if err := mgr.FullIndex(cmd.Context()); err != nil {
		return fmt.Errorf("indexing %s: %w", root, err)
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "indexed %s files (%s) from %s in %s\n",
		humanize.Comma(int64(fileCount)), humanize.Bytes(byteCount), root, elapsed.Round(time.Millisecond))
	fmt.Fprintf(out, "generation %d, finished %s\n", mgr.Index().Generation(), humanize.Time(start.Add(elapsed)))
	return nil
}
