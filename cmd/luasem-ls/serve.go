package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luasem/luasem/internal/parser"
	"github.com/luasem/luasem/internal/pipeline"
	"github.com/luasem/luasem/internal/protocol"
	"github.com/luasem/luasem/internal/protocol/inspect"
	"github.com/luasem/luasem/internal/types"
	"github.com/luasem/luasem/internal/workspace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editor-protocol server over stdio",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("root", "", "workspace root (default: current directory)")
	serveCmd.Flags().String("parser", "treesitter", "registered surface-parser name to analyze with")
	serveCmd.Flags().String("inspect-addr", "", "if set, also serve a read-only websocket inspect feed at this address (e.g. 127.0.0.1:7717)")
	serveCmd.Flags().String("db", "", "path to a local sqlite warm-cache database (disabled unless set, or overridden by EMMYLUALS_REMOTE_DB)")
	serveCmd.Flags().Bool("db-debug", false, "log every SQL statement the warm-cache store issues")
}

func runServe(cmd *cobra.Command, _ []string) error {
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

	// mgr and pl are referenced inside the AnalyzeFunc below before
	// either is constructed: Manager.New needs the function first, and
	// Pipeline needs Manager's own *index.Index, so neither can come
	// first on its own. Grounded on internal/protocol/server_test.go's
	// newTestServer, which ties the same two packages together via the
	// same forward-reference idiom.
	var mgr *workspace.Manager
	var pl *pipeline.Pipeline
	mgr, warnings := workspace.New(root, p, func(_ context.Context, file types.FileID, tree *parser.Tree) {
		pl.Analyze(tree)
		if path, ok := mgr.Path(file); ok {
			class := moduleClass(mgr, file)
			recordSnapshot(st, path, tree.Text, mgr.Index().Generation(), class, func(err error) {
				warnf("warm-cache: failed to persist snapshot for %s: %v", path, err)
			})
		}
	})
	for _, w := range warnings {
		warnf("%s", w)
	}
	pl = pipeline.New(mgr.Index(), mgr.Config())

	logLevel, _ := cmd.Root().PersistentFlags().GetString("log-level")
	server := protocol.NewServer(os.Stdin, os.Stdout, mgr, pl)
	server.SetLogLevel(protocol.LogLevel(logLevel))
	mgr.SetDebugLogger(func(msg string) { server.LogDebug(msg) })

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	inspectAddr, _ := cmd.Flags().GetString("inspect-addr")
	if inspectAddr != "" {
		hub := inspect.NewHub()
		server.SetInspectHub(hub)
		go func() {
			if err := inspect.Serve(ctx, inspectAddr, hub); err != nil {
				warnf("inspect feed stopped: %v", err)
			}
		}()
	}

	if err := mgr.FullIndex(ctx); err != nil {
		return err
	}

	return server.Run(ctx)
}
