package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	a := &app{}
	root := newRootCmd(a)
	err := root.ExecuteContext(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := a.close(ctx); cerr != nil {
		fmt.Fprintf(os.Stderr, "shutdown: %v\n", cerr)
	}
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "socialgraph",
		Short:        "Social network graph engine",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.Context())
		},
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&a.flags.configPath, "config", "", "Config file path (default: ./socialgraph.yaml)")
	pf.StringVar(&a.flags.backend, "backend", "", "Storage backend: jsonfile, badger or neo4j")
	pf.StringVar(&a.flags.dataPath, "data", "", "JSON file or badger directory")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	pf.BoolVar(&a.flags.jsonOutput, "json", false, "Print results as JSON")

	rootCmd.AddCommand(
		newServeCmd(a),
		newPersonCmd(a),
		newConnectCmd(a),
		newDisconnectCmd(a),
		newConnectionsCmd(a),
		newEgoCmd(a),
		newRecommendCmd(a),
		newStatsCmd(a),
		newCentralityCmd(a),
		newCommunitiesCmd(a),
		newExportCmd(a),
		newImportCmd(a),
	)
	return rootCmd
}
