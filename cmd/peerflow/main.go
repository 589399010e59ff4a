// Package main provides the peerflow CLI entry point.
package main

import (
	"fmt"
	"os"

	"github.com/peerflow/peerflow/internal/blind"
	"github.com/peerflow/peerflow/internal/config"
	"github.com/peerflow/peerflow/internal/engine"
	"github.com/peerflow/peerflow/internal/identity"
	"github.com/peerflow/peerflow/internal/notify"
	"github.com/peerflow/peerflow/internal/storage"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

// callerID and callerRole identify the acting user, as asserted by the
// external identity provider. The CLI trusts them as given.
var (
	callerID   string
	callerRole string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Print the error since we have SilenceErrors: true
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "peerflow",
	Short: "Peer-review workflow engine CLI",
	Long: `peerflow manages the full lifecycle of academic paper submissions.

Core features:
  - Paper lifecycle: draft, submit, review, decide, publish
  - Reviewer matching and race-safe assignment
  - Structured reviews with five rating categories and recommendations
  - Citation deduplication, linking, h-index, and quality scores
  - BibTeX export of linked citations

Data is stored in a local SQLite database under .peerflow/.
All commands output JSON by default for automation; use --human otherwise.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().StringVar(&callerID, "as", "", "Acting user id")
	rootCmd.PersistentFlags().StringVar(&callerRole, "role", "researcher", "Acting user role (researcher|reviewer|editor|admin)")
	rootCmd.Version = Version
}

// caller builds the authenticated caller from the persistent flags.
func caller() identity.Caller {
	return identity.Caller{ID: callerID, Role: identity.Role(callerRole)}
}

// getStartingDirectory returns the directory to start searching for a
// repository. Checks global config repo_path first, then the working
// directory.
func getStartingDirectory() (string, int) {
	if root := config.GetRepoPath(); root != "" {
		return root, 0
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", outputError(ExitError, "getting current directory: %v", err)
	}
	return cwd, 0
}

// mustFindRepository finds and validates the repository, exits on error.
// Returns the repository root path.
func mustFindRepository() string {
	start, exitCode := getStartingDirectory()
	if exitCode != 0 {
		os.Exit(exitCode)
	}

	repoRoot, err := config.FindRepository(start)
	if err != nil {
		fmt.Fprintln(os.Stderr, config.HelpfulConfigMessage())
		os.Exit(ExitConfigError)
	}
	return repoRoot
}

// mustOpenDatabase opens the SQLite database, exits on error.
// The caller is responsible for calling Close() on the returned DB.
func mustOpenDatabase(repoRoot string) *storage.DB {
	db, err := storage.OpenDB(config.DBPath(repoRoot))
	if err != nil {
		exitWithError(ExitError, "opening database: %v", err)
	}
	return db
}

// mustLoadConfig loads repository configuration, exits on error.
func mustLoadConfig(repoRoot string) *config.Config {
	cfg, err := config.Load(repoRoot)
	if err != nil {
		exitWithError(ExitConfigError, "loading config: %v", err)
	}
	return cfg
}

// mustOpenEngine wires the engine over the repository's database with the
// configured notifier and blind-review pseudonymizer.
func mustOpenEngine(repoRoot string) (*engine.Engine, *storage.DB) {
	cfg := mustLoadConfig(repoRoot)
	db := mustOpenDatabase(repoRoot)

	opts := []engine.Option{}
	if key, err := cfg.BlindKeyBytes(); err == nil {
		if pseudo, err := blind.New(key); err == nil {
			opts = append(opts, engine.WithPseudonymizer(pseudo))
		}
	}
	if url := config.GetNotifyWebhook(cfg); url != "" {
		var whOpts []notify.WebhookOption
		if token := config.GetWebhookToken(); token != "" {
			whOpts = append(whOpts, notify.WithToken(token))
		}
		opts = append(opts, engine.WithNotifier(notify.NewWebhook(url, whOpts...)))
	}
	return engine.New(db, opts...), db
}
