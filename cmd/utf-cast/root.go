package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/stackvity/utf-cast/internal/cli"
	"github.com/stackvity/utf-cast/internal/cli/config"
	"github.com/stackvity/utf-cast/pkg/converter"
	"github.com/stackvity/utf-cast/pkg/converter/encoding"
)

var (
	// These are set during build time using -ldflags
	version = "dev"
	commit  = "none"
	date    = "unknown"

	cfgFile     string
	profileName string
	verbose     bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "utf-cast [directory]",
		Short: "Detects and converts the text encoding of files in a directory.",
		Long: `utf-cast scans a directory for files matching a pattern, detects each
file's encoding from its byte signature, and rewrites the files in a target
encoding, optionally with a UTF-8 byte-order mark.

Detected encodings: UTF-8 (BOM), Unicode (UTF-16 BE), UTF-32 (BE), UTF-7,
and Default/ANSI for everything without a recognized signature.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		RunE:          runRoot,
	}
	cmd.SetVersionTemplate(`{{.Use}} version {{.Version}}` + "\n")

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Configuration file path (default is search ., $HOME/.config/utf-cast/, $HOME/.utf-cast/)")
	cmd.PersistentFlags().StringVar(&profileName, "profile", "", "Name of configuration profile to use")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging output (disables TUI)")

	cmd.Flags().StringP("directory", "d", "", "Directory to scan (may also be given as the first argument)")
	cmd.Flags().StringP("pattern", "p", converter.DefaultFilePattern, `File name pattern; "*.*" matches every file`)
	cmd.Flags().Bool("recursive", converter.DefaultRecursive, "Descend into subdirectories")
	cmd.Flags().StringSlice("exclude", nil, "Gitignore-style patterns to skip (repeatable)")

	cmd.Flags().StringP("target-encoding", "t", converter.DefaultTargetEncoding,
		fmt.Sprintf("Target encoding (%s, %s, %s, %s)", encoding.LabelUTF8, encoding.LabelUnicode, encoding.LabelUTF32, encoding.LabelDefault))
	cmd.Flags().String("default-encoding", converter.DefaultDefaultEncoding, "Code page assumed for files without a signature")
	cmd.Flags().Bool("write-bom", converter.DefaultWriteBOM, "Write a byte-order mark when converting")
	cmd.Flags().Bool("detect-only", converter.DefaultDetectOnly, "Only detect encodings, never rewrite files")
	cmd.Flags().Bool("atomic-write", converter.DefaultAtomicWrite, "Write through a temp file and rename, guarded by a lock file")

	cmd.Flags().String("output-format", string(converter.DefaultOutputFormat), `Final report format ("text", "json", "yaml")`)
	cmd.Flags().Bool("no-tui", false, "Disable interactive Terminal UI even if in a TTY")
	return cmd
}

func runRoot(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if len(args) == 1 {
		if cmd.Flags().Changed("directory") {
			return fmt.Errorf("directory given both as argument and --directory")
		}
		if err := cmd.Flags().Set("directory", args[0]); err != nil {
			return err
		}
	}

	settings, logger, err := config.LoadAndValidate(cfgFile, profileName, version, verbose, cmd.Flags())
	if err != nil {
		return err
	}
	return cli.Run(ctx, settings, logger, cmd.OutOrStdout())
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
