// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the grammar-extractor CLI. Each
// operation on grammar-compressed text is a subcommand: compress, encode,
// decode, decompress, extract, metadata, recompress, stats, roundtrip,
// generate, and catalog.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/grammar-extractor/internal/fsutil"
	"github.com/pdiddy/grammar-extractor/internal/grammar"
	"github.com/pdiddy/grammar-extractor/internal/log"
	"github.com/pdiddy/grammar-extractor/pkg/types"
)

// version is set at build time via ldflags.
var version = "1.0-local-SNAPSHOT"

// rootCmd is the base command for the grammar-extractor CLI.
var rootCmd = &cobra.Command{
	Use:   "grammar-extractor",
	Short: "Work with grammar-compressed text",
	Long: `grammar-extractor compresses text into straight-line grammars with RePair,
converts between the binary .rp container and the readable grammar format,
extracts excerpts without decompressing, computes per-rule metadata, and
recompresses grammars in place.

Settings come from grammar-extractor.yaml, GRAMMAR_EXTRACTOR_* environment
variables, and flags, in increasing order of precedence.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		logger, err := log.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return err
		}
		cmd.SetContext(log.WithContext(cmd.Context(), logger))
		if used := viper.ConfigFileUsed(); used != "" {
			logger.Debug().Str("file", used).Msg("using config file")
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "config file (default: ./grammar-extractor.yaml or ~/.config/grammar-extractor/grammar-extractor.yaml)")
	flags.String("log-level", "info", "log level: trace, debug, info, warn, error")
	flags.String("log-format", string(types.LogConsole), "log format: console or json")
	flags.String("work-dir", "", "directory for output files (default: current directory)")
	flags.Bool("progress", true, "show progress bars")

	_ = viper.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = viper.BindPFlag("log.format", flags.Lookup("log-format"))
	_ = viper.BindPFlag("work_dir", flags.Lookup("work-dir"))
	_ = viper.BindPFlag("progress", flags.Lookup("progress"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("grammar-extractor")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "grammar-extractor"))
		}
	}

	// GRAMMAR_EXTRACTOR_ROUNDTRIP_CONCURRENCY sets roundtrip.concurrency.
	viper.SetEnvPrefix("GRAMMAR_EXTRACTOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", string(types.LogConsole))
	viper.SetDefault("catalog.dir", "catalog")
	viper.SetDefault("roundtrip.concurrency", 4)
	viper.SetDefault("progress", true)

	if err := viper.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && cfgFile != "" {
			fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
		}
	}
}

// loadConfig assembles the typed configuration from viper.
func loadConfig() types.Config {
	rc := types.RecompressConfig{
		MaxRounds: viper.GetInt("recompress.max_rounds"),
	}
	workDir := viper.GetString("work_dir")
	roundtripDir := viper.GetString("roundtrip.work_dir")
	if roundtripDir == "" {
		roundtripDir = workDir
	}
	return types.Config{
		Log: types.LogConfig{
			Level:  viper.GetString("log.level"),
			Format: types.LogFormat(viper.GetString("log.format")),
		},
		WorkDir:    workDir,
		Recompress: rc,
		Roundtrip: types.RoundtripConfig{
			WorkDir:         roundtripDir,
			Concurrency:     viper.GetInt("roundtrip.concurrency"),
			ExternalEncoder: viper.GetString("roundtrip.external_encoder"),
			ExternalDecoder: viper.GetString("roundtrip.external_decoder"),
			Timeout:         viper.GetDuration("roundtrip.timeout"),
			Recompress:      rc,
		},
		Catalog: types.CatalogConfig{
			Dir: viper.GetString("catalog.dir"),
		},
		Progress: viper.GetBool("progress"),
	}
}

// outputPath returns explicit when set, otherwise name inside the work
// directory.
func outputPath(explicit, name string) string {
	if explicit != "" {
		return explicit
	}
	if dir := viper.GetString("work_dir"); dir != "" {
		return filepath.Join(dir, name)
	}
	return name
}

// optionalArg returns args[i], or "" when it was not given.
func optionalArg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

// writeText atomically writes the text g derives to path.
func writeText(path string, g *grammar.Grammar) (int64, error) {
	var n int64
	err := fsutil.WriteAtomic(path, func(w io.Writer) error {
		var err error
		n, err = grammar.DecompressTo(w, g)
		return err
	})
	return n, err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
