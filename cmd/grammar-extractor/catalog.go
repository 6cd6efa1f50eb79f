// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/grammar-extractor/internal/catalog"
	"github.com/pdiddy/grammar-extractor/internal/metadata"
	"github.com/pdiddy/grammar-extractor/pkg/types"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the grammar catalog (add, list, show, rules, remove, export)",
	Long: `Catalog keeps a local SQLite index of grammars with their size statistics
and per-rule metadata. Grammars are keyed by a hash of their readable form,
so adding an unchanged grammar again is a no-op.`,
}

// --- add subcommand ---

var catalogAddCmd = &cobra.Command{
	Use:   "add <grammar...>",
	Short: "Add .rp or readable grammars to the catalog",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCatalogAdd,
}

func runCatalogAdd(cmd *cobra.Command, args []string) error {
	name, _ := cmd.Flags().GetString("name")
	if name != "" && len(args) > 1 {
		return fmt.Errorf("--name applies to a single grammar")
	}

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	failed := 0
	for _, path := range args {
		entry, added, err := store.Add(cmd.Context(), name, path)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(os.Stdout, "error:   %s (%v)\n", path, err)
		case added:
			fmt.Fprintf(os.Stdout, "added:   %s as %s [%s]\n", path, entry.Name, catalog.ShortID(entry.ID))
		default:
			fmt.Fprintf(os.Stdout, "skipped: %s (unchanged, %s)\n", path, entry.Name)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d grammar(s) failed to catalog", failed)
	}
	return nil
}

// --- list subcommand ---

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged grammars",
	Args:  cobra.NoArgs,
	RunE:  runCatalogList,
}

func runCatalogList(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.List(cmd.Context())
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSON(entries)
	}
	if len(entries) == 0 {
		fmt.Println("Catalog is empty.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-24s  %10s  %8s  %8s  %s\n",
		"ID", "Name", "Text", "Rules", "Seq", "Ratio")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, e := range entries {
		name := e.Name
		if len(name) > 24 {
			name = name[:21] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-12s  %-24s  %10d  %8d  %8d  %.4f\n",
			catalog.ShortID(e.ID), name, e.Stats.TextLen, e.Stats.RuleCount, e.Stats.SeqLen, e.Stats.Ratio)
	}
	fmt.Fprintf(os.Stdout, "\n%d grammars\n", len(entries))
	return nil
}

// --- show subcommand ---

var catalogShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Show one cataloged grammar",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogShow,
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Get(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return writeJSON(e)
	}
	fmt.Printf("ID:              %s\n", e.ID)
	fmt.Printf("Name:            %s\n", e.Name)
	fmt.Printf("Source:          %s\n", e.SourcePath)
	fmt.Printf("Added:           %s\n", e.AddedAt.Format("2006-01-02 15:04:05"))
	fmt.Printf("Text length:     %d\n", e.Stats.TextLen)
	fmt.Printf("Rules:           %d\n", e.Stats.RuleCount)
	fmt.Printf("Sequence length: %d\n", e.Stats.SeqLen)
	fmt.Printf("RHS size:        %d (run-length %d)\n", e.Stats.RHSSize, e.Stats.RLESize)
	fmt.Printf("Height:          %d\n", e.Stats.Height)
	fmt.Printf("Ratio:           %.4f\n", e.Stats.Ratio)
	return nil
}

// --- rules subcommand ---

var catalogRulesCmd = &cobra.Command{
	Use:   "rules <id|name>",
	Short: "Print stored rule metadata of a cataloged grammar",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogRules,
}

func runCatalogRules(cmd *cobra.Command, args []string) error {
	minVocc, _ := cmd.Flags().GetInt64("min-vocc")
	format, _ := cmd.Flags().GetString("format")

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	rules, err := store.Rules(cmd.Context(), args[0], minVocc)
	if err != nil {
		return err
	}

	switch format {
	case "table", "":
		return writeRuleTable(rules)
	case "yaml":
		return metadata.WriteYAML(os.Stdout, rules)
	case "json":
		return metadata.WriteJSON(os.Stdout, rules)
	default:
		return fmt.Errorf("unsupported format %q: use table, yaml, or json", format)
	}
}

func writeRuleTable(rules []types.RuleRecord) error {
	if len(rules) == 0 {
		fmt.Println("No rules match.")
		return nil
	}
	for _, r := range rules {
		fmt.Printf("R%d: vocc=%d, length=%d, lambda=%s, rho=%s, singleBlock=%t\n",
			r.RuleID, r.Vocc, r.Length, runString(r.Lambda, r.LambdaRun), runString(r.Rho, r.RhoRun), r.SingleBlock)
	}
	return nil
}

func runString(sym string, run int64) string {
	if sym == "None" {
		return sym
	}
	return fmt.Sprintf("%s^%d", sym, run)
}

// --- remove subcommand ---

var catalogRemoveCmd = &cobra.Command{
	Use:   "remove <id|name>",
	Short: "Remove a grammar and its rules from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE:  runCatalogRemove,
}

func runCatalogRemove(cmd *cobra.Command, args []string) error {
	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	e, err := store.Remove(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Removed %s [%s]\n", e.Name, catalog.ShortID(e.ID))
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to YAML or JSON",
	Long: `Export writes every cataloged grammar with its rule metadata to
export.yaml or export.json in the catalog directory.`,
	Args: cobra.NoArgs,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openCatalog()
	if err != nil {
		return err
	}
	defer store.Close()

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context())
	case "json":
		path, err = store.ExportJSON(cmd.Context())
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openCatalog() (*catalog.Store, error) {
	return catalog.NewStore(loadConfig().Catalog)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	catalogCmd.PersistentFlags().String("catalog-dir", "", "catalog directory (default from config, else ./catalog)")
	_ = viper.BindPFlag("catalog.dir", catalogCmd.PersistentFlags().Lookup("catalog-dir"))

	catalogAddCmd.Flags().String("name", "", "catalog name (default: file name without extension)")
	catalogListCmd.Flags().Bool("json", false, "output as JSON")
	catalogShowCmd.Flags().Bool("json", false, "output as JSON")
	catalogRulesCmd.Flags().Int64("min-vocc", 0, "only rules occurring at least this often")
	catalogRulesCmd.Flags().String("format", "table", "output format: table, yaml, or json")
	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	catalogCmd.AddCommand(catalogAddCmd)
	catalogCmd.AddCommand(catalogListCmd)
	catalogCmd.AddCommand(catalogShowCmd)
	catalogCmd.AddCommand(catalogRulesCmd)
	catalogCmd.AddCommand(catalogRemoveCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
