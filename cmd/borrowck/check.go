package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"borrowck/internal/diag"
	"borrowck/internal/diagfmt"
	"borrowck/internal/driver"
	"borrowck/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] [unit-file|directory]",
	Short: "Verify ownership and borrowing rules in unit files",
	Long: `Run the ownership and borrow verifier over a single unit file or every
unit file under a directory. Without a path argument the target is taken
from [check].units in borrowck.toml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

// init registers CLI flags for the check command used by runCheck.
func init() {
	checkCmd.Flags().String("format", "pretty", "output format (pretty|json|sarif)")
	checkCmd.Flags().Int("jobs", 0, "max parallel workers for directory processing (0=auto)")
	checkCmd.Flags().Bool("precise", false, "retire borrows at their last use instead of scope exit")
	checkCmd.Flags().Int("max-statements", 0, "reject units above this statement count (0=unlimited)")
	checkCmd.Flags().Bool("cache", false, "reuse cached results for unchanged units")
	checkCmd.Flags().Bool("with-notes", false, "include diagnostic notes in output")
	checkCmd.Flags().Bool("no-warnings", false, "ignore warnings in diagnostics")
	checkCmd.Flags().Bool("warnings-as-errors", false, "treat warnings as errors")
}

// runCheck executes the "check" command: it resolves the target path (flag
// argument or manifest), analyzes every unit, formats the merged diagnostics
// in the chosen output format and exits non-zero when any unit is rejected.
func runCheck(cmd *cobra.Command, args []string) error {
	arg := ""
	if len(args) > 0 {
		arg = args[0]
	}

	// Получаем флаги
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	precise, err := cmd.Flags().GetBool("precise")
	if err != nil {
		return fmt.Errorf("failed to get precise flag: %w", err)
	}
	maxStatements, err := cmd.Flags().GetInt("max-statements")
	if err != nil {
		return fmt.Errorf("failed to get max-statements flag: %w", err)
	}
	useCache, err := cmd.Flags().GetBool("cache")
	if err != nil {
		return fmt.Errorf("failed to get cache flag: %w", err)
	}
	withNotes, err := cmd.Flags().GetBool("with-notes")
	if err != nil {
		return fmt.Errorf("failed to get with-notes flag: %w", err)
	}
	noWarnings, err := cmd.Flags().GetBool("no-warnings")
	if err != nil {
		return fmt.Errorf("failed to get no-warnings flag: %w", err)
	}
	warningsAsErrors, err := cmd.Flags().GetBool("warnings-as-errors")
	if err != nil {
		return fmt.Errorf("failed to get warnings-as-errors flag: %w", err)
	}
	if noWarnings && warningsAsErrors {
		return fmt.Errorf("no-warnings and warnings-as-errors flags cannot be used together")
	}

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return fmt.Errorf("failed to get timings flag: %w", err)
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return fmt.Errorf("failed to get quiet flag: %w", err)
	}

	// Манифест задаёт дефолты; явные флаги его перекрывают.
	manifest, hasManifest, err := loadProjectManifest(".")
	if err != nil {
		return err
	}
	if hasManifest {
		mc := manifest.Config.Check
		if !cmd.Flags().Changed("precise") && mc.Precise {
			precise = true
		}
		if !cmd.Flags().Changed("max-statements") && mc.MaxStatements > 0 {
			maxStatements = mc.MaxStatements
		}
		if !cmd.Flags().Changed("jobs") && mc.Jobs > 0 {
			jobs = mc.Jobs
		}
		if !cmd.Flags().Changed("format") && mc.Format != "" {
			format = mc.Format
		}
		if !cmd.Flags().Changed("cache") && mc.Cache {
			useCache = true
		}
		if !cmd.Root().PersistentFlags().Changed("max-diagnostics") && mc.MaxDiagnostics > 0 {
			maxDiagnostics = mc.MaxDiagnostics
		}
	}

	switch format {
	case "pretty", "json", "sarif":
		// supported
	default:
		return fmt.Errorf("unknown format: %s", format)
	}

	target, err := resolveCheckTarget(arg, manifest)
	if err != nil {
		return err
	}
	st, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("failed to stat path: %w", err)
	}

	opts := driver.Options{
		PreciseExtents: precise,
		MaxStatements:  maxStatements,
		MaxDiagnostics: maxDiagnostics,
		Timings:        showTimings,
	}
	if useCache {
		cache, cacheErr := driver.OpenResultCache("borrowck")
		if cacheErr != nil {
			return fmt.Errorf("failed to open result cache: %w", cacheErr)
		}
		opts.Cache = cache
	}

	us, results, err := runAnalysis(cmd, target, st.IsDir(), opts, jobs)
	if err != nil {
		return err
	}

	merged := diag.NewBag(maxDiagnostics)
	exitCode := 0
	for _, r := range results {
		bag := filterDiagnostics(r.Bag, noWarnings, warningsAsErrors)
		merged.Merge(bag)
		if !r.Accepted() || bag.HasErrors() {
			exitCode = 1
		}
	}
	merged.Sort()

	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	useColor := colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout))

	switch format {
	case "pretty":
		diagfmt.Pretty(os.Stdout, merged, us, diagfmt.PrettyOpts{
			Color:     useColor,
			ShowNotes: withNotes,
		})
	case "json":
		if err := diagfmt.JSON(os.Stdout, merged, us, diagfmt.JSONOpts{
			Max:          maxDiagnostics,
			IncludeNotes: withNotes,
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	case "sarif":
		if err := diagfmt.Sarif(os.Stdout, merged, us, diagfmt.SarifRunMeta{
			ToolName:    "borrowck",
			ToolVersion: "0.1.0",
		}); err != nil {
			return fmt.Errorf("failed to format diagnostics: %w", err)
		}
	}

	if showTimings {
		printTimings(results, us)
	}
	if !quiet && format == "pretty" {
		printSummary(results, merged)
	}

	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}

func runAnalysis(cmd *cobra.Command, target string, isDir bool, opts driver.Options, jobs int) (*source.UnitSet, []driver.UnitResult, error) {
	if isDir {
		return driver.AnalyzeDir(cmd.Context(), target, opts, jobs)
	}
	if !driver.IsUnitFile(target) {
		return nil, nil, fmt.Errorf("%s: not a unit file (expected %s or %s)", target, driver.ExtJSON, driver.ExtMsgpack)
	}
	return driver.AnalyzeFiles(cmd.Context(), []string{target}, opts, jobs)
}

// filterDiagnostics применяет no-warnings / warnings-as-errors к мешку юнита.
func filterDiagnostics(bag *diag.Bag, noWarnings, warningsAsErrors bool) *diag.Bag {
	if !noWarnings && !warningsAsErrors {
		return bag
	}
	out := diag.NewBag(bag.Len())
	for _, d := range bag.Items() {
		if d.Severity == diag.SevWarning {
			if noWarnings {
				continue
			}
			if warningsAsErrors {
				d.Severity = diag.SevError
			}
		}
		out.Add(d)
	}
	return out
}

func printTimings(results []driver.UnitResult, us *source.UnitSet) {
	for _, r := range results {
		if r.Timing == nil {
			continue
		}
		fmt.Fprintf(os.Stderr, "%s:\n", us.Name(r.UnitID))
		for _, p := range r.Timing.Phases {
			fmt.Fprintf(os.Stderr, "  %-10s %7.2f ms", p.Name, p.DurationMS)
			if p.Note != "" {
				fmt.Fprintf(os.Stderr, "  // %s", p.Note)
			}
			fmt.Fprintln(os.Stderr)
		}
	}
}

func printSummary(results []driver.UnitResult, merged *diag.Bag) {
	accepted, rejected, cached := 0, 0, 0
	for _, r := range results {
		if r.Accepted() {
			accepted++
		} else {
			rejected++
		}
		if r.Cached {
			cached++
		}
	}
	fmt.Fprintf(os.Stderr, "checked %d unit(s): %d accepted, %d rejected", len(results), accepted, rejected)
	if cached > 0 {
		fmt.Fprintf(os.Stderr, " (%d cached)", cached)
	}
	fmt.Fprintf(os.Stderr, ", %d diagnostic(s)\n", merged.Len())
}
