// cocoscan diagnoses coconut leaf photographs.
//
// It grades capture quality, measures color, texture and lesion patterns,
// classifies the disease, and builds a treatment plan and progression
// forecast. Scans can be kept in a local history to track trends per grower.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/api"
	diffpkg "github.com/dmitriimaksimovdevelop/cocoscan/internal/diff"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/orchestrator"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/output"
)

var (
	version = "0.1.0"
)

// globalFlags are shared by every command that builds an engine.
type globalFlags struct {
	configPath    string
	profile       string
	dbPath        string
	archiveDir    string
	archiveFormat string
	catalogPath   string
	trainedModel  string
	seed          uint64
	quiet         bool
	verbose       bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "cocoscan",
		Short: "Coconut leaf disease diagnosis",
		Long: `cocoscan: single Go binary for coconut leaf health analysis.

Grades a leaf photograph, detects yellowing, wilt, rot and spot patterns,
flags nutrient deficiencies, and classifies the disease against a catalog.
Every diagnosis carries a treatment plan and a progression forecast.

Backends: simulated (default, seeded) or trained (linear weights file).`,
		Version:      version,
		SilenceUsage: true,
	}
	rootCmd.SetOut(stdout)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "YAML config file")
	pf.StringVarP(&g.profile, "profile", "p", "", "Analysis profile: quick, standard, detailed")
	pf.StringVar(&g.dbPath, "db", "", "Scan history database path")
	pf.StringVar(&g.archiveDir, "archive-dir", "", "Directory for archived diagnoses")
	pf.StringVar(&g.archiveFormat, "archive-format", "", "Archive format: json, yaml")
	pf.StringVar(&g.catalogPath, "catalog", "", "Disease catalog YAML (default: built-in)")
	pf.StringVar(&g.trainedModel, "trained-model", "", "Linear model weights; selects the trained backend")
	pf.Uint64Var(&g.seed, "seed", 0, "Seed for the simulated backend (0 = clock)")
	pf.BoolVarP(&g.quiet, "quiet", "q", false, "Suppress progress output")
	pf.BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(
		newDiagnoseCmd(g),
		newHistoryCmd(g),
		newStatsCmd(g),
		newDiseasesCmd(g),
		newServeCmd(g),
		newMCPCmd(g),
		newCompareCmd(),
	)
	return rootCmd
}

// buildConfig layers the config file, then explicit flags, over the defaults.
func (g *globalFlags) buildConfig() (orchestrator.Config, error) {
	cfg := orchestrator.DefaultConfig()
	if g.configPath != "" {
		loaded, err := orchestrator.LoadConfig(g.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	if g.profile != "" {
		cfg.Profile = g.profile
	}
	if g.dbPath != "" {
		cfg.DatabasePath = g.dbPath
	}
	if g.archiveDir != "" {
		cfg.ArchiveDir = g.archiveDir
	}
	if g.archiveFormat != "" {
		cfg.ArchiveFormat = g.archiveFormat
	}
	if g.catalogPath != "" {
		cfg.CatalogPath = g.catalogPath
	}
	if g.trainedModel != "" {
		cfg.Classifier.Backend = model.ModelTrained
		cfg.Classifier.ModelPath = g.trainedModel
	}
	if g.seed != 0 {
		cfg.Classifier.Seed = g.seed
	}
	cfg.Quiet = g.quiet
	cfg.Verbose = g.verbose
	return cfg, cfg.Validate()
}

func (g *globalFlags) logger(json bool) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	} else if g.quiet {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// openEngine builds an engine. With history the sqlite store and archive
// directory are opened too; the caller must Close the engine.
func (g *globalFlags) openEngine(history, jsonLogs bool) (*orchestrator.Engine, error) {
	cfg, err := g.buildConfig()
	if err != nil {
		return nil, err
	}
	opts := []orchestrator.Option{
		orchestrator.WithLogger(g.logger(jsonLogs)),
		orchestrator.WithProgress(output.NewVerboseProgress(!cfg.Quiet, cfg.Verbose)),
	}
	if history {
		return orchestrator.Open(cfg, opts...)
	}
	return orchestrator.New(cfg, opts...)
}

// --- diagnose command ---

func newDiagnoseCmd(g *globalFlags) *cobra.Command {
	var (
		userID   int64
		notes    string
		location string
		weather  string
		format   string
		outPath  string
		aiPrompt bool
	)

	cmd := &cobra.Command{
		Use:   "diagnose <image>",
		Short: "Diagnose a leaf photograph",
		Long:  "Run the full pipeline on one image. With --user the scan is saved to history and archived.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "json" && format != "yaml" && format != "text" {
				return fmt.Errorf("unknown format %q (valid: json, yaml, text)", format)
			}
			persist := cmd.Flags().Changed("user")
			e, err := g.openEngine(persist, false)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			var (
				r       *model.DiagnosisResult
				scanID  int64
				saveErr error
			)
			if persist {
				r, scanID, saveErr = e.DiagnoseAndPersist(ctx, args[0], userID, orchestrator.ScanMeta{
					Notes:    notes,
					Location: location,
					Weather:  weather,
				})
			} else {
				r = e.Diagnose(ctx, args[0])
			}

			if err := writeDiagnosis(cmd.OutOrStdout(), r, format, outPath, aiPrompt); err != nil {
				return err
			}
			if saveErr != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: scan not saved: %v\n", saveErr)
			} else if persist {
				fmt.Fprintf(cmd.ErrOrStderr(), "saved scan %d\n", scanID)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.Int64VarP(&userID, "user", "u", 0, "Save the scan to this user's history")
	f.StringVar(&notes, "notes", "", "Notes stored with the scan")
	f.StringVar(&location, "location", "", "Location stored with the scan")
	f.StringVar(&weather, "weather", "", "Weather conditions stored with the scan")
	f.StringVarP(&format, "format", "f", "json", "Output format: json, yaml, text")
	f.StringVarP(&outPath, "output", "o", "-", "Output file path (- for stdout)")
	f.BoolVar(&aiPrompt, "ai-prompt", false, "Include AI analysis prompt in output")
	return cmd
}

// diagnosisOutput is the document written by diagnose.
type diagnosisOutput struct {
	model.DiagnosisResult `yaml:",inline"`
	HealthScore           int               `json:"health_score" yaml:"health_score"`
	AIContext             *output.AIContext `json:"ai_context,omitempty" yaml:"ai_context,omitempty"`
}

func writeDiagnosis(stdout io.Writer, r *model.DiagnosisResult, format, path string, aiPrompt bool) error {
	w := stdout
	if path != "" && path != "-" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if format == "text" {
		return output.WriteSummary(w, r)
	}

	doc := diagnosisOutput{DiagnosisResult: *r, HealthScore: model.ComputeHealthScore(r)}
	if aiPrompt {
		doc.AIContext = output.GenerateAIPrompt(r)
	}
	return output.Encode(w, doc, format)
}

// --- history commands ---

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		userID int64
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List a user's saved scans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.openEngine(true, false)
			if err != nil {
				return err
			}
			defer e.Close()

			scans, err := e.Repository().UserScans(cmd.Context(), userID, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(scans) == 0 {
				fmt.Fprintf(w, "No scans for user %d\n", userID)
				return nil
			}
			for _, s := range scans {
				fmt.Fprintf(w, "%6d  %s  %-18s %5.1f%%  %s\n",
					s.ID, s.ScannedAt.Format("2006-01-02 15:04"), s.HealthStatus, s.Confidence*100, s.ImagePath)
			}
			return nil
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "User ID")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum scans to list")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func newStatsCmd(g *globalFlags) *cobra.Command {
	var userID int64
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show scan statistics for one user or everyone",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.openEngine(true, false)
			if err != nil {
				return err
			}
			defer e.Close()

			var uid *int64
			if cmd.Flags().Changed("user") {
				uid = &userID
			}
			stats, err := e.Repository().Statistics(cmd.Context(), uid)
			if err != nil {
				return err
			}
			return output.Encode(cmd.OutOrStdout(), stats, "json")
		},
	}
	cmd.Flags().Int64VarP(&userID, "user", "u", 0, "Restrict to one user")
	return cmd
}

func newDiseasesCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "diseases",
		Short: "List the disease catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cat := model.DefaultCatalog()
			if g.catalogPath != "" {
				loaded, err := model.LoadCatalog(g.catalogPath)
				if err != nil {
					return err
				}
				cat = loaded
			}
			w := cmd.OutOrStdout()
			for _, d := range cat.Diseases() {
				fmt.Fprintf(w, "%-20s %-24s %s\n", d.ID, d.Name, d.Tier)
			}
			return nil
		},
	}
}

// --- serve command ---

func newServeCmd(g *globalFlags) *cobra.Command {
	var (
		addr      string
		uploadDir string
		perSecond float64
		burst     int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the diagnosis API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := g.openEngine(true, true)
			if err != nil {
				return err
			}
			defer e.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			opts := api.DefaultOptions()
			opts.UploadDir = uploadDir
			opts.DiagnoseRate = rate.Limit(perSecond)
			opts.DiagnoseBurst = burst
			return api.New(e, g.logger(true), opts).Run(ctx, addr)
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", ":8080", "Listen address")
	f.StringVar(&uploadDir, "upload-dir", "", "Keep uploaded images in this directory")
	f.Float64Var(&perSecond, "rate", 2, "Diagnoses per second across all clients")
	f.IntVar(&burst, "burst", 4, "Diagnosis burst size")
	return cmd
}

// --- compare command ---

func newCompareCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "compare <baseline> <current>",
		Short: "Compare two archived diagnoses",
		Long:  "Show health, stage, color, pattern and quality changes between two archived results (JSON or YAML).",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompare(cmd.OutOrStdout(), args[0], args[1], outPath)
		},
	}
	cmd.Flags().StringVarP(&outPath, "output", "o", "-", "Write the JSON diff here instead of printing it")
	return cmd
}

func runCompare(stdout io.Writer, baselinePath, currentPath, outputPath string) error {
	baseline, err := diffpkg.LoadReport(baselinePath)
	if err != nil {
		return fmt.Errorf("load baseline: %w", err)
	}
	current, err := diffpkg.LoadReport(currentPath)
	if err != nil {
		return fmt.Errorf("load current: %w", err)
	}

	result := diffpkg.Compare(baseline, current)
	if outputPath == "-" {
		_, err := io.WriteString(stdout, diffpkg.FormatDiff(result))
		return err
	}
	return output.WriteJSON(result, outputPath)
}
