// Package main provides the CLI entry point for the dredd mutant-killing
// driver: the spec.md §6 command surface, wired against a real csmith
// checkout, a mutated compiler, and a mutant-tracking compiler.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sivchari/dredd/internal/config"
	"github.com/sivchari/dredd/internal/consolidate"
	"github.com/sivchari/dredd/internal/ddlerrors"
	"github.com/sivchari/dredd/internal/driver"
	"github.com/sivchari/dredd/internal/generator"
	"github.com/sivchari/dredd/internal/history"
	"github.com/sivchari/dredd/internal/kill"
	"github.com/sivchari/dredd/internal/logging"
	"github.com/sivchari/dredd/internal/mutationinfo"
	"github.com/sivchari/dredd/internal/mutationtree"
	"github.com/sivchari/dredd/internal/oracle"
	"github.com/sivchari/dredd/internal/reduce"
	"github.com/sivchari/dredd/internal/report"
	"github.com/sivchari/dredd/internal/scheduler"
	"github.com/sivchari/dredd/internal/search"
)

var (
	cfgFile        string
	verbose        bool
	sourcePreparer string
	creducePath    string
)

var rootCmd = &cobra.Command{
	Use:   "dredd",
	Short: "A mutant-killing driver for source-level C/C++ compiler mutations",
	Long: `dredd drives a dredd-mutated compiler against a stream of csmith-generated
programs to find, for every mutation a coverage-tracking compile ever
reaches, at least one program whose behaviour it changes.

It repeatedly:
  - generates and prepares a fresh reference program
  - schedules a pairwise-compatible set of unkilled, covered mutations
  - bisection-searches that set against the mutated compiler
  - consolidates each kill by probing its incompatibility cone and
    reducing any miscompiling input with an external test-case reducer

The run is indefinite; stop it with SIGINT/SIGTERM once satisfied with
coverage, or resume later from its persisted history file.`,
	Args: cobra.ExactArgs(5),
	RunE: runDredd,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("dredd version 0.1.0")
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .dredd.yaml, can also use DREDD_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.Flags().Int("max_consecutive_failed_attempts_per_program", 10, "stop searching a program after this many consecutive attempts land no kill")
	rootCmd.Flags().Int("max_attempts_per_program", 100, "abandon a program after this many total search attempts")
	rootCmd.Flags().Int("num_simultaneous_mutations", 64, "ceiling on the number of mutations drawn into one candidate set")
	rootCmd.Flags().Uint64("seed", 0, "seed for reproducible scheduling (spec.md §5)")
	rootCmd.Flags().String("history_file", "", "path to the run's persisted kill-bookkeeping snapshot")
	rootCmd.Flags().String("format", "text", "progress/summary report format (text, json)")
	rootCmd.Flags().StringVar(&sourcePreparer, "source_preparer", "prepare_csmith_program", "executable that inlines generator headers into a freshly generated program")
	rootCmd.Flags().StringVar(&creducePath, "creduce", "creduce", "executable used to reduce a miscompiling input")

	for _, name := range []string{
		"max_consecutive_failed_attempts_per_program",
		"max_attempts_per_program",
		"num_simultaneous_mutations",
		"seed",
		"history_file",
		"format",
	} {
		_ = viper.BindPFlag(name, rootCmd.Flags().Lookup(name))
	}

	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(versionCmd)
}

// initConfig mirrors the teacher's viper wiring (flag > DREDD_CONFIG_FILE
// env var > default .dredd.yaml), so every option bound to viper above can
// also be set through a DREDD_-prefixed environment variable.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("DREDD_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".dredd")
	}

	viper.SetEnvPrefix("DREDD")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err == nil && verbose {
		fmt.Fprintln(os.Stderr, "using config file:", viper.ConfigFileUsed())
	}
}

// runDredd performs the full start-up wiring of spec.md §6, then runs the
// driver until ctx is cancelled.
func runDredd(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	cfg.MutationInfoFile = args[0]
	cfg.MutationInfoFileForMutantCoverageTracking = args[1]
	cfg.MutatedCompilerExecutable = args[2]
	cfg.MutantTrackingCompilerExecutable = args[3]
	cfg.CsmithRoot = args[4]

	applyFlagOverrides(cmd, cfg)

	if verbose {
		cfg.Verbose = true
	}

	logger := logging.New(&logging.Config{
		Level:  logLevel(cfg.Verbose),
		Format: "text",
		Output: os.Stderr,
	})

	tree, _, err := loadTrees(cfg)
	if err != nil {
		return err
	}

	historyStore, err := history.New(cfg.HistoryFile)
	if err != nil {
		return fmt.Errorf("opening history store: %w", err)
	}

	maps, restored := historyStore.Restore()
	if !restored {
		maps = kill.NewMaps(tree.NumMutations)
	} else {
		logger.Info(cmd.Context(), "resumed from history", "killed", len(maps.Killed), "unkilled", len(maps.Unkilled))
	}

	reporter := report.New(os.Stdout, cfg.Format)

	reducer := reduce.NewCreduceReducer(creducePath)

	renderer, err := reduce.NewTemplateRenderer()
	if err != nil {
		return fmt.Errorf("preparing interestingness-script renderer: %w", err)
	}

	mutantOracle := oracle.New(cfg.MutatedCompilerExecutable, cfg.CsmithRoot)

	consolidator := &consolidate.Consolidator{
		Tree:            tree,
		Maps:            maps,
		Oracle:          mutantOracle,
		Reducer:         reducer,
		Renderer:        renderer,
		MutatedCompiler: cfg.MutatedCompilerExecutable,
		CsmithRoot:      cfg.CsmithRoot,
		WorkingDir:      ".",
		Logger:          logger,
	}

	searchEngine := search.New(mutantOracle, maps, consolidator)

	gen := generator.New(
		generator.CsmithSource{CsmithRoot: cfg.CsmithRoot},
		generator.ExecPreparer{Executable: sourcePreparer},
		cfg.MutatedCompilerExecutable,
		cfg.MutantTrackingCompilerExecutable,
		cfg.CsmithRoot,
	)
	gen.Logger = logger

	sched := scheduler.New(tree, cfg.Seed, cfg.NumSimultaneousMutations)

	d := driver.New(
		tree,
		maps,
		gen,
		sched,
		searchEngine,
		historyStore,
		reporter,
		logger,
		driver.Options{
			MaxConsecutiveFailedAttemptsPerProgram: cfg.MaxConsecutiveFailedAttemptsPerProgram,
			MaxAttemptsPerProgram:                  cfg.MaxAttemptsPerProgram,
		},
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		return fmt.Errorf("driver run: %w", err)
	}

	return nil
}

// loadTrees decodes both mutation-info documents and asserts the start-up
// structural-equivalence invariant of spec.md §6.
func loadTrees(cfg *config.Config) (mainTree, coverageTree *mutationtree.Tree, err error) {
	mainTree, err = loadTree(cfg.MutationInfoFile)
	if err != nil {
		return nil, nil, fmt.Errorf("loading main mutation info: %w", err)
	}

	coverageTree, err = loadTree(cfg.MutationInfoFileForMutantCoverageTracking)
	if err != nil {
		return nil, nil, fmt.Errorf("loading coverage-tracking mutation info: %w", err)
	}

	if !mutationtree.Equivalent(mainTree, coverageTree) {
		return nil, nil, ddlerrors.ErrCoverageInfoMismatch
	}

	return mainTree, coverageTree, nil
}

func loadTree(path string) (*mutationtree.Tree, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	doc, err := mutationinfo.Decode(data)
	if err != nil {
		return nil, err
	}

	return mutationtree.Build(doc)
}

// applyFlagOverrides copies any option viper sees as set (an explicit flag,
// a DREDD_-prefixed environment variable, or viper's config file) onto cfg,
// so flag > env > file precedence holds even though cfg was already
// populated by config.Load.
func applyFlagOverrides(_ *cobra.Command, cfg *config.Config) {
	if viper.IsSet("max_consecutive_failed_attempts_per_program") {
		cfg.MaxConsecutiveFailedAttemptsPerProgram = viper.GetInt("max_consecutive_failed_attempts_per_program")
	}

	if viper.IsSet("max_attempts_per_program") {
		cfg.MaxAttemptsPerProgram = viper.GetInt("max_attempts_per_program")
	}

	if viper.IsSet("num_simultaneous_mutations") {
		cfg.NumSimultaneousMutations = viper.GetInt("num_simultaneous_mutations")
	}

	if viper.IsSet("seed") {
		cfg.Seed = viper.GetUint64("seed")
	}

	if viper.IsSet("history_file") {
		cfg.HistoryFile = viper.GetString("history_file")
	}

	if viper.IsSet("format") {
		cfg.Format = viper.GetString("format")
	}
}

func logLevel(verbose bool) logging.Level {
	if verbose {
		return logging.LevelDebug
	}

	return logging.LevelInfo
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
