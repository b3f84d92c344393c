package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"eslintinsights/internal/bitbucket"
	"eslintinsights/internal/config"
	"eslintinsights/internal/eslint"
	"eslintinsights/internal/git"
	"eslintinsights/internal/history"
	"eslintinsights/internal/insights"
	"eslintinsights/internal/summary"
)

var errReportFailed = errors.New("ESLint report failed")

// loadConfig layers the config file, the environment and changed flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if opts.configFile != "" {
		cfg, err = config.LoadConfigFromFile(opts.configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", opts.configFile, err)
		}
	} else {
		var file string
		cfg, file, err = config.LoadConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", file, err)
		}
		if file != "" && opts.verbose && !opts.quiet {
			fmt.Printf("Using config file: %s\n", file)
		}
	}

	for _, setting := range settingFlags {
		flag := cmd.Flags().Lookup(setting.key)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := cfg.Set(setting.key, flag.Value.String()); err != nil {
			return nil, fmt.Errorf("--%s: %w", setting.key, err)
		}
	}

	if !opts.quiet {
		for _, warn := range cfg.Warnings {
			fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("warning:"), warn)
		}
	}
	return cfg, nil
}

// resolveTarget fills in the commit and repository root from git when unset.
// The root is resolved even when the commit cannot be, so paths stay relative.
func resolveTarget(cmd *cobra.Command, cfg *config.Config) error {
	if cfg.CommitID != "" && cfg.RepositoryRootPath != "" {
		return nil
	}

	ctx := cmd.Context()
	if err := git.ValidateRepository(ctx, ""); err != nil {
		return fmt.Errorf("commit-id and repository-root must be set outside a git repository: %w", err)
	}

	var errs []error
	if cfg.RepositoryRootPath == "" {
		root, err := git.TopLevel(ctx, "")
		if err != nil {
			errs = append(errs, fmt.Errorf("repository-root not set and git top level unavailable: %w", err))
		} else {
			cfg.RepositoryRootPath = root
		}
	}
	if cfg.CommitID == "" {
		commit, err := git.HeadCommit(ctx, "")
		if err != nil {
			errs = append(errs, fmt.Errorf("commit-id not set and git HEAD unavailable: %w", err))
		} else {
			cfg.CommitID = commit
		}
	}
	return errors.Join(errs...)
}

// newLinter passes ignore-files to ESLint too, so directories it walks itself
// honour them.
func newLinter(cfg *config.Config) *eslint.Runner {
	args := make([]string, 0, len(cfg.ESLintArgs)+2*len(cfg.IgnoredFiles))
	args = append(args, cfg.ESLintArgs...)
	for _, pattern := range cfg.IgnoredFiles {
		args = append(args, "--ignore-pattern", pattern)
	}

	return eslint.New(eslint.Options{
		Command:    cfg.ESLintCommand,
		ConfigFile: cfg.ESLintConfig,
		Extensions: cfg.ESLintExtensions,
		Args:       args,
	})
}

func newClient(cfg *config.Config) *bitbucket.Client {
	return bitbucket.NewClient(bitbucket.Server{
		URL:         cfg.ServerURL,
		AccessToken: cfg.AccessToken,
	}, bitbucket.Target{
		Project:   cfg.ProjectKey,
		Repo:      cfg.RepoSlug,
		CommitID:  cfg.CommitID,
		ReportKey: cfg.ReportKey,
	})
}

func newReportCmd() *cobra.Command {
	var (
		dryRun       bool
		failOnErrors bool
		tracked      bool
		topN         int
		logHistory   bool
		logDir       string
	)

	cmd := &cobra.Command{
		Use:   "report [files...]",
		Short: "Lint files and publish the Code Insights report",
		Long: `Lint files (default: the current directory) and publish the result.
With --tracked, the files listed by git ls-files are linted instead.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("fail-on-errors") {
				cfg.FailOnErrors = failOnErrors
			}
			if cmd.Flags().Changed("log-history") {
				cfg.LogHistory = logHistory
			}
			if cmd.Flags().Changed("log-dir") {
				cfg.LogDir = logDir
			}

			if err := resolveTarget(cmd, cfg); err != nil && !dryRun {
				return err
			}
			if !dryRun {
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if opts.verbose && !opts.quiet {
				cfg.PrintSummary()
				fmt.Println()
			}

			files := args
			if tracked {
				files, err = git.GetTrackedFiles(cmd.Context(), "")
				if err != nil {
					return err
				}
			}
			if len(files) == 0 {
				files = []string{"."}
			}
			files = cfg.FilterFiles(files)
			if len(files) == 0 {
				return fmt.Errorf("all files are ignored by ignore-files")
			}

			client := newClient(cfg)
			var bar *progressbar.ProgressBar
			if !opts.quiet {
				client.OnBatch = func(sent, total int) {
					if bar == nil {
						bar = progressbar.Default(int64(total), "uploading annotations")
					}
					_ = bar.Set(sent)
				}
			}

			reporter := insights.New(newLinter(cfg), client, cfg.RepositoryRootPath)

			if !opts.quiet {
				fmt.Printf("%s %d path(s)...\n", color.BlueString("Running ESLint on"), len(files))
			}
			outcome, err := reporter.Evaluate(cmd.Context(), files)
			if err != nil {
				return err
			}

			if !dryRun {
				if err := reporter.Submit(cmd.Context(), outcome); err != nil {
					return err
				}
				if bar != nil {
					_ = bar.Finish()
					fmt.Println()
				}
			}

			if !opts.quiet {
				summary.Print(os.Stdout, outcome, topN)
				if dryRun {
					fmt.Println(color.YellowString("Dry run: report not submitted."))
				} else {
					fmt.Printf("%s %s/%s@%s\n", color.GreenString("Report published to"), cfg.ProjectKey, cfg.RepoSlug, cfg.CommitID)
				}
			}

			if cfg.LogHistory {
				written, err := history.WriteReportCSV(cfg.LogDir, outcome)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s failed to log report: %v\n", color.RedString("error:"), err)
				} else if opts.verbose && !opts.quiet {
					for _, file := range written {
						fmt.Printf("Report logged to %s\n", file)
					}
				}
			}

			if cfg.FailOnErrors && outcome.Summary.Result == bitbucket.ResultFail {
				return errReportFailed
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&dryRun, "dry-run", false, "lint and print the report without submitting it")
	flags.BoolVar(&failOnErrors, "fail-on-errors", false, "exit non-zero when the report fails")
	flags.BoolVar(&tracked, "tracked", false, "lint the files tracked by git")
	flags.IntVar(&topN, "top", 20, "number of annotations to print")
	flags.BoolVar(&logHistory, "log-history", false, "write the report to CSV files")
	flags.StringVar(&logDir, "log-dir", ".eslint-insights/history", "directory for CSV report logs")
	return cmd
}

func newPrintConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print-config <file>",
		Short: "Print the ESLint configuration that applies to a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			reporter := insights.New(newLinter(cfg), nil, cfg.RepositoryRootPath)
			effective, err := reporter.ComputeEffectiveConfig(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			return encoder.Encode(effective)
		},
	}
}

func newDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete",
		Short: "Delete the Code Insights report from the commit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := resolveTarget(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := newClient(cfg).DeleteReport(cmd.Context()); err != nil {
				return err
			}
			if !opts.quiet {
				fmt.Printf("%s %s from %s\n", color.GreenString("Deleted report"), cfg.ReportKey, cfg.CommitID)
			}
			return nil
		},
	}
}

func newGenerateConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate-config [file]",
		Short: "Write a sample configuration file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filename := config.ConfigFiles[0]
			if len(args) == 1 {
				filename = args[0]
			}
			if err := config.GenerateConfigFile(filename); err != nil {
				return fmt.Errorf("failed to generate config file: %w", err)
			}
			fmt.Printf("%s %s\n", color.GreenString("Generated configuration file:"), filename)
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			showVersion()
		},
	}
}
