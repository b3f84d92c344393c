package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const VERSION = "1.0.0"
const PROJECT_NAME = "eslint-insights"

type globalOptions struct {
	configFile string
	verbose    bool
	quiet      bool
}

var opts globalOptions

// settingFlags are command line flags that override config file keys of the same name.
var settingFlags = []struct {
	key   string
	usage string
}{
	{"server-url", "Bitbucket Server URL (env BBS_HOST)"},
	{"access-token", "Bitbucket Server access token (env BBS_TOKEN)"},
	{"project", "Bitbucket project key (env PROJECT)"},
	{"repo", "Bitbucket repository slug (env REPO)"},
	{"commit-id", "full commit id the report belongs to (default: git HEAD)"},
	{"repository-root", "path prefix removed from linted files (default: git top level)"},
	{"report-key", "Code Insights report key"},
	{"eslint-command", "command used to run ESLint"},
	{"eslint-config", "ESLint config file passed as --config"},
	{"eslint-ext", "comma-separated extensions passed as --ext"},
	{"eslint-args", "extra arguments passed to ESLint"},
	{"ignore-files", "comma-separated globs of files to skip"},
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   PROJECT_NAME,
		Short: "Publish ESLint results as Bitbucket Server Code Insights",
		Long: `eslint-insights runs ESLint over a set of files and attaches the result
to a commit as a Bitbucket Server Code Insights report. Reports fail when
ESLint finds at least one error; failing reports carry one annotation per
lint message.`,
		Version:       VERSION,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "path to configuration file (default: .eslint-insights.rc)")
	flags.BoolVar(&opts.verbose, "verbose", false, "enable verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-essential output")
	for _, setting := range settingFlags {
		flags.String(setting.key, "", setting.usage)
	}

	rootCmd.AddCommand(
		newReportCmd(),
		newPrintConfigCmd(),
		newDeleteCmd(),
		newGenerateConfigCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("error:"), err)
		cancel()
		os.Exit(1)
	}
}

func showVersion() {
	fmt.Printf("%s v%s\n", PROJECT_NAME, VERSION)
	fmt.Printf("Publishes ESLint results as Bitbucket Server Code Insights\n")
}
