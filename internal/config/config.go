package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/joho/godotenv"
	"github.com/sajari/fuzzy"

	"eslintinsights/internal/insights"
)

type Config struct {
	// Bitbucket Server connection
	ServerURL   string
	AccessToken string

	// Report target
	ProjectKey         string
	RepoSlug           string
	CommitID           string
	RepositoryRootPath string
	ReportKey          string

	// ESLint invocation, passed through unmodified
	ESLintCommand    []string
	ESLintConfig     string
	ESLintExtensions []string
	ESLintArgs       []string

	IgnoredFiles   []string
	FailOnErrors   bool
	LogHistory     bool
	LogDir         string
	CustomSettings map[string]string
	Warnings       []string
}

func NewConfig() *Config {
	return &Config{
		ReportKey:        insights.DefaultReportKey,
		ESLintCommand:    []string{"npx", "eslint"},
		ESLintExtensions: []string{},
		ESLintArgs:       []string{},
		IgnoredFiles:     []string{},
		LogDir:           ".eslint-insights/history",
		CustomSettings:   make(map[string]string),
	}
}

// ConfigFiles are searched in order by LoadConfig.
var ConfigFiles = []string{
	".eslint-insights.rc",
	".eslint-insights.config",
	"eslint-insights.config",
}

// EnvFiles are loaded by LoadEnv when present. Variables already set win.
var EnvFiles = []string{".env.local", ".env"}

var envKeys = map[string]string{
	"BBS_HOST":  "server-url",
	"BBS_TOKEN": "access-token",
	"PROJECT":   "project",
	"REPO":      "repo",
	"COMMIT_ID": "commit-id",
	"REPO_ROOT": "repository-root",
}

var knownKeys = []string{
	"server-url",
	"access-token",
	"project",
	"repo",
	"commit-id",
	"repository-root",
	"report-key",
	"eslint-command",
	"eslint-config",
	"eslint-ext",
	"eslint-args",
	"ignore-files",
	"fail-on-errors",
	"log-history",
	"log-dir",
}

// LoadConfig reads the first config file found in the working directory,
// then applies the environment. The returned path is empty when no file exists.
func LoadConfig() (*Config, string, error) {
	config := NewConfig()

	var configFile string
	for _, file := range ConfigFiles {
		if _, err := os.Stat(file); err == nil {
			configFile = file
			break
		}
	}

	if configFile != "" {
		if _, err := parseConfigFile(configFile, config); err != nil {
			return config, configFile, err
		}
	}

	config.LoadEnv()
	return config, configFile, nil
}

func LoadConfigFromFile(filename string) (*Config, error) {
	config := NewConfig()
	if _, err := os.Stat(filename); err != nil {
		return nil, fmt.Errorf("config file not found: %s", filename)
	}
	if _, err := parseConfigFile(filename, config); err != nil {
		return nil, err
	}
	config.LoadEnv()
	return config, nil
}

// LoadEnv loads EnvFiles into the process environment and applies the
// recognised variables on top of the current values.
func (c *Config) LoadEnv() {
	for _, file := range EnvFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}

	names := make([]string, 0, len(envKeys))
	for name := range envKeys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if value := os.Getenv(name); value != "" {
			_ = c.parseKeyValue(envKeys[name], value)
		}
	}
}

func parseConfigFile(filename string, config *Config) (*Config, error) {
	file, err := os.Open(filename)
	if err != nil {
		return config, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			config.Warnings = append(config.Warnings, fmt.Sprintf("line %d: expected key = value", lineNum))
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		if err := config.parseKeyValue(key, value); err != nil {
			config.Warnings = append(config.Warnings, fmt.Sprintf("line %d: %v", lineNum, err))
		}
	}

	return config, scanner.Err()
}

// Set applies a single key = value setting using the config file syntax.
func (c *Config) Set(key, value string) error {
	return c.parseKeyValue(key, value)
}

func (c *Config) parseKeyValue(key, value string) error {
	switch key {
	case "server-url":
		c.ServerURL = strings.TrimRight(value, "/")
	case "access-token":
		c.AccessToken = value
	case "project":
		c.ProjectKey = value
	case "repo":
		c.RepoSlug = value
	case "commit-id":
		c.CommitID = value
	case "repository-root":
		c.RepositoryRootPath = value
	case "report-key":
		if value == "" {
			return fmt.Errorf("report-key cannot be empty")
		}
		c.ReportKey = value
	case "eslint-command":
		fields := strings.Fields(value)
		if len(fields) == 0 {
			return fmt.Errorf("eslint-command cannot be empty")
		}
		c.ESLintCommand = fields
	case "eslint-config":
		c.ESLintConfig = value
	case "eslint-ext":
		c.ESLintExtensions = append(c.ESLintExtensions, parseList(value)...)
	case "eslint-args":
		c.ESLintArgs = append(c.ESLintArgs, strings.Fields(value)...)
	case "ignore-files":
		patterns := parseList(value)
		for _, pattern := range patterns {
			if !doublestar.ValidatePattern(pattern) {
				return fmt.Errorf("invalid ignore-files pattern: %s", pattern)
			}
		}
		c.IgnoredFiles = append(c.IgnoredFiles, patterns...)
	case "fail-on-errors":
		c.FailOnErrors = strings.ToLower(value) == "true"
	case "log-history":
		c.LogHistory = strings.ToLower(value) == "true"
	case "log-dir":
		c.LogDir = value
	default:
		c.CustomSettings[key] = value
		if suggestion := SuggestKey(key); suggestion != "" {
			return fmt.Errorf("unknown key %q, did you mean %q?", key, suggestion)
		}
	}
	return nil
}

func parseList(value string) []string {
	items := strings.Split(value, ",")
	var result []string

	for _, item := range items {
		cleaned := strings.TrimSpace(item)
		if cleaned != "" {
			result = append(result, cleaned)
		}
	}

	return result
}

var keyModel = newKeyModel()

func newKeyModel() *fuzzy.Model {
	model := fuzzy.NewModel()
	model.SetThreshold(1)
	model.SetDepth(2)
	model.Train(knownKeys)
	return model
}

// SuggestKey returns the closest known key to a misspelled one, or "".
func SuggestKey(key string) string {
	for _, known := range knownKeys {
		if known == key {
			return ""
		}
	}
	return keyModel.SpellCheck(key)
}

// ShouldIgnoreFile reports whether filePath matches one of the ignore-files patterns.
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	normalized := filepath.ToSlash(filePath)
	for _, pattern := range c.IgnoredFiles {
		if matched, _ := doublestar.Match(pattern, normalized); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, filepath.Base(normalized)); matched {
			return true
		}
	}
	return false
}

// FilterFiles drops ignored paths, keeping the input order.
func (c *Config) FilterFiles(files []string) []string {
	kept := make([]string, 0, len(files))
	for _, file := range files {
		if !c.ShouldIgnoreFile(file) {
			kept = append(kept, file)
		}
	}
	return kept
}

// Validate returns an error naming every missing setting needed to submit a report.
func (c *Config) Validate() error {
	var missing []string
	if c.ServerURL == "" {
		missing = append(missing, "server-url")
	}
	if c.AccessToken == "" {
		missing = append(missing, "access-token")
	}
	if c.ProjectKey == "" {
		missing = append(missing, "project")
	}
	if c.RepoSlug == "" {
		missing = append(missing, "repo")
	}
	if c.CommitID == "" {
		missing = append(missing, "commit-id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

func GenerateConfigFile(filename string) error {
	if filename == "" {
		filename = ConfigFiles[0]
	}

	content := `# ESLint Code Insights configuration
# Lines starting with # are comments. Environment variables
# (BBS_HOST, BBS_TOKEN, PROJECT, REPO, COMMIT_ID, REPO_ROOT) override these.

# Bitbucket Server
server-url = "https://bitbucket.example.org"
# access-token = ""

# Repository the report is attached to
project = "PROJ"
repo = "my-repo"

# Defaults to git rev-parse HEAD / --show-toplevel when unset
# commit-id = ""
# repository-root = ""

# report-key = "oeph.code-insights.eslint"

# ESLint invocation
eslint-command = "npx eslint"
# eslint-config = ".eslintrc.js"
# eslint-ext = ".js,.jsx,.ts,.tsx"
# eslint-args = "--no-error-on-unmatched-pattern"

# Files never linted (doublestar globs, also passed to ESLint as --ignore-pattern)
ignore-files = "node_modules/**,dist/**,**/*.min.js"

# Exit non-zero when the report fails
fail-on-errors = false

# Keep a CSV copy of each report
log-history = false
log-dir = ".eslint-insights/history"
`

	return os.WriteFile(filename, []byte(content), 0644)
}

func (c *Config) PrintSummary() {
	token := "(not set)"
	if c.AccessToken != "" {
		token = "(set)"
	}

	fmt.Printf("Configuration Summary:\n")
	fmt.Printf("  • Server: %s\n", c.ServerURL)
	fmt.Printf("  • Access token: %s\n", token)
	fmt.Printf("  • Repository: %s/%s\n", c.ProjectKey, c.RepoSlug)
	fmt.Printf("  • Commit: %s\n", c.CommitID)
	fmt.Printf("  • Repository root: %s\n", c.RepositoryRootPath)
	fmt.Printf("  • Report key: %s\n", c.ReportKey)
	fmt.Printf("  • ESLint: %s\n", strings.Join(c.ESLintCommand, " "))
	fmt.Printf("  • Ignored files: %d patterns\n", len(c.IgnoredFiles))
	fmt.Printf("  • Fail on errors: %t\n", c.FailOnErrors)
}
