package eslint

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
)

// fakeESLint writes a shell script that records its arguments and prints body.
func fakeESLint(t *testing.T, body string, exitCode int) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake eslint is a shell script")
	}

	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	outFile := filepath.Join(dir, "out.json")
	if err := os.WriteFile(outFile, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"cat " + outFile + "\n" +
		"echo 'boom' >&2\n" +
		"exit " + strconv.Itoa(exitCode) + "\n"
	path := filepath.Join(dir, "eslint")
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	return path, argsFile
}

func TestLintFiles(t *testing.T) {
	out := `[{"filePath":"/repo/test.js","messages":[{"ruleId":"no-console","severity":2,"message":"Unexpected console statement.","line":1,"column":1}],"errorCount":1,"warningCount":0,"fixableErrorCount":0,"fixableWarningCount":0}]`
	script, argsFile := fakeESLint(t, out, 1)

	runner := New(Options{
		Command:    []string{script},
		ConfigFile: ".eslintrc.js",
		Extensions: []string{".ts"},
		Args:       []string{"--no-eslintrc"},
	})

	results, err := runner.LintFiles(context.Background(), []string{"test.js"})
	if err != nil {
		t.Fatalf("LintFiles failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("Expected 1 result, but got %d", len(results))
	}
	if results[0].ErrorCount != 1 {
		t.Errorf("Expected error count to be 1, but got %d", results[0].ErrorCount)
	}
	if got := results[0].Messages[0].Rule(); got != "no-console" {
		t.Errorf("Expected rule ID to be 'no-console', but got '%s'", got)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	want := "--config .eslintrc.js --ext .ts --no-eslintrc --format json test.js"
	if strings.TrimSpace(string(args)) != want {
		t.Errorf("Expected args %q, but got %q", want, strings.TrimSpace(string(args)))
	}
}

func TestLintFilesCrash(t *testing.T) {
	script, _ := fakeESLint(t, "", 2)

	_, err := New(Options{Command: []string{script}}).LintFiles(context.Background(), []string{"."})
	if err == nil {
		t.Fatal("Expected an error for exit code 2")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Errorf("Expected stderr in error, but got %v", err)
	}
}

func TestLintFilesBadOutput(t *testing.T) {
	script, _ := fakeESLint(t, "not json", 0)

	_, err := New(Options{Command: []string{script}}).LintFiles(context.Background(), []string{"."})
	if err == nil || !strings.Contains(err.Error(), "failed to parse ESLint output") {
		t.Errorf("Expected parse error, but got %v", err)
	}
}

func TestCalculateConfigForFile(t *testing.T) {
	script, argsFile := fakeESLint(t, `{"rules":{"semi":["error","always"]}}`, 0)

	cfg, err := New(Options{Command: []string{script}}).CalculateConfigForFile(context.Background(), "index.js")
	if err != nil {
		t.Fatalf("CalculateConfigForFile failed: %v", err)
	}

	rules, ok := cfg["rules"].(map[string]any)
	if !ok || rules["semi"] == nil {
		t.Errorf("Expected semi rule in config, but got %v", cfg)
	}

	args, _ := os.ReadFile(argsFile)
	if strings.TrimSpace(string(args)) != "--print-config index.js" {
		t.Errorf("Unexpected args %q", strings.TrimSpace(string(args)))
	}
}
