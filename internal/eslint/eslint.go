package eslint

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"eslintinsights/internal/types"
)

// DefaultCommand runs the project-local ESLint through npx.
var DefaultCommand = []string{"npx", "eslint"}

// Options are handed to ESLint unmodified.
type Options struct {
	Command    []string
	Dir        string
	ConfigFile string
	Extensions []string
	Args       []string
}

// Runner lints files by invoking the ESLint CLI with the JSON formatter.
type Runner struct {
	opts Options
}

func New(opts Options) *Runner {
	if len(opts.Command) == 0 {
		opts.Command = DefaultCommand
	}
	return &Runner{opts: opts}
}

func (r *Runner) baseArgs() []string {
	args := append([]string{}, r.opts.Command[1:]...)
	if r.opts.ConfigFile != "" {
		args = append(args, "--config", r.opts.ConfigFile)
	}
	for _, ext := range r.opts.Extensions {
		args = append(args, "--ext", ext)
	}
	return append(args, r.opts.Args...)
}

// LintFiles runs ESLint over files and returns its per-file results in output order.
func (r *Runner) LintFiles(ctx context.Context, files []string) ([]types.LintResult, error) {
	args := append(r.baseArgs(), "--format", "json")
	args = append(args, files...)

	output, err := r.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var results []types.LintResult
	if err := json.Unmarshal(output, &results); err != nil {
		return nil, fmt.Errorf("failed to parse ESLint output: %w", err)
	}
	return results, nil
}

// CalculateConfigForFile returns the configuration ESLint would apply to filePath.
func (r *Runner) CalculateConfigForFile(ctx context.Context, filePath string) (map[string]any, error) {
	args := append(r.baseArgs(), "--print-config", filePath)

	output, err := r.run(ctx, args)
	if err != nil {
		return nil, err
	}

	var cfg map[string]any
	if err := json.Unmarshal(output, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse ESLint config for %s: %w", filePath, err)
	}
	return cfg, nil
}

func (r *Runner) run(ctx context.Context, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.opts.Command[0], args...)
	cmd.Dir = r.opts.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Exit code 1 only means lint errors were found; the report is still on stdout.
		var exitError *exec.ExitError
		if !errors.As(err, &exitError) || exitError.ExitCode() != 1 {
			msg := strings.TrimSpace(stderr.String())
			if msg == "" {
				return nil, fmt.Errorf("failed to run ESLint: %w", err)
			}
			return nil, fmt.Errorf("failed to run ESLint: %w: %s", err, msg)
		}
	}

	return stdout.Bytes(), nil
}
