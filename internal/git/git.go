package git

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

func run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return strings.TrimSpace(string(output)), nil
}

func ValidateRepository(ctx context.Context, dir string) error {
	_, err := run(ctx, dir, "rev-parse", "--git-dir")
	return err
}

// HeadCommit returns the full id of the checked out commit.
func HeadCommit(ctx context.Context, dir string) (string, error) {
	return run(ctx, dir, "rev-parse", "HEAD")
}

// TopLevel returns the repository root with a trailing slash, so that removing
// it from an absolute file path leaves a repository relative one.
func TopLevel(ctx context.Context, dir string) (string, error) {
	root, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	if !strings.HasSuffix(root, "/") {
		root += "/"
	}
	return root, nil
}

// GetTrackedFiles lists the files git knows about, in index order.
func GetTrackedFiles(ctx context.Context, dir string) ([]string, error) {
	output, err := run(ctx, dir, "ls-files")
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(output, "\n") {
		if line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}
