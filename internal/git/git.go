package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

const devNull = "/dev/null"

type ChangedFile struct {
	// Path is relative to the repository top level.
	Path         string
	ChangedLines []int
	Deleted      bool
}

// TopLevel returns the repository root containing dir.
func TopLevel(ctx context.Context, dir string) (string, error) {
	out, err := run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// GetChangedFiles runs git diff in dir and returns the changed files with their new line numbers.
func GetChangedFiles(ctx context.Context, dir, baseRef string) ([]ChangedFile, error) {
	output, err := run(ctx, dir, "diff", "-U0", "--no-color", "--no-ext-diff", baseRef)
	if err != nil {
		return nil, err
	}
	return parseDiff(output)
}

func run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

func parseDiff(output []byte) ([]ChangedFile, error) {
	if len(bytes.TrimSpace(output)) == 0 {
		return nil, nil
	}
	fileDiffs, err := diff.ParseMultiFileDiff(output)
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	changes := make([]ChangedFile, 0, len(fileDiffs))
	for _, fd := range fileDiffs {
		change := ChangedFile{Path: strings.TrimPrefix(fd.NewName, "b/"), ChangedLines: []int{}}
		if fd.NewName == devNull {
			change.Path = strings.TrimPrefix(fd.OrigName, "a/")
			change.Deleted = true
		}

		for _, h := range fd.Hunks {
			start := int(h.NewStartLine)
			// A pure deletion still touches the line it was removed before.
			if h.NewLines == 0 {
				if start > 0 {
					change.ChangedLines = append(change.ChangedLines, start)
				}
				continue
			}
			for i := 0; i < int(h.NewLines); i++ {
				change.ChangedLines = append(change.ChangedLines, start+i)
			}
		}
		changes = append(changes, change)
	}
	return changes, nil
}
