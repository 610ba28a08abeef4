package crawler

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"relaygen/internal/extractor"
)

// GeneratedSuffix marks files written by relaygen. They are never read back as input.
const GeneratedSuffix = "_relay.gen.go"

var defaultIgnored = []string{".git", "vendor", "node_modules", "testdata"}

// Crawler scans a directory for source files.
type Crawler struct {
	extractor *extractor.Extractor
	ignored   []string
	logger    *slog.Logger
}

// NewCrawler creates a new crawler instance.
func NewCrawler(ext *extractor.Extractor) *Crawler {
	return &Crawler{
		extractor: ext,
		ignored:   defaultIgnored,
		logger:    slog.Default(),
	}
}

// WithLogger replaces the logger used for per-file extraction failures.
func (c *Crawler) WithLogger(l *slog.Logger) *Crawler {
	if l != nil {
		c.logger = l
	}
	return c
}

// IsSource reports whether a file name is a Go source the crawler would extract.
func IsSource(name string) bool {
	return strings.HasSuffix(name, ".go") &&
		!strings.HasSuffix(name, "_test.go") &&
		!strings.HasSuffix(name, GeneratedSuffix)
}

// ScanProject walks the root directory and processes all relevant files.
// It uses a callback to stream CodeUnits, preventing large memory buildup.
func (c *Crawler) ScanProject(ctx context.Context, root string, onUnit func(*extractor.CodeUnit)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && c.skipDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}

		if !IsSource(d.Name()) {
			return nil
		}

		units, err := c.extractor.ExtractFromFile(path)
		if err != nil {
			// A broken file should not stop the scan.
			c.logger.Warn("extraction failed", "file", path, "error", err)
			return nil
		}

		for _, unit := range units {
			onUnit(unit)
		}
		return nil
	})
}

// SkipDir reports whether the default crawler skips a directory with this name.
func SkipDir(name string) bool {
	return skip(name, defaultIgnored)
}

func (c *Crawler) skipDir(name string) bool {
	return skip(name, c.ignored)
}

// skip follows the go tool: "_" and "." prefixed directories are not packages.
func skip(name string, ignored []string) bool {
	if strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
		return true
	}
	for _, ign := range ignored {
		if name == ign {
			return true
		}
	}
	return false
}
