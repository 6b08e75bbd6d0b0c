package search

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Default directories excluded from scanning.
var defaultIgnoreDirs = []string{".git", "node_modules", "target", "vendor"}

// probeSize is how many leading bytes are sniffed to reject binary files.
const probeSize = 8192

// LiteralSearcher scans a directory tree for fixed-string matches, one result
// per matching line.
type LiteralSearcher struct {
	root       string
	ignoreDirs map[string]struct{}
	log        *slog.Logger
}

// LiteralOption customizes a LiteralSearcher.
type LiteralOption func(*LiteralSearcher)

// WithIgnoreDirs replaces the default set of directory names to skip.
func WithIgnoreDirs(names []string) LiteralOption {
	return func(s *LiteralSearcher) {
		s.ignoreDirs = make(map[string]struct{}, len(names))
		for _, n := range names {
			s.ignoreDirs[n] = struct{}{}
		}
	}
}

// WithSearchLogger overrides the logger.
func WithSearchLogger(l *slog.Logger) LiteralOption {
	return func(s *LiteralSearcher) {
		if l != nil {
			s.log = l
		}
	}
}

// NewLiteralSearcher creates a searcher rooted at root.
func NewLiteralSearcher(root string, opts ...LiteralOption) *LiteralSearcher {
	s := &LiteralSearcher{
		root:       root,
		ignoreDirs: make(map[string]struct{}, len(defaultIgnoreDirs)),
		log:        slog.Default(),
	}
	for _, n := range defaultIgnoreDirs {
		s.ignoreDirs[n] = struct{}{}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the directory the searcher scans.
func (s *LiteralSearcher) Root() string { return s.root }

// Search walks the root and emits a Result for every line containing query as
// a literal substring. The context is checked between files and between
// lines; no result is emitted after cancellation is observed.
func (s *LiteralSearcher) Search(ctx context.Context, query string, emit EmitFunc) error {
	if query == "" {
		return nil
	}

	count := 0
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable entries are skipped, not fatal.
			s.log.Debug("skipping unreadable entry", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if _, skip := s.ignoreDirs[name]; skip && path != s.root {
				return fs.SkipDir
			}
			if strings.HasPrefix(name, ".") && path != s.root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || strings.HasPrefix(name, ".") {
			return nil
		}
		n, err := s.scanFile(ctx, path, query, emit)
		count += n
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			s.log.Info("search cancelled", "query", query, "results", count)
			return ctx.Err()
		}
		return fmt.Errorf("walk %s: %w", s.root, err)
	}

	s.log.Info("search completed", "query", query, "results", count)
	return nil
}

// scanFile emits one result per line of path containing query. Binary files
// are skipped based on a NUL probe of the leading bytes.
func (s *LiteralSearcher) scanFile(ctx context.Context, path, query string, emit EmitFunc) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		s.log.Debug("skipping unreadable file", "path", path, "err", err)
		return 0, nil
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, probeSize)
	probe, err := br.Peek(probeSize)
	if err != nil && err != io.EOF {
		return 0, nil
	}
	if bytes.IndexByte(probe, 0) >= 0 {
		return 0, nil
	}

	rel, err := filepath.Rel(s.root, path)
	if err != nil {
		rel = path
	}

	count := 0
	sc := bufio.NewScanner(br)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for line := 1; sc.Scan(); line++ {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		text := sc.Text()
		if !strings.Contains(text, query) {
			continue
		}
		count++
		if err := emit(Result{Filename: rel, Line: line, Content: text}); err != nil {
			return count, err
		}
	}
	if err := sc.Err(); err != nil {
		s.log.Debug("stopped scanning file", "path", path, "err", err)
	}
	return count, nil
}
