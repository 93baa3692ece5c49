package ingest

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ReadFileList reads a text file of input paths, one per line. Blank
// lines and '#' comments are skipped, order is preserved.
func ReadFileList(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ExpandPaths resolves the argument list into concrete input files: glob
// patterns are expanded, plain paths must exist. The tracker keys files by
// base name, so a second path with an already-seen base name is dropped
// with a warning rather than loaded twice.
func ExpandPaths(args []string, log *zap.SugaredLogger) ([]string, error) {
	var out []string
	seen := make(map[string]string) // base name -> first path
	add := func(path string) {
		base := filepath.Base(path)
		if first, dup := seen[base]; dup {
			if first != path {
				log.Warnw("duplicate base name, keeping first", "kept", first, "dropped", path)
			}
			return
		}
		seen[base] = path
		out = append(out, path)
	}

	for _, arg := range args {
		if strings.ContainsAny(arg, "*?[") {
			matches, err := filepath.Glob(arg)
			if err != nil {
				return nil, fmt.Errorf("bad pattern %q: %w", arg, err)
			}
			if len(matches) == 0 {
				log.Warnw("pattern matched nothing", "pattern", arg)
			}
			for _, m := range matches {
				add(m)
			}
			continue
		}
		if _, err := os.Stat(arg); err != nil {
			return nil, fmt.Errorf("input %q: %w", arg, err)
		}
		add(arg)
	}
	return out, nil
}
