// Package discover finds the CoffeeScript sources of a project.
package discover

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/alucardeht/coffeeidx/internal/config"
	"github.com/alucardeht/coffeeidx/internal/index"
	"github.com/alucardeht/coffeeidx/internal/logger"
)

var log = logger.ForComponent("discover")

// Files walks root and returns project-relative slash paths of every file with
// one of the configured extensions that is not hidden, gitignored or excluded.
// Paths are sorted.
func Files(ctx context.Context, root string, cfg config.IndexConfig) ([]string, error) {
	gi := loadGitignore(root)

	var results []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path == root {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			// a directory is pruned when any file inside it would be
			probe := rel + "/_"
			if strings.HasPrefix(name, ".") || ignored(gi, probe) || index.Excluded(probe, cfg.ExcludePatterns) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if !index.HasExtension(name, cfg.Extensions) {
			return nil
		}
		if ignored(gi, rel) || index.Excluded(rel, cfg.ExcludePatterns) {
			return nil
		}

		results = append(results, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(results)
	return results, nil
}

func ignored(gi *ignore.GitIgnore, rel string) bool {
	return gi != nil && gi.MatchesPath(rel)
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
