package pathmatch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/dmitrijs2005/pbx/internal/logging"
)

// readDir lists a directory; tests replace it to simulate unreadable ones.
var readDir = os.ReadDir

// Find returns the local files selected by p. Without recursion only the
// directories named by the pattern segments are entered; with recursion the
// whole tree below Root is scanned. A pattern that selects nothing yields an
// empty result, not an error. Directories below Root that cannot be read are
// skipped with a warning; only an unreadable Root fails.
func (p *Pattern) Find(ctx context.Context, recursive bool, log logging.Logger) ([]Match, error) {
	if log == nil {
		log = logging.Discard()
	}

	root := filepath.FromSlash(p.root)
	if _, err := os.Stat(root); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn(ctx, "search root does not exist", "root", root, "pattern", p.raw)
			return []Match{}, nil
		}
		return nil, err
	}

	matches := []Match{}
	var err error
	if recursive {
		err = p.walkTree(ctx, root, "", &matches, log)
	} else {
		err = p.walkSegments(ctx, root, "", 0, &matches, log)
	}
	if err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Path < matches[j].Path })
	return matches, nil
}

// walkTree visits every file below dir. Symlinked directories are not
// followed so link cycles cannot loop.
func (p *Pattern) walkTree(ctx context.Context, dir, rel string, out *[]Match, log logging.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := readDir(dir)
	if err != nil {
		if rel == "" {
			return err
		}
		log.Warn(ctx, "skipping unreadable directory", "path", dir, "error", err)
		return nil
	}

	for _, e := range entries {
		full := filepath.Join(dir, e.Name())
		childRel := e.Name()
		if rel != "" {
			childRel = rel + "/" + e.Name()
		}

		if e.IsDir() {
			if err := p.walkTree(ctx, full, childRel, out, log); err != nil {
				return err
			}
			continue
		}
		if vars, ok := p.MatchRel(childRel, true); ok {
			*out = append(*out, Match{Path: full, Vars: vars})
		}
	}
	return nil
}

func (p *Pattern) walkSegments(ctx context.Context, dir, rel string, depth int, out *[]Match, log logging.Logger) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := readDir(dir)
	if err != nil {
		if depth == 0 {
			return err
		}
		log.Warn(ctx, "skipping unreadable directory", "path", dir, "error", err)
		return nil
	}

	seg := p.segments[depth]
	last := depth == len(p.segments)-1

	for _, e := range entries {
		name := e.Name()
		if !seg.MatchString(name) {
			continue
		}

		full := filepath.Join(dir, name)
		childRel := name
		if rel != "" {
			childRel = rel + "/" + name
		}

		isDir, err := isDirectory(full, e)
		if err != nil {
			log.Warn(ctx, "skipping unreadable entry", "path", full, "error", err)
			continue
		}

		switch {
		case isDir && last:
			log.Warn(ctx, "skipping directory, use --recursive to include it", "path", full)
		case isDir:
			if err := p.walkSegments(ctx, full, childRel, depth+1, out, log); err != nil {
				return err
			}
		case last:
			if vars, ok := p.MatchRel(childRel, false); ok {
				*out = append(*out, Match{Path: full, Vars: vars})
			}
		}
	}
	return nil
}

// isDirectory resolves symlinks so linked document folders are followed.
func isDirectory(path string, e fs.DirEntry) (bool, error) {
	if e.Type()&fs.ModeSymlink == 0 {
		return e.IsDir(), nil
	}
	fi, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return fi.IsDir(), nil
}
