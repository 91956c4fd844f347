// Package pathmatch expands document path patterns such as
// "data/{document_class}/*.pdf" into concrete files and the values captured
// by their placeholders.
//
// A pattern is a slash separated path. Within a segment:
//
//	{name}  captures a run of characters other than '/' into name
//	*       any run of characters ('/' excluded unless matching recursively)
//	?       any single character ('/' excluded unless matching recursively)
//
// Everything else matches literally.
package pathmatch

import (
	"fmt"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/pbx/internal/common"
)

var placeholderRe = regexp.MustCompile(`^\{(\w+)\}`)

// Match is a file selected by a pattern.
type Match struct {
	Path string
	Vars map[string]string
}

// Pattern is a compiled path pattern.
type Pattern struct {
	raw      string
	root     string
	segments []*regexp.Regexp
	flat     *regexp.Regexp
	deep     *regexp.Regexp
	names    []string
}

// Compile parses pattern. The literal leading directories become the search
// root; the remaining segments are matched against entries below it.
func Compile(pattern string) (*Pattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: empty pattern", common.ErrInvalidPattern)
	}

	cleaned := path.Clean(filepath.ToSlash(pattern))
	abs := strings.HasPrefix(cleaned, "/")
	parts := strings.Split(strings.TrimPrefix(cleaned, "/"), "/")

	first := len(parts) - 1
	for i, part := range parts {
		if hasMeta(part) {
			first = i
			break
		}
	}

	root := strings.Join(parts[:first], "/")
	switch {
	case abs:
		root = "/" + root
	case root == "":
		root = "."
	}

	p := &Pattern{raw: pattern, root: root}
	seen := map[string]bool{}

	var flat, deep []string
	for i, part := range parts[first:] {
		seg, deepSeg, names := translate(part)
		for _, n := range names {
			if seen[n] {
				return nil, fmt.Errorf("%w: placeholder {%s} used twice in %q", common.ErrInvalidPattern, n, pattern)
			}
			seen[n] = true
			p.names = append(p.names, n)
		}

		re, err := regexp.Compile("^" + seg + "$")
		if err != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidPattern, err)
		}
		p.segments = append(p.segments, re)
		flat = append(flat, seg)

		if i == len(parts[first:])-1 {
			// files may sit any number of directories deeper when recursing
			deepSeg = "(?:.*/)?" + deepSeg
		}
		deep = append(deep, deepSeg)
	}

	var err error
	if p.flat, err = regexp.Compile("^" + strings.Join(flat, "/") + "$"); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidPattern, err)
	}
	if p.deep, err = regexp.Compile("^" + strings.Join(deep, "/") + "$"); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidPattern, err)
	}

	return p, nil
}

func hasMeta(segment string) bool {
	return strings.ContainsAny(segment, "*?") || placeholderIn(segment)
}

func placeholderIn(segment string) bool {
	for i := range segment {
		if segment[i] == '{' && placeholderRe.MatchString(segment[i:]) {
			return true
		}
	}
	return false
}

// translate turns one segment into its per-segment and recursive regex
// fragments and reports the placeholder names it declares.
func translate(segment string) (string, string, []string) {
	var seg, deep strings.Builder
	var names []string

	for i := 0; i < len(segment); {
		if m := placeholderRe.FindStringSubmatch(segment[i:]); m != nil {
			group := fmt.Sprintf("(?P<%s>[^/]+)", m[1])
			seg.WriteString(group)
			deep.WriteString(group)
			names = append(names, m[1])
			i += len(m[0])
			continue
		}

		switch c := segment[i]; c {
		case '*':
			seg.WriteString("[^/]*")
			deep.WriteString(".*")
		case '?':
			seg.WriteString("[^/]")
			deep.WriteString(".")
		default:
			j := i + 1
			for j < len(segment) && !strings.ContainsRune("*?{", rune(segment[j])) {
				j++
			}
			q := regexp.QuoteMeta(segment[i:j])
			seg.WriteString(q)
			deep.WriteString(q)
			i = j
			continue
		}
		i++
	}

	return seg.String(), deep.String(), names
}

// Root is the literal directory the search starts from.
func (p *Pattern) Root() string {
	return p.root
}

// Names lists the placeholders in declaration order.
func (p *Pattern) Names() []string {
	return append([]string(nil), p.names...)
}

func (p *Pattern) String() string {
	return p.raw
}

// MatchRel matches a slash separated path relative to Root.
func (p *Pattern) MatchRel(rel string, recursive bool) (map[string]string, bool) {
	re := p.flat
	if recursive {
		re = p.deep
	}
	m := re.FindStringSubmatch(rel)
	if m == nil {
		return nil, false
	}
	vars := make(map[string]string, len(p.names))
	for i, name := range re.SubexpNames() {
		if name != "" {
			vars[name] = m[i]
		}
	}
	return vars, true
}

// MatchKey matches an object key for stores without directories, such as S3.
// The key must live below Root.
func (p *Pattern) MatchKey(key string, recursive bool) (map[string]string, bool) {
	rel := key
	if p.root != "." {
		prefix := strings.TrimPrefix(p.root, "/") + "/"
		if !strings.HasPrefix(key, prefix) {
			return nil, false
		}
		rel = strings.TrimPrefix(key, prefix)
	}
	return p.MatchRel(rel, recursive)
}
