package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/afero"
)

// Glob is a compiled path pattern. Supported syntax: "**" (any number of
// path segments), "*" and "?" (within one segment) and "{a,b}" alternation.
type Glob struct {
	pattern string
	prefix  string
	re      *regexp.Regexp
}

// CompileGlob translates a slash-separated glob into a matcher.
func CompileGlob(pattern string) (*Glob, error) {
	pattern = filepath.ToSlash(pattern)
	var b strings.Builder
	b.WriteString("^")
	depth := 0
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		switch c {
		case '*':
			if i+1 < len(pattern) && pattern[i+1] == '*' {
				i++
				if i+1 < len(pattern) && pattern[i+1] == '/' {
					i++
					b.WriteString("(?:.*/)?")
				} else {
					b.WriteString(".*")
				}
				continue
			}
			b.WriteString("[^/]*")
		case '?':
			b.WriteString("[^/]")
		case '{':
			depth++
			b.WriteString("(?:")
		case '}':
			if depth == 0 {
				return nil, fmt.Errorf("glob %q: unbalanced '}'", pattern)
			}
			depth--
			b.WriteString(")")
		case ',':
			if depth > 0 {
				b.WriteString("|")
			} else {
				b.WriteString(",")
			}
		default:
			b.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("glob %q: unbalanced '{'", pattern)
	}
	b.WriteString("$")

	re, err := regexp.Compile(b.String())
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", pattern, err)
	}
	return &Glob{pattern: pattern, prefix: staticPrefix(pattern), re: re}, nil
}

// staticPrefix returns the leading directory segments that contain no
// pattern syntax, so walks can start below the root.
func staticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	var fixed []string
	for _, s := range segments[:len(segments)-1] {
		if strings.ContainsAny(s, "*?{") {
			break
		}
		fixed = append(fixed, s)
	}
	return path.Join(fixed...)
}

// HasMeta reports whether pattern contains glob syntax.
func HasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, "*?{")
}

// Match reports whether the slash-separated relative path matches.
func (g *Glob) Match(rel string) bool {
	return g.re.MatchString(filepath.ToSlash(rel))
}

func (g *Glob) String() string {
	return g.pattern
}

// GlobFiles walks root and returns every regular file whose path relative to
// root matches pattern. Results keep the root prefix and are in lexical order.
func GlobFiles(fsys afero.Fs, root, pattern string) ([]string, error) {
	g, err := CompileGlob(pattern)
	if err != nil {
		return nil, err
	}
	return g.Files(fsys, root)
}

// Files is GlobFiles for an already compiled pattern.
func (g *Glob) Files(fsys afero.Fs, root string) ([]string, error) {
	start := filepath.Join(root, filepath.FromSlash(g.prefix))
	if _, err := fsys.Stat(start); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var matches []string
	err := afero.Walk(fsys, start, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		if g.Match(rel) {
			matches = append(matches, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("glob %q under %s: %w", g.pattern, root, err)
	}
	return matches, nil
}
