package parser

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	meta "github.com/yuin/goldmark-meta"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

var frontMatterParser = goldmark.New(goldmark.WithExtensions(meta.Meta))

// SplitFrontMatter separates a leading --- fenced YAML block from the body.
// A source without a fence yields an empty map and the source unchanged.
func SplitFrontMatter(src []byte) (map[string]interface{}, []byte, error) {
	end, ok, err := frontMatterEnd(src)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return map[string]interface{}{}, src, nil
	}

	pc := parser.NewContext()
	frontMatterParser.Parser().Parse(text.NewReader(src[:end]), parser.WithContext(pc))
	data, err := meta.TryGet(pc)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid front matter: %w", err)
	}
	if data == nil {
		data = map[string]interface{}{}
	}
	return normalizeMap(data), src[end:], nil
}

// frontMatterEnd returns the offset just past the closing fence line.
func frontMatterEnd(src []byte) (int, bool, error) {
	first, rest := nextLine(src, 0)
	if !isFence(src[:first]) {
		return 0, false, nil
	}
	for pos := rest; pos < len(src); {
		lineEnd, next := nextLine(src, pos)
		if isFence(src[pos:lineEnd]) {
			return next, true, nil
		}
		pos = next
	}
	return 0, false, fmt.Errorf("front matter is not closed")
}

// nextLine returns the end of the line starting at pos (without the line
// break) and the start of the following line.
func nextLine(src []byte, pos int) (int, int) {
	i := bytes.IndexByte(src[pos:], '\n')
	if i < 0 {
		return len(src), len(src)
	}
	return pos + i, pos + i + 1
}

func isFence(line []byte) bool {
	line = bytes.TrimRight(line, " \t\r")
	return len(line) >= 3 && len(bytes.Trim(line, "-")) == 0
}

// normalizeMap converts the map[interface{}]interface{} values the YAML
// decoder produces for nested objects so templates can index them by string.
func normalizeMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v interface{}) interface{} {
	switch val := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, inner := range val {
			out[fmt.Sprint(k)] = normalizeValue(inner)
		}
		return out
	case map[string]interface{}:
		return normalizeMap(val)
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, inner := range val {
			out[i] = normalizeValue(inner)
		}
		return out
	default:
		return v
	}
}
