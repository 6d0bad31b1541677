package utils

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func GetString(m map[string]interface{}, k string) string {
	if v, ok := m[k]; ok && v != nil {
		return fmt.Sprintf("%v", v)
	}
	return ""
}

func GetSlice(m map[string]interface{}, k string) []string {
	var res []string
	if v, ok := m[k]; ok {
		switch l := v.(type) {
		case []interface{}:
			for _, i := range l {
				res = append(res, fmt.Sprintf("%v", i))
			}
		case []string:
			res = append(res, l...)
		case string:
			if l != "" {
				res = append(res, l)
			}
		}
	}
	return res
}

func GetBool(m map[string]interface{}, k string) bool {
	if v, ok := m[k]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

// GetTime accepts time.Time (yaml timestamps) or the common string layouts.
func GetTime(m map[string]interface{}, k string) (time.Time, bool) {
	v, ok := m[k]
	if !ok || v == nil {
		return time.Time{}, false
	}
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

var nonSlugChars = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Slug lowercases s and collapses every run of non-alphanumerics into "-".
func Slug(s string) string {
	s = cases.Lower(language.Und).String(strings.TrimSpace(s))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// EncodeURI escapes s like the browser's encodeURI: reserved URI characters
// survive, everything else is percent encoded.
func EncodeURI(s string) string {
	const keep = ";,/?:@&=+$-_.!~*'()#"
	var b strings.Builder
	for _, r := range s {
		if r < 0x80 && (r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || strings.ContainsRune(keep, r)) {
			b.WriteRune(r)
			continue
		}
		b.WriteString(url.PathEscape(string(r)))
	}
	return b.String()
}
