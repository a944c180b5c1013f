package condition

import (
	"regexp"
	"strings"
	"sync"

	"github.com/tidwall/gjson"
)

var indexPattern = regexp.MustCompile(`\[(\d+|\*)\]`)

// IsRoot reports whether path addresses the whole document.
func IsRoot(path string) bool {
	p := strings.TrimSpace(path)
	return p == "" || p == "$" || p == "."
}

// GJSONPath translates a $-rooted JSONPath subset (dotted keys, [n] indexes
// and [*] wildcards) into gjson syntax. Root paths translate to "".
func GJSONPath(path string) string {
	p := strings.TrimSpace(path)
	if IsRoot(p) {
		return ""
	}
	p = strings.TrimPrefix(p, "$")
	p = indexPattern.ReplaceAllStringFunc(p, func(m string) string {
		inner := m[1 : len(m)-1]
		if inner == "*" {
			return ".#"
		}
		return "." + inner
	})
	return strings.Trim(p, ".")
}

// extract returns the textual values at path inside doc. Documents that are
// not JSON are addressable only at the root, as raw text.
func extract(doc, path string) []string {
	if IsRoot(path) {
		if gjson.Valid(doc) {
			return []string{Text(gjson.Parse(doc))}
		}
		return []string{doc}
	}
	if !gjson.Valid(doc) {
		return nil
	}
	gpath := GJSONPath(path)
	res := gjson.Get(doc, gpath)
	if !res.Exists() {
		return nil
	}
	if strings.Contains(gpath, "#") && res.IsArray() {
		var out []string
		res.ForEach(func(_, v gjson.Result) bool {
			out = append(out, Text(v))
			return true
		})
		return out
	}
	return []string{Text(res)}
}

// Text renders a gjson value: strings unquoted, everything else as JSON.
func Text(r gjson.Result) string {
	if r.Type == gjson.String {
		return r.String()
	}
	return r.Raw
}

var (
	regexMu    sync.Mutex
	regexCache = map[string]*regexp.Regexp{}
)

// compile anchors expr so that it must match the whole value.
func compile(expr string) (*regexp.Regexp, error) {
	regexMu.Lock()
	defer regexMu.Unlock()
	if re, ok := regexCache[expr]; ok {
		return re, nil
	}
	re, err := regexp.Compile(`^(?:` + expr + `)$`)
	if err != nil {
		return nil, err
	}
	regexCache[expr] = re
	return re, nil
}

// CheckRegex reports whether expr is a valid condition regex.
func CheckRegex(expr string) error {
	_, err := compile(expr)
	return err
}
