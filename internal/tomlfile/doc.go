// Package tomlfile is depot's shared ordered-TOML read/write layer.
//
// spec.md §6 requires several on-disk formats (Project.toml, Manifest.toml,
// Artifacts.toml, the usage logs) to be written with a fixed top-level key
// order and a stable, canonical layout so two writes of unchanged data are
// byte-identical (P6). Neither BurntSushi/toml nor the teacher's own
// vendored pelletier/go-toml controls top-level key order when encoding a
// plain struct, so this package builds the ordered document directly,
// escaping strings itself, and leans on BurntSushi/toml only for
// decode-side parsing.
package tomlfile

import (
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Doc is an ordered TOML document under construction.
type Doc struct {
	buf bytes.Buffer
}

// New returns an empty ordered document.
func New() *Doc { return &Doc{} }

// Bytes returns the document's current serialized form.
func (d *Doc) Bytes() []byte { return d.buf.Bytes() }

// String returns the document's current serialized form.
func (d *Doc) String() string { return d.buf.String() }

// KV writes "key = value" for a scalar value (string, bool, int64).
func (d *Doc) KV(key string, value interface{}) {
	fmt.Fprintf(&d.buf, "%s = %s\n", quoteKeyIfNeeded(key), encodeScalar(value))
}

// KVStringList writes "key = [a, b, c]".
func (d *Doc) KVStringList(key string, values []string) {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = encodeString(v)
	}
	fmt.Fprintf(&d.buf, "%s = [%s]\n", quoteKeyIfNeeded(key), strings.Join(parts, ", "))
}

// KVInlineMap writes "key = { a = 1, b = 2 }" with keys sorted ascending.
func (d *Doc) KVInlineMap(key string, m map[string]string) {
	if len(m) == 0 {
		fmt.Fprintf(&d.buf, "%s = {}\n", quoteKeyIfNeeded(key))
		return
	}
	keys := sortedKeys(m)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s = %s", quoteKeyIfNeeded(k), encodeString(m[k]))
	}
	fmt.Fprintf(&d.buf, "%s = { %s }\n", quoteKeyIfNeeded(key), strings.Join(parts, ", "))
}

// KVAny writes "key = value" for an arbitrary decoded TOML value (string,
// bool, int64, float64, []interface{}, or map[string]interface{}), used for
// the opaque passthrough of unrecognized keys (spec.md §3).
func (d *Doc) KVAny(key string, value interface{}) {
	fmt.Fprintf(&d.buf, "%s = %s\n", quoteKeyIfNeeded(key), encodeAny(value))
}

func encodeAny(v interface{}) string {
	switch t := v.(type) {
	case string:
		return encodeString(t)
	case bool:
		return strconv.FormatBool(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case []interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = encodeAny(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case []map[string]interface{}:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = encodeAny(item)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s = %s", quoteKeyIfNeeded(k), encodeAny(t[k]))
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	default:
		return encodeString(fmt.Sprint(t))
	}
}

// Blank writes a single blank line, used to separate top-level sections.
func (d *Doc) Blank() { d.buf.WriteByte('\n') }

// Comment writes a "# ..." comment line.
func (d *Doc) Comment(text string) {
	fmt.Fprintf(&d.buf, "# %s\n", text)
}

// TableHeader writes "[name]".
func (d *Doc) TableHeader(name string) {
	fmt.Fprintf(&d.buf, "[%s]\n", name)
}

// ArrayTableHeader writes "[[name]]".
func (d *Doc) ArrayTableHeader(name string) {
	fmt.Fprintf(&d.buf, "[[%s]]\n", name)
}

// Raw writes s verbatim, for content this package's callers have already
// formatted themselves (e.g. a nested sub-document).
func (d *Doc) Raw(s string) { d.buf.WriteString(s) }

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func encodeScalar(v interface{}) string {
	switch t := v.(type) {
	case string:
		return encodeString(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return encodeString(fmt.Sprint(t))
	}
}

func encodeString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// isBareKey reports whether s matches TOML's definition of an unquoted key.
func isBareKey(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r == '_' || r == '-' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return false
		}
	}
	return true
}

func quoteKeyIfNeeded(key string) string {
	if isBareKey(key) {
		return key
	}
	return encodeString(key)
}
