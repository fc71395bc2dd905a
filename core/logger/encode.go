package logger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// encoder turns a finished record into a line without the trailing newline.
// Keys listed in the configured order come first, the rest alphabetically.
type encoder interface {
	encode(rec record) ([]byte, error)
}

func newEncoder(format logFormat, order []string) encoder {
	if format == formatJSON {
		return jsonEncoder{order: order}
	}
	return kvEncoder{order: order}
}

func sortedKeys(rec record, order []string) []string {
	keys := make([]string, 0, len(rec))
	for _, k := range order {
		if _, ok := rec[k]; ok && !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	fixed := len(keys)
	for k := range rec {
		if !slices.Contains(keys[:fixed], k) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys[fixed:])
	return keys
}

type jsonEncoder struct{ order []string }

func (e jsonEncoder) encode(rec record) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range sortedKeys(rec, e.order) {
		val, err := json.Marshal(rec[k])
		if err != nil {
			return nil, fmt.Errorf("logger: encode %s: %w", k, err)
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(k))
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// kvEncoder writes key=value pairs, quoting values with spaces, quotes,
// equals signs or control characters.
type kvEncoder struct{ order []string }

func (e kvEncoder) encode(rec record) ([]byte, error) {
	var b strings.Builder
	for i, k := range sortedKeys(rec, e.order) {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(k)
		b.WriteByte('=')
		s := fmt.Sprint(rec[k])
		if strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
			s = strconv.Quote(s)
		}
		b.WriteString(s)
	}
	return []byte(b.String()), nil
}
