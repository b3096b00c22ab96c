package xcodeproj

import (
	"bytes"
	"strconv"
	"strings"
	"unicode/utf8"
)

// The OpenStep generator writes runes above 0x7F as \ooo or \Uxxxx escapes.
// Xcode reads octal escapes as NeXTSTEP bytes and writes raw UTF-8 itself,
// so before encoding every non-ASCII rune is replaced by an ASCII marker,
// and unmaskRunes turns the markers back into UTF-8 afterwards. A literal
// markerByte in the input is masked too, so every marker in the output is
// one of ours.
const markerByte = 0x01

func maskRunes(v interface{}) interface{} {
	switch v := v.(type) {
	case string:
		return maskString(v)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for k, item := range v {
			out[maskString(k)] = maskRunes(item)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = maskRunes(item)
		}
		return out
	case []string:
		out := make([]string, len(v))
		for i, item := range v {
			out[i] = maskString(item)
		}
		return out
	default:
		return v
	}
}

func maskString(s string) string {
	if !needsMask(s) {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if r < utf8.RuneSelf && r != markerByte {
			b.WriteRune(r)
			continue
		}
		b.WriteByte(markerByte)
		b.WriteString(strconv.FormatInt(int64(r), 16))
		b.WriteByte(markerByte)
	}
	return b.String()
}

func needsMask(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf || s[i] == markerByte {
			return true
		}
	}
	return false
}

func unmaskRunes(data []byte) []byte {
	if bytes.IndexByte(data, markerByte) < 0 {
		return data
	}
	out := make([]byte, 0, len(data))
	for {
		i := bytes.IndexByte(data, markerByte)
		if i < 0 {
			return append(out, data...)
		}
		out = append(out, data[:i]...)
		rest := data[i+1:]
		j := bytes.IndexByte(rest, markerByte)
		if j < 0 {
			return append(out, data[i:]...)
		}
		r, err := strconv.ParseInt(string(rest[:j]), 16, 32)
		if err != nil {
			out = append(out, data[i:i+1]...)
			data = rest
			continue
		}
		out = utf8.AppendRune(out, rune(r))
		data = rest[j+1:]
	}
}
