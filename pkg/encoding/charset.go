// Package encoding decodes legacy text found in binary file headers.
package encoding

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// DefaultCharset is assumed for header text that is not valid UTF-8.
const DefaultCharset = "windows-1252"

// ToUTF8 converts data in the named charset (any WHATWG label, e.g.
// "shift_jis", "euc-kr", "windows-1252") to a UTF-8 string. Data that is
// already valid UTF-8 is returned unchanged.
func ToUTF8(data []byte, charset string) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}
	if charset == "" {
		charset = DefaultCharset
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", errors.Wrapf(err, "unknown charset %q", charset)
	}
	result, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", errors.Wrapf(err, "decoding %s", charset)
	}
	return string(result), nil
}

// FromUTF8 converts a UTF-8 string to the named charset.
func FromUTF8(s string, charset string) ([]byte, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, errors.Wrapf(err, "unknown charset %q", charset)
	}
	result, _, err := transform.Bytes(enc.NewEncoder(), []byte(s))
	if err != nil {
		return nil, errors.Wrapf(err, "encoding %s", charset)
	}
	return result, nil
}

// TrimNullBytes removes trailing null bytes from a byte slice.
func TrimNullBytes(data []byte) []byte {
	return bytes.TrimRight(data, "\x00")
}

// FixedString converts a fixed-size, null-padded header field to UTF-8.
// Falls back to the raw bytes if the charset cannot decode them.
func FixedString(data []byte, charset string) string {
	if i := bytes.IndexByte(data, 0); i >= 0 {
		data = data[:i]
	}
	s, err := ToUTF8(data, charset)
	if err != nil {
		s = string(data)
	}
	return strings.TrimSpace(s)
}

// PadString encodes s and pads it with null bytes to size, truncating if longer.
func PadString(s string, size int, charset string) []byte {
	out := make([]byte, size)
	encoded, err := FromUTF8(s, charset)
	if err != nil {
		encoded = []byte(s)
	}
	copy(out, encoded)
	return out
}
