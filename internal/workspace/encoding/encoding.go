// Package encoding decodes a source file's bytes to the UTF-8 text the
// parser contract (internal/parser.Tree.Text) expects, honoring a
// workspace's configured `encoding` setting (§4.10) and stripping a
// leading byte-order mark regardless of which encoding was configured,
// since editors routinely save a BOM even for UTF-8.
package encoding

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

// named maps the small set of encoding names §6/§4.10 configuration
// accepts to a golang.org/x/text decoder. "utf-8" has no entry: it is
// the zero-conversion default, handled separately in Decode.
var named = map[string]encoding.Encoding{
	"utf-16":    unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":  unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":  unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
	"gbk":       simplifiedchinese.GBK,
	"gb18030":   simplifiedchinese.GB18030,
	"gb2312":    simplifiedchinese.HZGB2312,
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Decode converts raw file bytes to UTF-8 text using name (a
// configured `workspace.encoding` value, case-insensitively; "" or
// "utf-8" take the fast path). An unrecognized name is a config error
// per §7 ("invalid configuration value: fall back to default, log a
// warning") — the caller is expected to treat a non-nil error as that
// same fallback-and-warn case, substituting "utf-8".
func Decode(raw []byte, name string) (string, error) {
	name = strings.ToLower(name)
	switch name {
	case "", "utf-8":
		return string(stripUTF8BOM(raw)), nil
	}
	enc, ok := named[name]
	if !ok {
		return "", fmt.Errorf("encoding: unrecognized name %q", name)
	}
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("encoding: decode as %q: %w", name, err)
	}
	return string(stripUTF8BOM(out)), nil
}

func stripUTF8BOM(b []byte) []byte {
	if len(b) >= 3 && b[0] == utf8BOM[0] && b[1] == utf8BOM[1] && b[2] == utf8BOM[2] {
		return b[3:]
	}
	return b
}
