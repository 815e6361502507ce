package util

import (
	"bytes"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// 非 UTF-8 回显的候选编码，按顺序尝试
var legacyEncodings = []encoding.Encoding{
	simplifiedchinese.GB18030,
	charmap.Windows1252,
	charmap.ISO8859_1,
}

// DecodeOutput 将远端回显转为 UTF-8 字符串。
// 已是合法 UTF-8 时原样返回（去掉 BOM），否则依次尝试常见旧编码，全部失败则按字节直转。
func DecodeOutput(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	if utf8.Valid(b) {
		return string(bytes.TrimPrefix(b, utf8BOM))
	}
	for _, enc := range legacyEncodings {
		if s, ok := decodeWith(enc, b); ok {
			return s
		}
	}
	return string(b)
}

// NormalizeNewlines 统一换行符为 \n
func NormalizeNewlines(s string) string {
	if !strings.Contains(s, "\r") {
		return s
	}
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func decodeWith(enc encoding.Encoding, b []byte) (string, bool) {
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), enc.NewDecoder()))
	if err != nil || !utf8.Valid(decoded) {
		return "", false
	}
	return string(decoded), true
}
