package storage

import (
	"bytes"
	"fmt"
	"strconv"
	"unicode/utf16"
	"unicode/utf8"
)

// unescapeStrings 把字符串里的 \uXXXX 和 \/ 还原为字符本身
//
// 输入必须是合法的JSON。引号、反斜杠和控制字符仍然转义，
// 孤立的代理项保留原始写法。
func unescapeStrings(b []byte) []byte {
	if bytes.IndexByte(b, '\\') < 0 {
		return b
	}

	out := make([]byte, 0, len(b))
	inString := false
	for i := 0; i < len(b); i++ {
		c := b[i]
		if !inString {
			if c == '"' {
				inString = true
			}
			out = append(out, c)
			continue
		}

		switch c {
		case '"':
			inString = false
			out = append(out, c)
		case '\\':
			switch b[i+1] {
			case 'u':
				r, n := decodeEscape(b[i:])
				if n == 0 {
					out = append(out, b[i:i+6]...)
					i += 5
					continue
				}
				out = appendEscaped(out, r)
				i += n - 1
			case '/':
				out = append(out, '/')
				i++
			default:
				out = append(out, c, b[i+1])
				i++
			}
		default:
			out = append(out, c)
		}
	}
	return out
}

// decodeEscape 解析以 \uXXXX 开头的转义，返回字符和消耗的字节数，0表示孤立代理项
func decodeEscape(b []byte) (rune, int) {
	r1 := hex4(b[2:6])
	if !utf16.IsSurrogate(r1) {
		return r1, 6
	}
	if len(b) < 12 || b[6] != '\\' || b[7] != 'u' {
		return 0, 0
	}
	r := utf16.DecodeRune(r1, hex4(b[8:12]))
	if r == utf8.RuneError {
		return 0, 0
	}
	return r, 12
}

func hex4(b []byte) rune {
	v, err := strconv.ParseUint(string(b), 16, 32)
	if err != nil {
		return utf8.RuneError
	}
	return rune(v)
}

func appendEscaped(out []byte, r rune) []byte {
	switch r {
	case '"':
		return append(out, '\\', '"')
	case '\\':
		return append(out, '\\', '\\')
	case '\b':
		return append(out, '\\', 'b')
	case '\f':
		return append(out, '\\', 'f')
	case '\n':
		return append(out, '\\', 'n')
	case '\r':
		return append(out, '\\', 'r')
	case '\t':
		return append(out, '\\', 't')
	}
	if r < 0x20 {
		return append(out, fmt.Sprintf(`\u%04x`, r)...)
	}
	return utf8.AppendRune(out, r)
}
