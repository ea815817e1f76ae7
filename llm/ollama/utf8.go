package ollama

import "unicode/utf8"

// runeBoundaryBuffer accumulates bytes and releases only complete UTF-8
// sequences. Tokenizers can emit partial multi-byte characters at chunk
// boundaries; holding the tail back keeps every emitted fragment valid.
type runeBoundaryBuffer struct {
	buf []byte
}

// Write appends text and returns the longest prefix ending on a rune
// boundary. The held-back tail is at most 3 bytes.
func (b *runeBoundaryBuffer) Write(text string) string {
	if text == "" && len(b.buf) == 0 {
		return ""
	}
	b.buf = append(b.buf, text...)

	valid := 0
	for i := 0; i < len(b.buf); {
		r, size := utf8.DecodeRune(b.buf[i:])
		if r == utf8.RuneError && size == 1 {
			if len(b.buf)-i < utf8.UTFMax {
				break // possibly incomplete, wait for more bytes
			}
			i++ // definitely invalid, pass it through
			valid = i
			continue
		}
		i += size
		valid = i
	}
	if valid == 0 {
		return ""
	}

	out := string(b.buf[:valid])
	b.buf = b.buf[valid:]
	return out
}

// Flush returns whatever remains buffered, complete or not.
func (b *runeBoundaryBuffer) Flush() string {
	if len(b.buf) == 0 {
		return ""
	}
	out := string(b.buf)
	b.buf = nil
	return out
}
