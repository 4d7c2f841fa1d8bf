package core

// streaming.go wraps input readers so the CSV parser sees clean UTF-8:
//
//   - bomSkippingReader drops a leading UTF-8 byte order mark
//   - utf8Sanitizer replaces invalid byte sequences with '?'
//   - CountingReader tracks bytes read and bytes replaced for the run summary
//
// WrapInput applies all three in that order.

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type bomSkippingReader struct {
	br      *bufio.Reader
	checked bool
}

func newBOMSkippingReader(r io.Reader) io.Reader {
	return &bomSkippingReader{br: bufio.NewReader(r)}
}

func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true
		head, err := r.br.Peek(len(utf8BOM))
		if bytes.Equal(head, utf8BOM) {
			r.br.Discard(len(utf8BOM))
		} else if err != nil && err != io.EOF {
			return 0, err
		}
	}
	return r.br.Read(p)
}

// utf8Sanitizer decodes rune by rune and emits '?' for every byte that does
// not start a valid UTF-8 sequence.
type utf8Sanitizer struct {
	br       *bufio.Reader
	pending  []byte
	replaced int64
}

func newUTF8Sanitizer(r io.Reader) *utf8Sanitizer {
	return &utf8Sanitizer{br: bufio.NewReader(r)}
}

func (s *utf8Sanitizer) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(s.pending) > 0 {
			c := copy(p[n:], s.pending)
			s.pending = s.pending[c:]
			n += c
			continue
		}

		r, size, err := s.br.ReadRune()
		if err != nil {
			if n > 0 {
				return n, nil
			}
			return 0, err
		}
		if r == utf8.RuneError && size == 1 {
			p[n] = '?'
			n++
			s.replaced++
			continue
		}

		var buf [utf8.UTFMax]byte
		k := utf8.EncodeRune(buf[:], r)
		c := copy(p[n:], buf[:k])
		n += c
		if c < k {
			s.pending = append(s.pending[:0], buf[c:k]...)
		}
	}
	return n, nil
}

// CountingReader counts the bytes delivered by the wrapped reader.
type CountingReader struct {
	r         io.Reader
	sanitizer *utf8Sanitizer
	BytesRead int64
}

// ReplacedBytes returns how many invalid UTF-8 bytes were replaced with '?'
// so far. Always zero unless the reader came from WrapInput.
func (c *CountingReader) ReplacedBytes() int64 {
	if c.sanitizer == nil {
		return 0
	}
	return c.sanitizer.replaced
}

// NewCountingReader wraps r.
func NewCountingReader(r io.Reader) *CountingReader {
	return &CountingReader{r: r}
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.BytesRead += int64(n)
	return n, err
}

// WrapInput strips a BOM, sanitizes UTF-8 and counts the bytes delivered.
func WrapInput(r io.Reader) *CountingReader {
	s := newUTF8Sanitizer(newBOMSkippingReader(r))
	return &CountingReader{r: s, sanitizer: s}
}
