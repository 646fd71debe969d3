package stream

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Decoder decodes UTF-8 text that arrives in pieces. Bytes of a multi-byte
// sequence that is cut off at the end of one piece are held back until the
// next call. Ill-formed input is replaced with U+FFFD.
type Decoder struct {
	t     transform.Transformer
	carry []byte
}

func NewDecoder() *Decoder {
	return &Decoder{
		t: unicode.UTF8.NewDecoder(),
	}
}

// Decode returns the text of p, plus any bytes held back from the previous
// call. When final is true, nothing is held back.
func (d *Decoder) Decode(p []byte, final bool) (string, error) {
	src := make([]byte, 0, len(d.carry)+len(p))
	src = append(src, d.carry...)
	src = append(src, p...)
	d.carry = nil

	// Each input byte expands to at most 3 bytes (U+FFFD).
	dst := make([]byte, 3*len(src)+utf8.UTFMax)
	var out []byte
	for {
		nDst, nSrc, err := d.t.Transform(dst, src, final)
		out = append(out, dst[:nDst]...)
		src = src[nSrc:]
		switch {
		case err == nil:
			return string(out), nil
		case errors.Is(err, transform.ErrShortDst):
			continue
		case errors.Is(err, transform.ErrShortSrc):
			d.carry = append(d.carry, src...)
			return string(out), nil
		default:
			return string(out), err
		}
	}
}

// Pending returns true if bytes are held back waiting for the rest of a
// sequence.
func (d *Decoder) Pending() bool {
	return len(d.carry) > 0
}
