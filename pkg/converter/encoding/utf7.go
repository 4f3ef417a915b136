package encoding

import (
	"errors"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/text/transform"
)

var errInvalidUTF7 = errors.New("invalid UTF-7 sequence")

// utf7Decoder is a transform.Transformer decoding RFC 2152 UTF-7 into UTF-8.
// Bytes outside 7-bit ASCII, unpaired surrogates, and non-zero padding bits
// in a shifted run are reported as errInvalidUTF7.
type utf7Decoder struct {
	shifted bool   // inside a "+...-" base64 run
	fresh   bool   // no base64 character seen since '+'
	bits    uint32 // pending base64 bits, low nbits are meaningful
	nbits   uint
	high    rune // pending high surrogate, 0 if none
}

// Reset implements transform.Transformer.
func (d *utf7Decoder) Reset() { *d = utf7Decoder{} }

// Transform implements transform.Transformer.
func (d *utf7Decoder) Transform(dst, src []byte, atEOF bool) (nDst, nSrc int, err error) {
	for nSrc < len(src) {
		c := src[nSrc]
		if c >= utf8.RuneSelf {
			return nDst, nSrc, errInvalidUTF7
		}

		if !d.shifted {
			if c == '+' {
				d.shifted, d.fresh = true, true
				d.bits, d.nbits = 0, 0
				nSrc++
				continue
			}
			if nDst >= len(dst) {
				return nDst, nSrc, transform.ErrShortDst
			}
			dst[nDst] = c
			nDst++
			nSrc++
			continue
		}

		v := base64Value(c)
		if v < 0 {
			if d.fresh && c == '-' {
				// "+-" is a literal plus sign.
				if nDst >= len(dst) {
					return nDst, nSrc, transform.ErrShortDst
				}
				dst[nDst] = '+'
				nDst++
				nSrc++
				d.shifted, d.fresh = false, false
				continue
			}
			if err := d.endShift(); err != nil {
				return nDst, nSrc, err
			}
			if c == '-' {
				nSrc++
			}
			// Any other terminator is reprocessed as a direct character.
			continue
		}

		bits := d.bits<<6 | uint32(v)
		nbits := d.nbits + 6
		if nbits >= 16 {
			nbits -= 16
			unit := rune(bits >> nbits & 0xFFFF)
			bits &= 1<<nbits - 1
			switch {
			case unit >= 0xD800 && unit < 0xDC00:
				if d.high != 0 {
					return nDst, nSrc, errInvalidUTF7
				}
				d.high = unit
			case unit >= 0xDC00 && unit < 0xE000:
				if d.high == 0 {
					return nDst, nSrc, errInvalidUTF7
				}
				r := utf16.DecodeRune(d.high, unit)
				if nDst+utf8.RuneLen(r) > len(dst) {
					return nDst, nSrc, transform.ErrShortDst
				}
				nDst += utf8.EncodeRune(dst[nDst:], r)
				d.high = 0
			default:
				if d.high != 0 {
					return nDst, nSrc, errInvalidUTF7
				}
				if nDst+utf8.RuneLen(unit) > len(dst) {
					return nDst, nSrc, transform.ErrShortDst
				}
				nDst += utf8.EncodeRune(dst[nDst:], unit)
			}
		}
		d.bits, d.nbits = bits, nbits
		d.fresh = false
		nSrc++
	}

	if atEOF && d.shifted {
		if err := d.endShift(); err != nil {
			return nDst, nSrc, err
		}
	}
	return nDst, nSrc, nil
}

// endShift closes a base64 run. Leftover bits must be zero padding.
func (d *utf7Decoder) endShift() error {
	if d.high != 0 || d.bits != 0 {
		return errInvalidUTF7
	}
	d.shifted, d.fresh = false, false
	d.nbits = 0
	return nil
}

func base64Value(c byte) int {
	switch {
	case c >= 'A' && c <= 'Z':
		return int(c - 'A')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 26
	case c >= '0' && c <= '9':
		return int(c-'0') + 52
	case c == '+':
		return 62
	case c == '/':
		return 63
	}
	return -1
}
