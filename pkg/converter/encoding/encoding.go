package encoding

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"golang.org/x/net/html/charset" // Resolves configurable default code page names
	xenc "golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"
)

// Labels reported for each recognized source encoding.
const (
	LabelUTF8    = "UTF-8"
	LabelUnicode = "Unicode" // UTF-16 big-endian
	LabelUTF32   = "UTF-32"  // UTF-32 big-endian
	LabelUTF7    = "UTF-7"
	LabelDefault = "Default/ANSI"
)

// DefaultCharset is the code page used for files without a recognized signature
// when no other default is configured.
const DefaultCharset = "windows-1252"

// byteOrderMark is U+FEFF, written in the target encoding when a BOM is requested.
const byteOrderMark = '\uFEFF'

var (
	// ErrUnknownEncoding is returned when a configured encoding name cannot be resolved.
	ErrUnknownEncoding = errors.New("unknown encoding")
	// ErrUnsupportedTarget is returned when an encoding can be read but not written.
	ErrUnsupportedTarget = errors.New("encoding not supported as conversion target")
)

// Encoding is one member of the fixed set of encodings the tool recognizes.
// The zero value is not usable; obtain values from the package constructors.
type Encoding struct {
	// Name is the human-readable label reported on file records.
	Name string
	// Charset is the canonical IANA-style name of the underlying code page.
	Charset string

	codec     xenc.Encoding           // nil when decoding is handled by newDecoder
	validate  func(raw []byte) error  // optional strict pre-check before decoding
	newDecode func() transform.Transformer
	encodable bool
}

// UTF8 returns the UTF-8 encoding. Decoding strips a leading UTF-8 BOM.
func UTF8() Encoding {
	return Encoding{
		Name:      LabelUTF8,
		Charset:   "utf-8",
		codec:     unicode.UTF8BOM,
		validate:  validateUTF8,
		encodable: true,
	}
}

// UTF16BE returns big-endian UTF-16, reported as "Unicode".
func UTF16BE() Encoding {
	return Encoding{
		Name:      LabelUnicode,
		Charset:   "utf-16be",
		codec:     unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
		validate:  validateUTF16BE,
		encodable: true,
	}
}

// UTF32BE returns big-endian UTF-32.
func UTF32BE() Encoding {
	return Encoding{
		Name:      LabelUTF32,
		Charset:   "utf-32be",
		codec:     utf32.UTF32(utf32.BigEndian, utf32.IgnoreBOM),
		validate:  validateUTF32BE,
		encodable: true,
	}
}

// UTF7 returns UTF-7 (RFC 2152). It is supported as a source encoding only.
func UTF7() Encoding {
	return Encoding{
		Name:      LabelUTF7,
		Charset:   "utf-7",
		newDecode: func() transform.Transformer { return &utf7Decoder{} },
	}
}

// Default returns the fallback code page labelled "Default/ANSI". An empty name
// selects windows-1252; any other name is resolved with charset.Lookup.
func Default(name string) (Encoding, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Encoding{Name: LabelDefault, Charset: DefaultCharset, codec: charmap.Windows1252, encodable: true}, nil
	}
	codec, canonical := charset.Lookup(name)
	if codec == nil {
		return Encoding{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, name)
	}
	return Encoding{Name: LabelDefault, Charset: canonical, codec: codec, encodable: true}, nil
}

// ByLabel resolves a target or source encoding by its label. Matching is
// case-insensitive and accepts the common charset aliases of each label.
// Default/ANSI resolves to fallback.
func ByLabel(label string, fallback Encoding) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "", "utf-8", "utf8":
		return UTF8(), nil
	case "unicode", "utf-16", "utf-16be", "utf16":
		return UTF16BE(), nil
	case "utf-32", "utf-32be", "utf32":
		return UTF32BE(), nil
	case "utf-7", "utf7":
		return UTF7(), nil
	case "default/ansi", "default", "ansi":
		return fallback, nil
	}
	return Encoding{}, fmt.Errorf("%w: %q", ErrUnknownEncoding, label)
}

// CanEncode reports whether text can be written in this encoding.
func (e Encoding) CanEncode() bool { return e.encodable }

// String implements fmt.Stringer.
func (e Encoding) String() string { return e.Name }

// Decode converts raw bytes in this encoding to a UTF-8 string. A leading
// U+FEFF in the decoded text is removed.
func (e Encoding) Decode(raw []byte) (string, error) {
	if e.validate != nil {
		if err := e.validate(raw); err != nil {
			return "", err
		}
	}
	var t transform.Transformer
	switch {
	case e.newDecode != nil:
		t = e.newDecode()
	case e.codec != nil:
		t = e.codec.NewDecoder()
	default:
		return "", fmt.Errorf("%w: %s has no decoder", ErrUnknownEncoding, e.Name)
	}
	text, _, err := transform.String(t, string(raw))
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(text, string(byteOrderMark)), nil
}

// Encode converts UTF-8 text to this encoding. When withBOM is set the output
// starts with U+FEFF encoded in this encoding; single-byte code pages have no
// byte-order mark and ignore withBOM.
func (e Encoding) Encode(text string, withBOM bool) ([]byte, error) {
	if !e.encodable || e.codec == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedTarget, e.Name)
	}
	if withBOM && e.Name != LabelDefault {
		text = string(byteOrderMark) + text
	}
	if e.Name == LabelUTF8 {
		// unicode.UTF8BOM's encoder would add its own mark.
		return []byte(text), nil
	}
	out, _, err := transform.Bytes(e.codec.NewEncoder(), []byte(text))
	if err != nil {
		return nil, err
	}
	return out, nil
}

// validateUTF8 rejects content that is not well-formed UTF-8.
func validateUTF8(raw []byte) error {
	if !utf8.Valid(raw) {
		return errors.New("content is not valid UTF-8")
	}
	return nil
}

// validateUnitSize rejects content whose length is not a whole number of code units.
func validateUnitSize(raw []byte, size int) error {
	if len(raw)%size != 0 {
		return fmt.Errorf("content length %d is not a multiple of the %d-byte code unit", len(raw), size)
	}
	return nil
}

// validateUTF16BE rejects odd lengths and unpaired surrogates, which the
// x/text decoder would otherwise replace with U+FFFD.
func validateUTF16BE(raw []byte) error {
	if err := validateUnitSize(raw, 2); err != nil {
		return err
	}
	for i := 0; i < len(raw); i += 2 {
		u := rune(raw[i])<<8 | rune(raw[i+1])
		switch {
		case utf16.IsSurrogate(u) && u < 0xDC00:
			if i+3 < len(raw) {
				next := rune(raw[i+2])<<8 | rune(raw[i+3])
				if next >= 0xDC00 && next <= 0xDFFF {
					i += 2
					continue
				}
			}
			return fmt.Errorf("unpaired high surrogate %04X at offset %d", u, i)
		case utf16.IsSurrogate(u):
			return fmt.Errorf("unpaired low surrogate %04X at offset %d", u, i)
		}
	}
	return nil
}

// validateUTF32BE rejects partial units, surrogates and values above U+10FFFF.
func validateUTF32BE(raw []byte) error {
	if err := validateUnitSize(raw, 4); err != nil {
		return err
	}
	for i := 0; i < len(raw); i += 4 {
		u := uint32(raw[i])<<24 | uint32(raw[i+1])<<16 | uint32(raw[i+2])<<8 | uint32(raw[i+3])
		if u > utf8.MaxRune || (u >= 0xD800 && u <= 0xDFFF) {
			return fmt.Errorf("invalid code point %08X at offset %d", u, i)
		}
	}
	return nil
}
