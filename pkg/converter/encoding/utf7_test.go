package encoding

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/transform"
)

func TestUTF7Decoder(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain ascii", "Hello, world", "Hello, world"},
		{"literal plus", "1 +- 1 = 2", "1 + 1 = 2"},
		{"smiley with dash terminator", "Hi Mom -+Jjo--!", "Hi Mom -☺-!"},
		{"implicit terminator", "A+ImIDkQ.", "A≢Α."},
		{"cjk", "+ZeVnLIqe-", "日本語"},
		{"surrogate pair", "+2D3eAA-", "\U0001F600"},
		{"shift open at eof", "x+Jjo", "x☺"},
		{"byte order mark", "+/v8-abc", "\ufeffabc"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, _, err := transform.String(&utf7Decoder{}, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUTF7Decoder_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"eight bit byte", "caf\xe9"},
		{"non-zero padding bits", "+AB-"},
		{"lone low surrogate", "+3AA-"},
		{"high surrogate without low", "+2D0-"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := transform.String(&utf7Decoder{}, tc.input)
			assert.ErrorIs(t, err, errInvalidUTF7)
		})
	}
}

func TestUTF7Decoder_ByteAtATime(t *testing.T) {
	r := transform.NewReader(iotest.OneByteReader(strings.NewReader("Hi +2D3eAA- and +ZeVnLIqe-!")), &utf7Decoder{})
	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "Hi \U0001F600 and 日本語!", string(got))
}

func TestUTF7Decoder_Reset(t *testing.T) {
	d := &utf7Decoder{}
	_, _, err := d.Transform(make([]byte, 16), []byte("+Jj"), false)
	require.NoError(t, err)
	assert.True(t, d.shifted)

	d.Reset()
	assert.Equal(t, utf7Decoder{}, *d)
}
