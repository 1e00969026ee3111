package auditlog

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, input string, maxLine int) ([]string, error) {
	t.Helper()
	// 1-byte reads make every terminator land on a buffer boundary at least once
	sc := newLineScanner(&oneByteReader{r: strings.NewReader(input)}, maxLine)
	var got []string
	for sc.Scan() {
		got = append(got, sc.Text())
	}
	return got, sc.Err()
}

type oneByteReader struct{ r *strings.Reader }

func (o *oneByteReader) Read(p []byte) (int, error) {
	if len(p) > 1 {
		p = p[:1]
	}
	return o.r.Read(p)
}

func TestScanLines_Terminators(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "lf", input: "h\na\nb\n", want: []string{"h", "a", "b"}},
		{name: "crlf", input: "h\r\na\r\n", want: []string{"h", "a"}},
		{name: "lone cr", input: "h\na\rb\n", want: []string{"h", "a", "b"}},
		{name: "trailing cr", input: "h\na\r", want: []string{"h", "a"}},
		{name: "cr then empty line", input: "a\r\rb", want: []string{"a", "", "b"}},
		{name: "no final terminator", input: "h\na", want: []string{"h", "a"}},
		{name: "empty", input: "", want: nil},
		{name: "blank lines kept", input: "h\n\na\n", want: []string{"h", "", "a"}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := scanAll(t, tt.input, 64)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanLines_LimitIsInclusive(t *testing.T) {
	t.Parallel()

	exact := strings.Repeat("x", 16)
	for _, term := range []string{"\n", "\r\n", "\r", ""} {
		got, err := scanAll(t, "h\n"+exact+term, 16)
		require.NoError(t, err, "terminator %q", term)
		assert.Equal(t, []string{"h", exact}, got)
	}

	for _, term := range []string{"\n", "\r\n", ""} {
		_, err := scanAll(t, "h\n"+exact+"x"+term, 16)
		assert.ErrorIs(t, err, bufio.ErrTooLong, "terminator %q", term)
	}
}
