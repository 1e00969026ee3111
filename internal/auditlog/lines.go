package auditlog

import (
	"bufio"
	"bytes"
	"io"
)

// scanLines splits on "\n", "\r\n" or a lone "\r" and drops the terminator.
// Lines longer than maxLine bytes fail with bufio.ErrTooLong.
func scanLines(maxLine int) bufio.SplitFunc {
	return func(data []byte, atEOF bool) (int, []byte, error) {
		if atEOF && len(data) == 0 {
			return 0, nil, nil
		}
		if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
			if i > maxLine {
				return 0, nil, bufio.ErrTooLong
			}
			if data[i] == '\n' {
				return i + 1, data[:i], nil
			}
			switch {
			case i+1 < len(data) && data[i+1] == '\n':
				return i + 2, data[:i], nil
			case i+1 < len(data) || atEOF:
				return i + 1, data[:i], nil
			}
			// "\r" is the last buffered byte; need one more to rule out "\r\n".
			return 0, nil, nil
		}
		if len(data) > maxLine {
			return 0, nil, bufio.ErrTooLong
		}
		if atEOF {
			return len(data), data, nil
		}
		return 0, nil, nil
	}
}

// newLineScanner returns a scanner over body that accepts lines of up to
// maxLine bytes plus their terminator.
func newLineScanner(body io.Reader, maxLine int) *bufio.Scanner {
	sc := bufio.NewScanner(body)
	// room for the longest line and a "\r\n"
	limit := maxLine + 2
	initial := 64 * 1024
	if limit < initial {
		initial = limit
	}
	sc.Buffer(make([]byte, 0, initial), limit)
	sc.Split(scanLines(maxLine))
	return sc
}
