package repl

import (
	"errors"
	"strconv"
	"strings"
)

// ErrUnbalancedQuotes is returned for a line with an unterminated quote.
var ErrUnbalancedQuotes = errors.New("invalid argument(s): unbalanced quotes")

// Tokenize splits line into arguments. Double-quoted arguments accept
// \n, \r, \t, \", \\ and \xHH escapes; single-quoted arguments are literal
// except for \'. A closing quote must be followed by a space or the end
// of the line.
func Tokenize(line string) ([]string, error) {
	var args []string
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i >= len(line) {
			return args, nil
		}

		var (
			cur strings.Builder
			err error
		)
		switch line[i] {
		case '"':
			i, err = readDoubleQuoted(line, i+1, &cur)
		case '\'':
			i, err = readSingleQuoted(line, i+1, &cur)
		default:
			for i < len(line) && !isSpace(line[i]) {
				cur.WriteByte(line[i])
				i++
			}
		}
		if err != nil {
			return nil, err
		}
		args = append(args, cur.String())
	}
}

func readDoubleQuoted(line string, i int, out *strings.Builder) (int, error) {
	for i < len(line) {
		c := line[i]
		switch {
		case c == '\\' && i+3 < len(line) && line[i+1] == 'x' && isHex(line[i+2]) && isHex(line[i+3]):
			b, _ := strconv.ParseUint(line[i+2:i+4], 16, 8)
			out.WriteByte(byte(b))
			i += 4
		case c == '\\' && i+1 < len(line):
			switch e := line[i+1]; e {
			case 'n':
				out.WriteByte('\n')
			case 'r':
				out.WriteByte('\r')
			case 't':
				out.WriteByte('\t')
			case 'b':
				out.WriteByte('\b')
			case 'a':
				out.WriteByte('\a')
			default:
				out.WriteByte(e)
			}
			i += 2
		case c == '"':
			return closeQuote(line, i+1)
		default:
			out.WriteByte(c)
			i++
		}
	}
	return 0, ErrUnbalancedQuotes
}

func readSingleQuoted(line string, i int, out *strings.Builder) (int, error) {
	for i < len(line) {
		c := line[i]
		switch {
		case c == '\\' && i+1 < len(line) && line[i+1] == '\'':
			out.WriteByte('\'')
			i += 2
		case c == '\'':
			return closeQuote(line, i+1)
		default:
			out.WriteByte(c)
			i++
		}
	}
	return 0, ErrUnbalancedQuotes
}

func closeQuote(line string, i int) (int, error) {
	if i < len(line) && !isSpace(line[i]) {
		return 0, ErrUnbalancedQuotes
	}
	return i, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
