package analyzer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

// directivePatterns mirrors the widths accepted by C-library strptime for the
// directives used in date candidates
var directivePatterns = map[byte]string{
	'Y': `(\d\d\d\d)`,
	'y': `(\d\d)`,
	'm': `(1[0-2]|0[1-9]|[1-9])`,
	'd': `(3[01]|[12]\d|0[1-9]|[1-9]| [1-9])`,
	'H': `(2[0-3]|[0-1]\d|\d)`,
	'M': `([0-5]\d|\d)`,
	'S': `(6[0-1]|[0-5]\d|\d)`,
}

type compiledFormat struct {
	re         *regexp.Regexp
	directives []byte
}

var formatCache sync.Map

func compileFormat(format string) (*compiledFormat, error) {
	if cf, ok := formatCache.Load(format); ok {
		return cf.(*compiledFormat), nil
	}

	var (
		sb         strings.Builder
		directives []byte
	)
	sb.WriteString("^")
	for i := 0; i < len(format); i++ {
		c := format[i]
		switch {
		case c == '%':
			if i+1 >= len(format) {
				return nil, fmt.Errorf("format %q ends with a bare %%", format)
			}
			i++
			d := format[i]
			if d == '%' {
				sb.WriteString("%")
				continue
			}
			pattern, ok := directivePatterns[d]
			if !ok {
				return nil, fmt.Errorf("format %q: unsupported directive %%%c", format, d)
			}
			sb.WriteString(pattern)
			directives = append(directives, d)
		case c == ' ' || c == '\t':
			sb.WriteString(`\s+`)
		default:
			sb.WriteString(regexp.QuoteMeta(string(c)))
		}
	}
	sb.WriteString("$")

	re, err := regexp.Compile(sb.String())
	if err != nil {
		return nil, err
	}

	cf := &compiledFormat{re: re, directives: directives}
	formatCache.Store(format, cf)
	return cf, nil
}

// Strptime parses value against a strftime-style format. Missing fields
// default to 1900-01-01 00:00:00 and impossible dates (e.g. 31 February) are
// rejected.
func Strptime(value, format string) (time.Time, bool) {
	cf, err := compileFormat(format)
	if err != nil {
		return time.Time{}, false
	}

	m := cf.re.FindStringSubmatch(value)
	if m == nil {
		return time.Time{}, false
	}

	year, month, day := 1900, 1, 1
	var hour, minute, second int

	for i, d := range cf.directives {
		n, err := strconv.Atoi(strings.TrimSpace(m[i+1]))
		if err != nil {
			return time.Time{}, false
		}
		switch d {
		case 'Y':
			year = n
		case 'y':
			if n < 69 {
				year = 2000 + n
			} else {
				year = 1900 + n
			}
		case 'm':
			month = n
		case 'd':
			day = n
		case 'H':
			hour = n
		case 'M':
			minute = n
		case 'S':
			second = n
		}
	}

	if year < 1 || second > 59 {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	// time.Date normalises overflow, so a changed day means the date did not exist
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}

	return t, true
}

// Strftime formats t with a strftime-style format using the directives
// understood by Strptime
func Strftime(t time.Time, format string) string {
	var sb strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 >= len(format) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case 'Y':
			fmt.Fprintf(&sb, "%04d", t.Year())
		case 'y':
			fmt.Fprintf(&sb, "%02d", t.Year()%100)
		case 'm':
			fmt.Fprintf(&sb, "%02d", int(t.Month()))
		case 'd':
			fmt.Fprintf(&sb, "%02d", t.Day())
		case 'H':
			fmt.Fprintf(&sb, "%02d", t.Hour())
		case 'M':
			fmt.Fprintf(&sb, "%02d", t.Minute())
		case 'S':
			fmt.Fprintf(&sb, "%02d", t.Second())
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}
	return sb.String()
}
