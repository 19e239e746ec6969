// Package nlog is hotmesh's leveled logger: timestamped, file:line tagged,
// with warnings and errors mirrored to stderr. Each line is written to the
// sink as soon as it is logged; nothing is buffered across calls.
package nlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

type severity int

const (
	sevInfo severity = iota
	sevWarn
	sevErr
)

const sevChar = "IWE"

var (
	mu           sync.Mutex
	out          io.Writer = os.Stderr
	alsoToStderr bool
)

// SetOutput redirects the primary log sink; stderr still gets Warn/Err
// lines unless out itself is stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	out = w
	mu.Unlock()
}

// AlsoToStderr forces every line (not just Warn/Err) to stderr as well,
// useful for tests and short-lived CLIs built on top of this package.
func AlsoToStderr(v bool) {
	mu.Lock()
	alsoToStderr = v
	mu.Unlock()
}

func log(sev severity, depth int, format string, args ...any) {
	line := sprintf(sev, depth+1, format, args...)

	mu.Lock()
	defer mu.Unlock()

	if sev >= sevWarn || alsoToStderr {
		if out != io.Writer(os.Stderr) {
			os.Stderr.WriteString(line)
		}
	}
	out.Write([]byte(line))
}

func sprintf(sev severity, depth int, format string, args ...any) string {
	var b strings.Builder
	b.WriteByte(sevChar[sev])
	b.WriteByte(' ')
	b.WriteString(time.Now().Format("15:04:05.000000"))
	b.WriteByte(' ')
	if _, fn, ln, ok := runtime.Caller(2 + depth); ok {
		if idx := strings.LastIndexByte(fn, filepath.Separator); idx >= 0 {
			fn = fn[idx+1:]
		}
		b.WriteString(fn)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(ln))
		b.WriteByte(' ')
	}
	if format == "" {
		fmt.Fprintln(&b, args...)
	} else {
		fmt.Fprintf(&b, format, args...)
		if !strings.HasSuffix(format, "\n") {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func Infoln(args ...any)                  { log(sevInfo, 0, "", args...) }
func Infof(format string, args ...any)    { log(sevInfo, 0, format, args...) }
func Warningln(args ...any)               { log(sevWarn, 0, "", args...) }
func Warningf(format string, args ...any) { log(sevWarn, 0, format, args...) }
func Errorln(args ...any)                 { log(sevErr, 0, "", args...) }
func Errorf(format string, args ...any)   { log(sevErr, 0, format, args...) }
