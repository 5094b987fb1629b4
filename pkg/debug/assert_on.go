//go:build debug
// +build debug

package debug

import (
	"fmt"
	"io"
	"os"
)

// Assert will panic with msg if cond is false.
//
// msg must be a string, func() string or fmt.Stringer.
func Assert(cond bool, msg interface{}) {
	if !cond {
		panic(getStringValue(msg))
	}
}

func getStringValue(msg interface{}) string {
	switch m := msg.(type) {
	case string:
		return m
	case func() string:
		return m()
	case fmt.Stringer:
		return m.String()
	default:
		fmt.Fprintf(os.Stderr, "unsupported msg type %T\n", msg)
		return fmt.Sprintf("%v", msg)
	}
}

func Fprintf(w io.Writer, format string, a ...interface{}) {
	fmt.Fprintf(w, format, a...)
}

func Fprint(w io.Writer, s string) {
	fmt.Fprint(w, s)
}
