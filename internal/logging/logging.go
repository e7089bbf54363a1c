package logger

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// Logger writes leveled messages to Out, or to stderr when Out is nil.
// Stdout is left for command output.
type Logger struct {
	Verbose bool
	Debug   bool
	Out     io.Writer
}

func (l Logger) out() io.Writer {
	if l.Out != nil {
		return l.Out
	}
	return os.Stderr
}

func (l Logger) Infof(msg string, args ...any) {
	if l.Verbose || l.Debug {
		fmt.Fprintf(l.out(), color.GreenString("[info] ")+msg+"\n", args...)
	}
}

func (l Logger) Debugf(msg string, args ...any) {
	if l.Debug {
		fmt.Fprintf(l.out(), color.CyanString("[debug] ")+msg+"\n", args...)
	}
}

// Warnf only prints in verbose or debug mode.
func (l Logger) Warnf(msg string, args ...any) {
	if l.Verbose || l.Debug {
		fmt.Fprintf(l.out(), color.YellowString("[warn] ")+msg+"\n", args...)
	}
}

// WarnfAlways prints regardless of verbosity, for warnings the user must see.
func (l Logger) WarnfAlways(msg string, args ...any) {
	fmt.Fprintf(l.out(), color.YellowString("[warn] ")+msg+"\n", args...)
}

func (l Logger) Errorf(msg string, args ...any) {
	fmt.Fprintf(l.out(), color.RedString("[error] ")+msg+"\n", args...)
}

// ErrorfAndReturn logs in debug mode and returns the formatted error.
func (l Logger) ErrorfAndReturn(msg string, args ...any) error {
	err := fmt.Errorf(msg, args...)
	if l.Debug {
		fmt.Fprintf(l.out(), color.RedString("[error] ")+"%v\n", err)
	}
	return err
}
