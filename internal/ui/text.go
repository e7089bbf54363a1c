package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Formatter applies semantic formatting to text.
type Formatter struct {
	color  *color.Color
	prefix string
	suffix string
}

// Sprint formats the arguments and returns the resulting string.
func (f Formatter) Sprint(a ...interface{}) string {
	return f.render(fmt.Sprint(a...))
}

// Sprintf formats according to a format specifier and returns the resulting string.
func (f Formatter) Sprintf(format string, a ...interface{}) string {
	return f.render(fmt.Sprintf(format, a...))
}

func (f Formatter) render(text string) string {
	if noColor() {
		return f.prefix + text + f.suffix
	}
	return f.color.Sprint(text)
}

// EnsureNewline ensures the string ends with a newline character.
func EnsureNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}

// noColor returns true if color output should be disabled.
func noColor() bool {
	// https://no-color.org/
	if _, exists := os.LookupEnv("NO_COLOR"); exists {
		return true
	}
	return color.NoColor
}

var (
	// Code formats runnable commands. `backticks` without color.
	Code = Formatter{color.New(color.FgYellow), "`", "`"}

	Path = Formatter{color.New(color.FgYellow), "", ""}

	Flag = Formatter{color.New(color.FgYellow), "", ""}

	Success = Formatter{color.New(color.FgGreen), "", ""}

	Error = Formatter{color.New(color.FgRed), "", ""}

	Warning = Formatter{color.New(color.FgYellow), "", ""}

	Info = Formatter{color.New(color.FgCyan), "", ""}

	// Highlight formats user values such as NRICs, claim ids and run ids.
	// 'single quotes' without color.
	Highlight = Formatter{color.New(color.FgCyan), "'", "'"}

	// Muted formats secondary text. (parentheses) without color.
	Muted = Formatter{color.New(color.FgHiBlack), "(", ")"}

	production = Formatter{color.New(color.FgRed, color.Bold), "", ""}
	uat        = Formatter{color.New(color.FgCyan), "", ""}
)

// Environment renders an API environment name.
func Environment(env string) string {
	if strings.EqualFold(env, "production") {
		return production.Sprint(strings.ToUpper(env))
	}
	return uat.Sprint(strings.ToUpper(env))
}

// KeyValue renders an aligned "key: value" line, showing unset values muted.
func KeyValue(key, value string, width int) string {
	if value == "" {
		value = Muted.Sprint("not set")
	}
	return fmt.Sprintf("  %-*s %s\n", width+1, key+":", value)
}
