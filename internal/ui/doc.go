// Package ui provides semantic text formatting for CLI output.
//
// Formatters render with color when the terminal supports it. When NO_COLOR
// is set or the terminal lacks color support, text decorations are used
// instead so the meaning survives:
//
//	ui.Code.Sprint("sfcpay config init")   // `sfcpay config init`
//	ui.Highlight.Sprint("S1234567A")       // 'S1234567A'
//	ui.Muted.Sprint("not set")             // (not set)
//
// Environment renders the target API environment, with production in red so
// calls against live claims stand out.
package ui
