// Package utils provides shared helpers for sfcpay commands.
//
// # Filesystem Utilities
//
//   - FindFileUpwards: walks up from the working directory to find a file
//   - ExpandPath: expands a leading ~ to the home directory
//
// # String Utilities
//
//   - IsValidEmail: loose email format check
//   - MaskSecret: renders a secret for display without revealing it
//   - ParseKeyValues: parses key=value flag lists
//
// # I/O Utilities
//
//   - ReadStdin: reads piped data from standard input
//   - ReadInput: reads a value, a file reference (@path) or stdin (-)
//
// # Terminal Utilities
//
//   - ReadPassphrase: prompts without echoing input
//   - IsTerminal: reports whether stdin is a terminal
package utils
