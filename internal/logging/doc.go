// Package logger provides leveled, colored logging for sfcpay commands.
//
// # Verbosity Levels
//
// Logging behavior is controlled by two flags:
//
//   - --verbose: Shows info and warning messages
//   - --debug: Shows all messages including debug details
//
// Without flags, only critical warnings and errors are shown.
//
// Every level writes to Logger.Out, or stderr when it is nil. Stdout is left
// for command output such as JSON.
//
// # Log Methods
//
//	Logger.Infof()          // Shown with --verbose or --debug
//	Logger.Debugf()         // Shown only with --debug
//	Logger.Warnf()          // Shown with --verbose or --debug
//	Logger.WarnfAlways()    // Always shown
//	Logger.Errorf()         // Always shown
//	Logger.ErrorfAndReturn() // Logged with --debug, returned as an error
//
// Secrets (keys, private keys, decrypted claim bodies) are never passed to
// the logger; log operation names, paths and result codes instead.
package logger
