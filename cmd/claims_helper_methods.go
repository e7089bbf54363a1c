package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/PolarWolf314/sfcpay/internal/audit"
	"github.com/PolarWolf314/sfcpay/internal/codec"
	"github.com/PolarWolf314/sfcpay/internal/configs"
	"github.com/PolarWolf314/sfcpay/internal/credentials"
	kerrors "github.com/PolarWolf314/sfcpay/internal/errors"
	"github.com/PolarWolf314/sfcpay/internal/host"
	"github.com/PolarWolf314/sfcpay/internal/pipeline"
	"github.com/PolarWolf314/sfcpay/internal/telemetry"
	"github.com/PolarWolf314/sfcpay/internal/transport"
	"github.com/PolarWolf314/sfcpay/internal/ui"
	"github.com/PolarWolf314/sfcpay/internal/utils"
	"github.com/PolarWolf314/sfcpay/internal/workflows"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X github.com/PolarWolf314/sfcpay/cmd.Version=...".
var Version = "dev"

// statusOut receives spinners and status lines so stdout carries only JSON.
var statusOut io.Writer = os.Stderr

// ExitError carries a process exit code for a failure that was already
// reported to the user.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return 1
}

func reported(err error) error {
	return &ExitError{Code: 1, Err: err}
}

// startSpinner creates and starts a spinner with the given message when not in verbose or debug mode.
// Returns the spinner and a function that should be deferred to clean up.
//
// spinner.FinalMSG values do not need trailing newlines. The cleanup function
// adds one before printing.
func startSpinner(message string, verbose bool) (*spinner.Spinner, func()) {
	return startSpinnerWithFlags(message, verbose, debug)
}

// startSpinnerWithFlags creates and starts a spinner with explicit verbose and debug flags.
// This is useful for commands that have their own flag variables (e.g., config commands).
func startSpinnerWithFlags(message string, verboseFlag, debugFlag bool) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(statusOut))
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		// If we can't set spinner color, just continue without it.
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	quiet := !verboseFlag && !debugFlag
	if quiet {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if quiet {
			log.SetOutput(os.Stderr)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if quiet {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Fprint(statusOut, finalMsg)
		}
	}

	return s, cleanup
}

// session holds what every claims command needs to reach the API.
type session struct {
	cfg      *configs.Config
	orch     *pipeline.Orchestrator
	audit    *audit.Writer
	bundle   credentials.Bundle
	shutdown func(context.Context) error
}

// loadConfig reads the config file and environment, then applies the
// persistent flag overrides.
func loadConfig(explicit string) (*configs.Config, error) {
	if err := configs.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	path, err := configs.ResolvePath(explicit)
	if err != nil {
		return nil, fmt.Errorf("resolving config path: %w", err)
	}
	cfg, err := configs.Load(path, explicit != "")
	if err != nil {
		return nil, err
	}
	if cfg.Path != "" {
		Logger.Debugf("Loaded config from %s", cfg.Path)
	} else {
		Logger.Debugf("No config file at %s, using defaults and environment", path)
	}
	for _, key := range cfg.Unknown {
		Logger.Warnf("Ignoring unknown config key %s", key)
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, fmt.Errorf("%w: %v", kerrors.ErrInvalidConfig, err)
	}
	if requestTimeout > 0 {
		cfg.Transport.Timeout = requestTimeout
	}
	if useTestEnv {
		cfg.Credentials.UseTestEnvironment = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newSession loads config, resolves credentials and sets up tracing. Credentials
// are resolved before any spinner starts so a PKCS#12 password prompt is visible.
func newSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}

	bundle, err := workflows.ResolveCredentials(ctx, cfg, workflows.CredentialOptions{
		PromptPassword: utils.ReadPassphrase,
	})
	if err != nil {
		return nil, err
	}
	Logger.Infof("Using %s environment", bundle.Environment())

	shutdown, err := telemetry.Init(ctx, telemetry.Options{ServiceVersion: Version}, Logger)
	if err != nil {
		return nil, fmt.Errorf("setting up tracing: %w", err)
	}

	client := transport.New(transport.Config{
		Timeout:        cfg.Transport.Timeout,
		ConnectTimeout: cfg.Transport.ConnectTimeout,
		ProductionURL:  cfg.Transport.ProductionURL,
		TestURL:        cfg.Transport.TestURL,
		UserAgent:      "sfcpay/" + Version,
	})

	return &session{
		cfg:      cfg,
		orch:     pipeline.New(client, Logger),
		audit:    audit.New(cfg.AuditPath()),
		bundle:   bundle,
		shutdown: shutdown,
	}, nil
}

func (s *session) resolve(context.Context) (credentials.Bundle, error) {
	return s.bundle, nil
}

func (s *session) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.shutdown(ctx); err != nil {
		Logger.Warnf("Failed to flush traces: %v", err)
	}
}

// runSingle sends one request described by params and prints the response.
func runSingle(cmd *cobra.Command, params map[string]string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(ctx)
	if err != nil {
		fmt.Fprintln(statusOut, formatError(err))
		return reported(err)
	}
	defer s.close()

	spinner, cleanup := startSpinner(fmt.Sprintf("Calling the %s API...", ui.Environment(s.bundle.Environment())), verbose)
	defer cleanup()

	h := &host.MapHost{Params: params, ContinueOnFailure: continueOnFailure, Resolve: s.resolve}
	item, err := workflows.Call(ctx, h, s.orch, s.audit)
	if err != nil {
		spinner.FinalMSG = formatError(err)
		return reported(err)
	}

	if item.Failed() {
		spinner.FinalMSG = ui.Warning.Sprint("⚠") + " " + item.Err.Error()
	} else {
		spinner.FinalMSG = ui.Success.Sprint("✓") + " " + item.Operation + " completed"
	}
	return printJSON(cmd.OutOrStdout(), item.Output)
}

// printJSON pretty prints v, which may already be raw JSON.
func printJSON(w io.Writer, v any) error {
	raw, ok := v.(json.RawMessage)
	if !ok {
		var err error
		raw, err = codec.Marshal(v)
		if err != nil {
			return fmt.Errorf("failed to render output: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	buf.WriteByte('\n')
	_, err := w.Write(buf.Bytes())
	return err
}

// formatError turns an error into a user-facing message with a next step where one exists.
func formatError(err error) string {
	var reqErr *kerrors.RequestError
	var apiErr *kerrors.APIError
	var transportErr *kerrors.TransportError

	cross := ui.Error.Sprint("✗") + " "
	arrow := ui.Info.Sprint("→") + " "

	switch {
	case errors.As(err, &apiErr):
		msg := cross + err.Error()
		if !apiErr.HasResultCode {
			return msg + "\n" + arrow + "The response had no result field; check the path with " + ui.Code.Sprint("sfcpay claims call")
		}
		return msg

	case errors.Is(err, kerrors.ErrTimeout):
		return cross + err.Error() + "\n" + arrow + "Increase the timeout with " + ui.Flag.Sprint("--timeout")

	case errors.As(err, &transportErr):
		msg := cross + err.Error()
		if transportErr.StatusCode == 401 || transportErr.StatusCode == 403 {
			msg += "\n" + arrow + "The API rejected the client certificate; run " + ui.Code.Sprint("sfcpay config check")
		}
		return msg

	case errors.As(err, &reqErr) && reqErr.Stage == kerrors.StagePrepare:
		return cross + err.Error()

	case errors.Is(err, kerrors.ErrConfigNotFound):
		return cross + err.Error() + "\n" + arrow + "Run " + ui.Code.Sprint("sfcpay config init") + " to create one"

	case errors.Is(err, kerrors.ErrInvalidCredentials),
		errors.Is(err, kerrors.ErrCertificateMismatch),
		errors.Is(err, kerrors.ErrFileNotFound),
		errors.Is(err, kerrors.ErrInvalidKey),
		errors.Is(err, kerrors.ErrKeySourceFailed):
		return cross + err.Error() + "\n" + arrow + "Run " + ui.Code.Sprint("sfcpay config check") + " to diagnose your credentials"

	default:
		return cross + err.Error()
	}
}
