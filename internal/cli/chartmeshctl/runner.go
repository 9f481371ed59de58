// Package chartmeshctl implements the chartmeshctl command line: local chart
// resolution over files plus thin wrappers around the HTTP API.
package chartmeshctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type Options struct {
	BaseURL    string
	APIKey     string
	ClientID   string
	Timeout    time.Duration
	HTTPClient *http.Client
	Stdout     io.Writer
	Stderr     io.Writer
}

// usageError marks failures caused by how the command was invoked.
type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }

func (e usageError) Unwrap() error { return e.err }

// Run executes args and returns the process exit code: 0 on success, 1 when
// the command failed and 2 on usage errors.
func Run(ctx context.Context, args []string, defaults Options) int {
	stdout := defaults.Stdout
	if stdout == nil {
		stdout = io.Discard
	}
	stderr := defaults.Stderr
	if stderr == nil {
		stderr = io.Discard
	}

	root := newRootCommand(defaults, stdout)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintf(stderr, "error: %v\n", err)
		var usage usageError
		if errors.As(err, &usage) {
			_, _ = fmt.Fprintln(stderr)
			_, _ = fmt.Fprint(stderr, root.UsageString())
			return 2
		}
		return 1
	}
	return 0
}

type remoteFlags struct {
	baseURL  string
	apiKey   string
	clientID string
	timeout  time.Duration
}

func newRootCommand(defaults Options, stdout io.Writer) *cobra.Command {
	remote := &remoteFlags{}
	root := &cobra.Command{
		Use:           "chartmeshctl",
		Short:         "Resolve and aggregate chart queries locally or against a chartmesh API",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return usageError{errors.New("a command is required")}
			}
			return usageError{fmt.Errorf("unknown command %q", args[0])}
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&remote.baseURL, "base-url", firstNonEmpty(defaults.BaseURL, "http://localhost:8080"), "chartmesh API base URL")
	flags.StringVar(&remote.apiKey, "api-key", defaults.APIKey, "API key for authenticated requests")
	flags.StringVar(&remote.clientID, "client-id", defaults.ClientID, "X-Client-ID header used to key query history")
	flags.DurationVar(&remote.timeout, "timeout", durationOr(defaults.Timeout, 10*time.Second), "HTTP timeout (e.g. 10s)")

	client := func() *http.Client {
		if defaults.HTTPClient != nil {
			return defaults.HTTPClient
		}
		return &http.Client{Timeout: remote.timeout}
	}

	root.AddCommand(
		newChartCommand(stdout),
		newResolveCommand(stdout),
		newDemoCommand(stdout),
		newRemoteCommand("health", "GET /v1/health", http.MethodGet, "/v1/health", remote, client, stdout),
		newRemoteCommand("ready", "GET /v1/ready", http.MethodGet, "/v1/ready", remote, client, stdout),
		newRemoteCommand("history", "GET /v1/history for the client", http.MethodGet, "/v1/history", remote, client, stdout),
		newRemoteCommand("clear-history", "DELETE /v1/history for the client", http.MethodDelete, "/v1/history", remote, client, stdout),
	)
	return root
}

// usageArgs turns positional argument validation failures into usage errors.
func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return strings.TrimSpace(a)
	}
	return b
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
