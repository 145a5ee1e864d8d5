// Package cli implements mailctl, the operator command line for the admin API.
package cli

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

type Config struct {
	Server       string
	OutputWriter io.Writer
}

func DefaultConfig() Config {
	return Config{OutputWriter: os.Stdout}
}

type runtimeState struct {
	server  string
	timeout time.Duration
	writer  io.Writer
	client  *Client
}

type runtimeKey struct{}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{server: cfg.Server, writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:          "mailctl",
		Short:        "Inspect and control the mail dispatcher queues",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.server == "" {
				rt.server = os.Getenv("MAILCTL_SERVER")
			}
			if rt.server == "" {
				rt.server = defaultServer
			}
			rt.client = NewClient(rt.server, rt.timeout)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&rt.server, "server", rt.server, "Dispatcher base URL (env MAILCTL_SERVER)")
	root.PersistentFlags().DurationVar(&rt.timeout, "timeout", 10*time.Second, "Request timeout")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		newStatsCommand(),
		newUsageCommand(),
		newRoutesCommand(),
		newPauseCommand(),
		newResumeCommand(),
		newCleanCommand(),
		newJobCommand(),
		newSendCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil || rt.client == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}
