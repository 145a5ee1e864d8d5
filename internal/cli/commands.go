package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func newStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [category]",
		Short: "Show job counts for one category or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := map[string]string{}
			if len(args) == 1 {
				query["category"] = args[0]
			}
			return call(cmd, http.MethodGet, "/stats", query, nil)
		},
	}
}

func newUsageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show today's send counts and the active credential slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return call(cmd, http.MethodGet, "/usage", nil, nil)
		},
	}
}

func newRoutesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List which template renders each category/type pair",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := getRuntime(cmd)
			if err != nil {
				return err
			}
			env, err := rt.client.Do(cmd.Context(), http.MethodGet, "/routes", nil, nil)
			if err != nil {
				return err
			}
			var routes []struct {
				Category string `json:"category"`
				Type     string `json:"type"`
				Target   string `json:"target"`
			}
			if err := json.Unmarshal(env.Data, &routes); err != nil {
				return fmt.Errorf("decode routes: %w", err)
			}
			tw := tabwriter.NewWriter(rt.writer, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tTYPE\tTEMPLATE")
			for _, r := range routes {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Category, r.Type, r.Target)
			}
			return tw.Flush()
		},
	}
}

func newPauseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pause <category>",
		Short: "Stop workers from claiming jobs of a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, http.MethodPost, "/queues/"+args[0]+"/pause", nil, nil)
		},
	}
}

func newResumeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resume <category>",
		Short: "Resume a paused category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, http.MethodPost, "/queues/"+args[0]+"/resume", nil, nil)
		},
	}
}

func newCleanCommand() *cobra.Command {
	var grace time.Duration
	cmd := &cobra.Command{
		Use:   "clean <category>",
		Short: "Remove completed and failed jobs older than the grace period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if grace < 0 {
				return fmt.Errorf("--grace must not be negative")
			}
			query := map[string]string{"grace": strconv.FormatInt(grace.Milliseconds(), 10)}
			return call(cmd, http.MethodPost, "/queues/"+args[0]+"/clean", query, nil)
		},
	}
	cmd.Flags().DurationVar(&grace, "grace", time.Hour, "Only remove jobs finished longer ago than this")
	return cmd
}

func newJobCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "job <category> <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return call(cmd, http.MethodGet, "/queues/"+args[0]+"/jobs/"+args[1], nil, nil)
		},
	}
}

func newSendCommand() *cobra.Command {
	var payload string
	cmd := &cobra.Command{
		Use:   "send <category> <type>",
		Short: "Queue an email",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data map[string]any
			if err := json.Unmarshal([]byte(payload), &data); err != nil {
				return fmt.Errorf("--payload must be a JSON object: %w", err)
			}
			body := map[string]any{"category": args[0], "type": args[1], "payload": data}
			return call(cmd, http.MethodPost, "/send", nil, body)
		},
	}
	cmd.Flags().StringVar(&payload, "payload", "", "Template data as a JSON object")
	_ = cmd.MarkFlagRequired("payload")
	return cmd
}

// call performs the request and prints the response data as indented JSON.
func call(cmd *cobra.Command, method, path string, query map[string]string, body any) error {
	rt, err := getRuntime(cmd)
	if err != nil {
		return err
	}
	env, err := rt.client.Do(cmd.Context(), method, path, query, body)
	if err != nil {
		return err
	}
	if env.Message != "" {
		fmt.Fprintln(rt.writer, env.Message)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, env.Data, "", "  "); err != nil {
		return fmt.Errorf("format response: %w", err)
	}
	buf.WriteByte('\n')
	_, err = buf.WriteTo(rt.writer)
	return err
}
