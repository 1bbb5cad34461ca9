// Package main provides the logrero operator CLI.
// It talks to the control plane with the same configuration file the agent uses.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"logrero/src/apperr"
	"logrero/src/config"
	"logrero/src/contracts"
	"logrero/src/controlplane"
	"logrero/src/mcp"
	"logrero/src/tui"
)

// defaultViewLimit is how many records the viewer loads.
const defaultViewLimit = 500

// app holds state shared by every subcommand.
type app struct {
	configPath string
	cfg        *config.Config
	client     *controlplane.Client
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "logrero",
		Short: "logrero - inspect and manage journal forwarding devices",
		Long: `logrero is the operator tool for a logrero control plane.

It browses forwarded journal records, manages per-device policies and exposes
the control plane to MCP clients. It reads the agent configuration file for the
control-plane address and token.`,
		Version:       controlplane.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to the configuration file")

	root.AddCommand(a.viewCmd())
	root.AddCommand(a.mcpCmd())
	root.AddCommand(a.policyCmd())
	root.AddCommand(a.devicesCmd())
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.client = controlplane.NewClient(cfg.Identity(),
		controlplane.WithTimeout(cfg.Agent.HTTPTimeout.Duration),
		controlplane.WithUserAgent("logrero-cli/"+controlplane.Version),
	)
	return nil
}

// device returns the device named on the command line, or the configured agent id.
func (a *app) device(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return a.cfg.Agent.ID
}

func (a *app) viewCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "view [device]",
		Short: "Browse forwarded records of a device in the terminal",
		Long: `Opens an interactive viewer over the most recent records stored for a device.
The device defaults to agent.id from the configuration file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device := a.device(args)

			policy, err := a.client.PolicyFor(cmd.Context(), device)
			if err != nil {
				return err
			}

			return tui.Run(device, policy.Priorities, func(ctx context.Context) ([]contracts.StoredRecord, error) {
				return a.client.ListLogs(ctx, device, limit)
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", defaultViewLimit, "Number of records to load")
	return cmd
}

func (a *app) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the control plane to MCP clients over stdio",
		Long: `Starts a Model Context Protocol server on stdin/stdout exposing tools to list
devices, read and summarize forwarded records and manage device policies.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mcp.NewServer(a.client, controlplane.Version).Run()
		},
	}
}

func (a *app) devicesCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List devices known to the control plane",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			devices, err := a.client.ListDevices(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), devices)
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No devices")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderDevices(devices))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}

func renderDevices(devices []contracts.DeviceSummary) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DEVICE", "PRIORITIES", "RECORDS", "LAST SEEN")
	for _, d := range devices {
		lastSeen := d.LastSeen
		if lastSeen == "" {
			lastSeen = "never"
		}
		t.Row(d.ID, formatPriorities(d.Policy.Priorities), strconv.Itoa(d.Records), lastSeen)
	}
	return t.String()
}

func formatPriorities(priorities []string) string {
	if len(priorities) == 0 {
		return "(none)"
	}
	return strings.Join(priorities, ",")
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", apperr.Explain(err))
		os.Exit(1)
	}
}
