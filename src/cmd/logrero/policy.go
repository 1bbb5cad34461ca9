package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"logrero/src/apperr"
	"logrero/src/contracts"
	"logrero/src/journal"
)

func (a *app) policyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Show or change device policies",
	}

	var asJSON bool
	getCmd := &cobra.Command{
		Use:   "get [device]",
		Short: "Show the priorities a device forwards",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device := a.device(args)
			policy, err := a.client.PolicyFor(cmd.Context(), device)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), policy)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", device, formatPriorities(policy.Priorities))
			return nil
		},
	}
	getCmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")

	var clearPolicy bool
	setCmd := &cobra.Command{
		Use:   "set <device> [priority...]",
		Short: "Replace the priorities a device forwards",
		Long: `Replaces the policy of a device. Priorities are syslog levels 0-7 or their
names (emerg, alert, crit, err, warning, notice, info, debug).

Agents in accumulate mode keep forwarding previously allowed priorities until
they restart.`,
		Example: `  logrero policy set web-01 err warning
  logrero policy set web-01 --clear`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			device, raw := args[0], args[1:]
			if len(raw) == 0 && !clearPolicy {
				return &apperr.UserError{
					Message: "No priorities given",
					Hint:    "List at least one priority, or pass --clear to forward nothing.",
				}
			}

			priorities, err := journal.ParsePriorities(raw)
			if err != nil {
				return &apperr.UserError{Message: "Invalid priority", Hint: "Use 0-7 or a syslog level name.", Err: err}
			}

			policy := contracts.Policy{Priorities: priorities}
			if err := a.client.SetPolicy(cmd.Context(), device, policy); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s: %s\n", device, formatPriorities(priorities))
			return nil
		},
	}
	setCmd.Flags().BoolVar(&clearPolicy, "clear", false, "Set an empty policy")

	cmd.AddCommand(getCmd)
	cmd.AddCommand(setCmd)
	return cmd
}
