// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command mx6ectl is the administrative companion to mx6ed: it sends
// add/delete/enable/disable/show/shutdown commands over the process's
// command socket and prints the response.
package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"grimm.is/mx6e/internal/ctlplane"
)

const exitEINVAL = 22

var processName string

func main() {
	root := &cobra.Command{
		Use:           "mx6ectl",
		Short:         "Administer a running mx6e gateway process",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&processName, "name", "n", "mx6e", "target process name")

	addCmd := &cobra.Command{Use: "add", Short: "Install a new translation rule"}
	addCmd.AddCommand(
		newRuleCmd("m46e", ctlplane.CmdAddM46E, "Install a new M46E translation rule"),
		newRuleCmd("me6e", ctlplane.CmdAddME6E, "Install a new ME6E translation rule"),
	)

	deleteCmd := &cobra.Command{Use: "delete", Short: "Remove a translation rule"}
	deleteCmd.AddCommand(
		newRuleCmd("m46e", ctlplane.CmdDeleteM46E, "Remove an M46E translation rule"),
		newRuleCmd("me6e", ctlplane.CmdDeleteME6E, "Remove an ME6E translation rule"),
	)

	deleteAllCmd := &cobra.Command{Use: "delete-all", Short: "Remove every rule of a table"}
	deleteAllCmd.AddCommand(
		newNoArgCmd("m46e", ctlplane.CmdDeleteAllM46E, "Remove every M46E translation rule"),
		newNoArgCmd("me6e", ctlplane.CmdDeleteAllME6E, "Remove every ME6E translation rule"),
	)

	enableCmd := &cobra.Command{Use: "enable", Short: "Enable a translation rule and install its route"}
	enableCmd.AddCommand(
		newRuleCmd("m46e", ctlplane.CmdEnableM46E, "Enable an M46E translation rule"),
		newRuleCmd("me6e", ctlplane.CmdEnableME6E, "Enable an ME6E translation rule"),
	)

	disableCmd := &cobra.Command{Use: "disable", Short: "Disable a translation rule and remove its route"}
	disableCmd.AddCommand(
		newRuleCmd("m46e", ctlplane.CmdDisableM46E, "Disable an M46E translation rule"),
		newRuleCmd("me6e", ctlplane.CmdDisableME6E, "Disable an ME6E translation rule"),
	)

	showCmd := &cobra.Command{Use: "show", Short: "Display rules, configuration, or statistics"}
	showCmd.AddCommand(
		newNoArgCmd("m46e", ctlplane.CmdShowM46E, "List every M46E translation rule"),
		newNoArgCmd("me6e", ctlplane.CmdShowME6E, "List every ME6E translation rule"),
		newNoArgCmd("config", ctlplane.CmdShowConfig, "Print the running process's loaded configuration"),
		newNoArgCmd("statistics", ctlplane.CmdShowStatistics, "Print the per-direction packet counters"),
	)

	root.AddCommand(
		addCmd, deleteCmd, deleteAllCmd, enableCmd, disableCmd, showCmd,
		newSetDebugLogCmd(),
		newShutdownCmd(),
		newRestartCmd(),
		newLoadCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if strings.Contains(err.Error(), "accepts") || strings.Contains(err.Error(), "unknown") {
			os.Exit(exitEINVAL)
		}
		os.Exit(-1)
	}
}

// rulePayloadFromArgs parses the positional argument grammar shared by
// add/delete/enable/disable: domain, in_plane_id, in_prefix_len,
// inner, out_plane_id, out_prefix, and an optional section address for
// FP-domain rules.
func rulePayloadFromArgs(args []string) (ctlplane.RulePayload, error) {
	if len(args) < 6 {
		return ctlplane.RulePayload{}, fmt.Errorf("expected domain in_plane_id in_prefix_len inner out_plane_id out_prefix [section_addr]")
	}
	prefixLen, err := strconv.Atoi(args[2])
	if err != nil {
		return ctlplane.RulePayload{}, fmt.Errorf("invalid in_prefix_len %q: %w", args[2], err)
	}
	p := ctlplane.RulePayload{
		Domain: args[0], InPlaneID: args[1], InPrefixLen: prefixLen,
		Inner: args[3], OutPlaneID: args[4], OutPrefix: args[5],
	}
	if len(args) > 6 {
		p.SectionAddr = args[6]
	}
	return p, nil
}

// newRuleCmd builds a <kind> subcommand that takes the shared rule
// positional-argument grammar and dispatches cmd.
func newRuleCmd(kind string, cmd ctlplane.Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " <domain> <in_plane_id> <in_prefix_len> <inner> <out_plane_id> <out_prefix> [section_addr]",
		Short: short,
		Args:  cobra.RangeArgs(6, 7),
		RunE: func(c *cobra.Command, args []string) error {
			p, err := rulePayloadFromArgs(args)
			if err != nil {
				return err
			}
			return callAndPrint(cmd, p)
		},
	}
}

// newNoArgCmd builds a <name> subcommand taking no arguments and
// dispatching cmd with an empty payload.
func newNoArgCmd(name string, cmd ctlplane.Command, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return callAndPrint(cmd, nil)
		},
	}
}

func newSetDebugLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-debug-log <on|off>",
		Short: "Toggle debug-level logging at runtime",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			enable, err := parseOnOff(args[0])
			if err != nil {
				return err
			}
			return callAndPrint(ctlplane.CmdSetDebugLog, ctlplane.DebugLogPayload{Enable: enable})
		},
	}
}

func newShutdownCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shutdown",
		Short: "Request a clean shutdown of the gateway process",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return callAndPrint(ctlplane.CmdShutdown, nil)
		},
	}
}

func newRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Request the gateway process reload its configuration",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return callAndPrint(ctlplane.CmdRestart, nil)
		},
	}
}

// newLoadCmd implements the "load <kind> <file>" replay form: each
// non-comment line of file is one command's positional arguments,
// dispatched as an add of the given kind.
func newLoadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "load <m46e|me6e> <file>",
		Short: "Replay add commands for every rule line in file",
		Args:  cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			var addCmd ctlplane.Command
			switch args[0] {
			case "m46e":
				addCmd = ctlplane.CmdAddM46E
			case "me6e":
				addCmd = ctlplane.CmdAddME6E
			default:
				return fmt.Errorf("unknown kind %q", args[0])
			}

			f, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer f.Close()

			scanner := bufio.NewScanner(f)
			for scanner.Scan() {
				line := strings.TrimSpace(scanner.Text())
				if line == "" || strings.HasPrefix(line, "#") {
					continue
				}
				p, err := rulePayloadFromArgs(strings.Fields(line))
				if err != nil {
					fmt.Fprintf(os.Stderr, "load: skipping %q: %v\n", line, err)
					continue
				}
				if err := callAndPrint(addCmd, p); err != nil {
					fmt.Fprintf(os.Stderr, "load: %q: %v\n", line, err)
				}
			}
			return scanner.Err()
		},
	}
}

func parseOnOff(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes", "enable":
		return true, nil
	case "off", "no", "disable":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean %q", s)
	}
}

func callAndPrint(cmd ctlplane.Command, payload any) error {
	var body json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = b
	} else {
		body = json.RawMessage("null")
	}

	resp, err := ctlplane.Call(processName, ctlplane.Request{Cmd: cmd, Payload: body})
	if err != nil {
		return err
	}
	if resp.Body != "" {
		fmt.Print(resp.Body)
		if !strings.HasSuffix(resp.Body, "\n") {
			fmt.Println()
		}
	}
	if resp.Result != 0 {
		os.Exit(int(resp.Result))
	}
	return nil
}
