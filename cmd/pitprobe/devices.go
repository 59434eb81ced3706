package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "Manage known probes",
}

var devicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered probes",
	RunE: func(cmd *cobra.Command, args []string) error {
		entries := reg.Entries()
		if len(entries) == 0 {
			fmt.Println("No registered probes.")
			return nil
		}

		ids := make([]string, 0, len(entries))
		for id := range entries {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tALIAS\tREGISTERED")
		for _, id := range ids {
			e := entries[id]
			registered := "no"
			if e.RegistrationCode != "" {
				registered = "yes"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", id, e.Alias, registered)
		}
		return w.Flush()
	},
}

var devicesAliasCmd = &cobra.Command{
	Use:   "alias <device-id> <alias>",
	Short: "Set a human-readable alias for a probe",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := reg.SetAlias(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Alias for %s set to %q.\n", args[0], args[1])
		return nil
	},
}

var devicesRegisterCmd = &cobra.Command{
	Use:   "register <device-id> <code>",
	Short: "Store the registration code for a block-transfer probe",
	Long: `Store the 8-digit registration code printed on the probe's
registration card. Probes in the SK family refuse to report until the
code has been presented.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := reg.SetRegistrationCode(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("Registration code stored for %s.\n", args[0])
		return nil
	},
}

func init() {
	devicesCmd.AddCommand(devicesListCmd, devicesAliasCmd, devicesRegisterCmd)
}
