package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pitprobe/pitprobe/internal/ble"
	"github.com/pitprobe/pitprobe/internal/engine"
)

var scanSeconds int

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for supported probes and print what was seen",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanSeconds, "seconds", 5, "how long to scan")
}

func runScan(cmd *cobra.Command, args []string) error {
	adapter := ble.NewTinygoAdapter()
	if err := adapter.Enable(); err != nil {
		return fmt.Errorf("enabling adapter: %w", err)
	}

	scanner := engine.NewScanner(adapter)
	if err := scanner.Start(); err != nil {
		return err
	}

	fmt.Printf("Scanning for %ds...\n", scanSeconds)
	deadline := time.After(time.Duration(scanSeconds) * time.Second)
	for {
		select {
		case ev, ok := <-scanner.Events():
			if !ok {
				return printScanTable(scanner.Devices())
			}
			fmt.Printf("  found %s (%s, RSSI %d)\n", displayName(ev.Device.ID, ev.Device.Name), ev.Device.Profile.Key, ev.Device.RSSI)
		case <-deadline:
			scanner.Stop()
			drainDiscoveries(scanner)
			return printScanTable(scanner.Devices())
		}
	}
}

func drainDiscoveries(s *engine.Scanner) {
	for range s.Events() {
	}
}

func printScanTable(devices []engine.ScannedDevice) error {
	if len(devices) == 0 {
		fmt.Println("No supported probes found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tALIAS\tFAMILY\tRSSI\tLAST SEEN")
	for _, d := range devices {
		alias, _ := reg.Alias(d.ID)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			d.ID, d.Name, alias, d.Profile.Key, d.RSSI, d.LastSeen.Format("15:04:05"))
	}
	return w.Flush()
}

// displayName prefers a registered alias over the advertised name.
func displayName(id, name string) string {
	if alias, ok := reg.Alias(id); ok {
		return alias
	}
	if name != "" {
		return name
	}
	return id
}
