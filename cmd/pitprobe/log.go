package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pitprobe/pitprobe/internal/ble"
	"github.com/pitprobe/pitprobe/internal/engine"
	"github.com/pitprobe/pitprobe/internal/probe"
)

var logDevice string

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Connect to a probe and stream temperatures",
	Long: `Connect to a probe and print temperature frames as they arrive.

With --device, only that identity is considered. Otherwise the connect
policy from the config file applies: auto_connect plus the optional
preferred_devices list.`,
	RunE: runLog,
}

func init() {
	logCmd.Flags().StringVar(&logDevice, "device", "", "connect only to this device identity")
}

func runLog(cmd *cobra.Command, args []string) error {
	adapter := ble.NewTinygoAdapter()

	opts := engine.Options{
		AutoConnect:    cfg.Connect.AutoConnect,
		Preferred:      cfg.Connect.PreferredDevices,
		ConnectTimeout: cfg.Connect.Timeout(),
	}
	if logDevice != "" {
		opts.AutoConnect = true
		opts.Preferred = []string{logDevice}
	}

	o := engine.New(adapter, reg, opts)
	if err := o.StartScan(); err != nil {
		return err
	}
	defer o.Stop()

	fmt.Println("Scanning for probes... Ctrl+C to quit.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case f := <-o.Frames():
			fmt.Printf("%s  %s ch%d  %6.1f°C\n",
				f.Time.Format("15:04:05"), displayName(f.Device, ""), f.Channel, f.Celsius)
		case s := <-o.States():
			printState(s)
			// Keep logging across probe power cycles.
			if s.Phase == probe.PhaseIdle || s.Phase == probe.PhaseFailed {
				if err := o.StartScan(); err == nil {
					fmt.Println("Scanning for probes...")
				}
			}
		case <-sigCh:
			fmt.Println("\nShutting down.")
			return nil
		}
	}
}

func printState(s probe.ConnectionState) {
	switch s.Phase {
	case probe.PhaseConnecting:
		fmt.Printf("Connecting to %s...\n", displayName(s.Device, ""))
	case probe.PhaseReady:
		fmt.Printf("Connected to %s.\n", displayName(s.Device, ""))
	case probe.PhaseFailed:
		fmt.Printf("Connection to %s failed: %s\n", displayName(s.Device, ""), s.Reason)
	case probe.PhaseIdle:
		if s.Device != "" {
			fmt.Printf("Disconnected from %s.\n", displayName(s.Device, ""))
		}
	}
}
