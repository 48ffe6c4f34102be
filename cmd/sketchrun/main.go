package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "sketchrun",
	Short: "Run Processing sketches with an OSC control bridge",
	Long: "Browse a sketchbook, run one Processing sketch at a time, and exchange OSC control " +
		"messages with it. Without a terminal (or with --headless) the given sketch runs " +
		"unattended and its output is logged.",
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE:         runApp,
}

var (
	configPath     string
	logLevel       string
	sketchbookFlag string
	sketchFlag     string
	oscPort        int
	gracePeriod    time.Duration
	headlessMode   bool
)

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "Config file (default ~/.sketchrun/config.yaml)")
	pf.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")

	f := rootCmd.Flags()
	f.StringVar(&sketchbookFlag, "sketchbook", "", "Sketchbook directory to browse")
	f.StringVar(&sketchFlag, "sketch", "", "Sketch directory (or name within the sketchbook) to preselect")
	f.IntVar(&oscPort, "osc-port", 0, "UDP port for incoming OSC messages")
	f.DurationVar(&gracePeriod, "grace", 0, "Time to wait after SIGTERM before SIGKILL")
	f.BoolVar(&headlessMode, "headless", false, "Run --sketch without the terminal UI")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
