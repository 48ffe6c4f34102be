package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/benaskins/sketchrun/internal/sketchbook"
)

var sketchesCmd = &cobra.Command{
	Use:   "sketches [dir]",
	Short: "List runnable sketches",
	Long:  "List the sketch directories in a sketchbook. Defaults to the configured sketchbook.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSketches,
}

func init() {
	sketchesCmd.Flags().Bool("json", false, "Output as JSON")
	rootCmd.AddCommand(sketchesCmd)
}

func runSketches(cmd *cobra.Command, args []string) error {
	jsonOut, _ := cmd.Flags().GetBool("json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	root := cfg.Sketchbook
	if len(args) > 0 {
		root = args[0]
	}

	sketches, err := sketchbook.List(root, cfg.SketchExt)
	if err != nil {
		return err
	}

	if jsonOut {
		if sketches == nil {
			sketches = []sketchbook.Sketch{}
		}
		return printJSON(sketches)
	}

	if len(sketches) == 0 {
		return fmt.Errorf("no sketches found in %s", sketchbook.ExpandHome(root))
	}
	for _, s := range sketches {
		fmt.Printf("%-24s %s\n", s.Name, s.Path)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
