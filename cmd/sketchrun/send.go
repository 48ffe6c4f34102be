package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/benaskins/sketchrun/internal/bridge"
)

var sendCmd = &cobra.Command{
	Use:   "send <path> [args...]",
	Short: "Send one OSC message",
	Long: "Send a single OSC message to the configured peer. Argument types are inferred " +
		"(int, then float, then string) unless --types gives one tag per argument, e.g. --types fs.",
	Args: cobra.MinimumNArgs(1),
	RunE: runSend,
}

func init() {
	sendCmd.Flags().String("to", "", "Peer address host:port (default from config)")
	sendCmd.Flags().String("types", "", "OSC type tags, one per argument (i h f d s T F N)")
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	to, _ := cmd.Flags().GetString("to")
	types, _ := cmd.Flags().GetString("types")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if to == "" {
		to = cfg.OSC.Peer
	}

	msg, err := buildMessage(args[0], args[1:], strings.TrimPrefix(types, ","))
	if err != nil {
		return err
	}

	peer, err := bridge.NewPeer(to)
	if err != nil {
		return err
	}
	if err := peer.Send(msg); err != nil {
		return err
	}

	fmt.Printf("sent %s to %s\n", msg, peer.Addr())
	return nil
}

func buildMessage(path string, raw []string, types string) (bridge.Message, error) {
	if !strings.HasPrefix(path, "/") {
		return bridge.Message{}, fmt.Errorf("OSC path %q must start with /", path)
	}
	if types != "" && len(types) != len(raw) {
		return bridge.Message{}, fmt.Errorf("--types has %d tags for %d arguments", len(types), len(raw))
	}

	msg := bridge.Message{Path: path}
	for i, text := range raw {
		if types == "" {
			msg.Args = append(msg.Args, bridge.InferArg(text))
			continue
		}
		arg, err := bridge.ParseArg(types[i], text)
		if err != nil {
			return bridge.Message{}, fmt.Errorf("argument %d: %w", i+1, err)
		}
		msg.Args = append(msg.Args, arg)
	}
	return msg, nil
}
