package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/benaskins/sketchrun/internal/bridge"
	"github.com/benaskins/sketchrun/internal/config"
	"github.com/benaskins/sketchrun/internal/driver"
	"github.com/benaskins/sketchrun/internal/headless"
	"github.com/benaskins/sketchrun/internal/inject"
	"github.com/benaskins/sketchrun/internal/lifecycle"
	"github.com/benaskins/sketchrun/internal/logging"
	"github.com/benaskins/sketchrun/internal/sketchbook"
	"github.com/benaskins/sketchrun/internal/tui"
)

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	unattended := headlessMode || !term.IsTerminal(int(os.Stdout.Fd()))

	// The UI owns the terminal, so interactive runs log to a file.
	logPath := ""
	if !unattended {
		logPath = defaultLogPath()
	}
	closer, err := logging.Setup(cfg.LogLevel, logPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	sketch := ""
	if sketchFlag != "" {
		sketch, err = resolveSketch(sketchFlag, cfg)
		if err != nil {
			return err
		}
	}
	if unattended && sketch == "" {
		return errors.New("--sketch is required when running without a terminal")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := inject.New[any]()
	defer queue.Close()

	d := driver.NewSketch(driver.SketchConfig{
		Runner:      cfg.Runner,
		Args:        cfg.Args,
		GracePeriod: cfg.GracePeriod.Duration,
	}, driver.SinkFunc(func(ev any) { queue.Push(ev) }))

	listener, err := bridge.Listen(ctx, cfg.ListenAddr(), bridge.NewRouter(), func(ev bridge.Event) { queue.Push(ev) })
	if err != nil {
		return err
	}
	defer listener.Close()

	slog.Info("sketchrun starting",
		"sketchbook", cfg.Sketchbook,
		"runner", cfg.Runner,
		"osc_listen", listener.Addr().String(),
		"osc_peer", cfg.OSC.Peer,
		"headless", unattended)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigCh)

	if unattended {
		err = runHeadless(ctx, cancel, sigCh, cfg, d, queue, sketch)
	} else {
		err = runTUI(sigCh, cfg, d, queue, listener, sketch)
	}

	// Never leave a sketch behind.
	if stopErr := d.Stop(context.Background(), cfg.GracePeriod.Duration); stopErr != nil {
		slog.Warn("final stop failed", "error", stopErr)
	}
	slog.Info("sketchrun stopped")
	return err
}

func runHeadless(ctx context.Context, cancel context.CancelFunc, sigCh <-chan os.Signal, cfg *config.Config, d *driver.SketchDriver, queue *inject.Queue[any], sketch string) error {
	go func() {
		select {
		case sig := <-sigCh:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	state, err := headless.New(d, queue.C(), cfg.GracePeriod.Duration).Run(ctx, sketch)
	if err != nil {
		return err
	}
	if state == lifecycle.Error {
		info := d.Info()
		if info.Last != nil {
			return fmt.Errorf("sketch %s failed: %s", filepath.Base(sketch), info.Last.String())
		}
		return fmt.Errorf("sketch %s failed", filepath.Base(sketch))
	}
	return nil
}

func runTUI(sigCh <-chan os.Signal, cfg *config.Config, d *driver.SketchDriver, queue *inject.Queue[any], listener *bridge.Listener, sketch string) error {
	var peer tui.Sender
	if p, err := bridge.NewPeer(cfg.OSC.Peer); err != nil {
		slog.Warn("outbound OSC disabled", "peer", cfg.OSC.Peer, "error", err)
	} else {
		peer = p
	}

	model := tui.New(tui.Options{
		Supervisor: d,
		Events:     queue.C(),
		Peer:       peer,
		Watch: func(ctx context.Context, root string) error {
			return sketchbook.Watch(ctx, root, cfg.SketchExt, func(c sketchbook.Changed) { queue.Push(c) })
		},
		Sketchbook: cfg.Sketchbook,
		SketchExt:  cfg.SketchExt,
		Sketch:     sketch,
		Grace:      cfg.GracePeriod.Duration,
		LogLines:   cfg.LogLines,
		ListenAddr: listener.Addr().String(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen())

	go func() {
		sig, ok := <-sigCh
		if !ok {
			return
		}
		slog.Info("received signal, shutting down", "signal", sig)
		p.Send(tui.ShutdownMsg{})
	}()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

// resolveSketch accepts a sketch directory or the name of a sketch in the
// sketchbook.
func resolveSketch(name string, cfg *config.Config) (string, error) {
	candidates := []string{sketchbook.ExpandHome(name)}
	if !filepath.IsAbs(name) {
		candidates = append(candidates, filepath.Join(sketchbook.ExpandHome(cfg.Sketchbook), name))
	}
	for _, dir := range candidates {
		if sketchbook.IsSketchDir(dir, cfg.SketchExt) {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return dir, nil
			}
			return abs, nil
		}
	}
	return "", fmt.Errorf("%s is not a sketch directory (no %s files)", name, cfg.SketchExt)
}
