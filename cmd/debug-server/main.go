// Command debug-server runs the remote debug server against a simulated
// script host. Clients connect over TCP, set breakpoints and step through
// the looping demo script while inspecting its variables.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/sourcepawn-tools/remote-debug/internal/debug/execution"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/inspect"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/server"
	"github.com/sourcepawn-tools/remote-debug/internal/debug/session"
	"github.com/sourcepawn-tools/remote-debug/internal/hostsim"
	"github.com/sourcepawn-tools/remote-debug/internal/runtime/config"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "debug-server: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("debug-server", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to YAML configuration file")
	port := flags.Int("port", 0, "listen port (overrides configuration)")
	startupDelay := flags.Duration("startup-delay", -1, "delay before accepting connections")
	logLevel := flags.String("log-level", "", "log level: debug, info, warn, error")
	if err := flags.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *startupDelay >= 0 {
		cfg.StartupDelay = *startupDelay
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := cfg.SlogLevel()
	if err != nil {
		return err
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.StartupDelay > 0 {
		log.Info("delaying startup", "delay", cfg.StartupDelay)
		select {
		case <-time.After(cfg.StartupDelay):
		case <-ctx.Done():
			return nil
		}
	}

	registry := session.NewRegistry(log)
	srv := server.New(registry, log)

	if cfg.TrafficLog != "" {
		f, err := os.OpenFile(cfg.TrafficLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open traffic log: %w", err)
		}
		defer f.Close()
		srv.SetTrafficLogger(server.NewJSONLTrafficLogger(f))
	}

	host := startDemoHost(ctx, registry, log)
	defer host.wait()

	return srv.ListenAndServe(ctx, cfg.Addr())
}

// demoHost owns the simulated interpreter goroutine.
type demoHost struct {
	done chan struct{}
}

func (h *demoHost) wait() { <-h.done }

// startDemoHost builds the demo script image and loops it through the
// debug hooks until ctx is cancelled.
func startDemoHost(ctx context.Context, registry *session.Registry, log *slog.Logger) *demoHost {
	const file = "demo.sp"
	im := hostsim.NewImage(file)
	mem := hostsim.NewMemory()

	// Globals.
	im.AddSym(&hostsim.Sym{SymName: "gTicks", SymIdent: inspect.IdentVariable,
		SymClass: inspect.Global, Addr: 0x100, Start: 0, End: 0xFFFF})
	im.AddSym(&hostsim.Sym{SymName: "gEnabled", SymIdent: inspect.IdentVariable,
		SymClass: inspect.Global, Tag: "bool", Addr: 0x104, Start: 0, End: 0xFFFF})
	mem.Poke(0x100, 0)
	mem.Poke(0x104, 1)

	// Locals of the demo loop, at fixed frame offsets.
	im.AddSym(&hostsim.Sym{SymName: "i", SymIdent: inspect.IdentVariable,
		SymClass: inspect.Local, Addr: 0x10, Start: 0, End: 0xFFFF})
	im.AddSym(&hostsim.Sym{SymName: "name", SymIdent: inspect.IdentArray,
		SymClass: inspect.Local, Addr: 0x20, Start: 0, End: 0xFFFF, Dims: []int{16}})

	steps := []hostsim.Step{
		{Func: "OnPluginStart", Line: 5},
		{Func: "OnPluginStart", Line: 6},
		{Func: "Tick", Line: 12, Depth: 1},
		{Func: "Tick", Line: 13, Depth: 1},
		{Func: "OnPluginStart", Line: 7},
	}
	interp := hostsim.NewInterp(im, steps)
	interp.SetPace(250 * time.Millisecond)

	host := session.HostContext{ID: 1, File: file, Provider: im, Memory: mem}
	interp.OnBreak(func(cip, frm uint32) bool {
		// Refresh the loop locals for whoever inspects this stop.
		_ = mem.WriteCell(frm+0x10, readTick(mem))
		_ = mem.WriteString(frm+0x20, 16, "demo")
		st := registry.OnBreak(host, session.BreakInfo{CIP: cip, Frame: frm})
		return st != execution.Dead
	})
	interp.OnError(func(report inspect.ErrorReport, frames inspect.FrameIterator) {
		registry.OnError(host, report, frames)
	})

	h := &demoHost{done: make(chan struct{})}
	go func() {
		defer close(h.done)
		log.Info("demo host started", "file", file)
		for ctx.Err() == nil {
			interp.Run(ctx)
			_ = mem.WriteCell(0x100, readTick(mem)+1)
			// An aborted run means every interested session is dead; idle
			// briefly before replaying for the next client.
			select {
			case <-time.After(500 * time.Millisecond):
			case <-ctx.Done():
			}
		}
		log.Info("demo host stopped")
	}()
	return h
}

func readTick(mem *hostsim.Memory) int32 {
	v, err := mem.ReadCell(0x100)
	if err != nil {
		return 0
	}
	return v
}
