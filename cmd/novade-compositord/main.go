// Command novade-compositord is the compositor process entrypoint: it
// binds the Wayland display socket, opens a GPU device, builds the buffer
// registry, surface registry and composition engine, and accepts client
// connections. It constructs no seat engine or scene graph and renders
// no frames.
//
// Grounded on gogpu-gg's cmd/ggdemo/main.go for the flag + log.Fatalf
// bring-up style, adapted from a one-shot image-rendering demo to a
// long-running server accept loop.
package main

import (
	"flag"
	"log/slog"
	"os"

	_ "github.com/gogpu/wgpu/hal/allbackends"

	novade "github.com/novade/compositor-core"
	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/composition"
	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/renderer/wgpu"
	"github.com/novade/compositor-core/internal/surface"
	"github.com/novade/compositor-core/internal/wire"
)

func main() {
	var (
		logLevel   = flag.String("log-level", "info", "log level: debug, info, warn, error")
		memBudget  = flag.Int64("memory-budget", 0, "texture memory budget in bytes (0 = unbounded)")
		backendVar = flag.String("backend", "", "force a GPU backend variant by name (empty = auto-select)")
	)
	flag.Parse()

	novade.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLevel(*logLevel),
	})))
	log := novade.Logger()

	if *backendVar != "" {
		log.Warn("backend selection by name is not implemented, auto-selecting", "requested", *backendVar)
	}

	dev, err := wgpu.Open(nil)
	if err != nil {
		log.Error("failed to open GPU device", "error", err)
		os.Exit(1)
	}
	defer dev.Close()

	renderer, err := wgpu.New(dev)
	if err != nil {
		log.Error("failed to build renderer", "error", err)
		os.Exit(1)
	}
	defer renderer.Close()

	buffers := bufferreg.New(nil)
	surfaces := surface.New(buffers)
	engine := composition.New(renderer, surfaces, nil)
	if *memBudget > 0 {
		engine.SetMemoryBudget(*memBudget)
	}

	ln, err := wire.Listen()
	if err != nil {
		log.Error("failed to bind the Wayland display socket", "error", err)
		os.Exit(1)
	}
	defer ln.Close()

	log.Info("compositor listening", "socket", ln.SocketPath())

	clients := wire.NewClientTable()
	for {
		conn, err := wire.Accept(ln)
		if err != nil {
			log.Warn("accept failed", "error", err)
			continue
		}
		clientID := clients.Register(conn)
		log.Info("client connected", "client", clientID.String(), "pid", conn.PID, "uid", conn.UID)
		go handleClient(conn, clients, clientID)
	}
}

// handleClient owns one client connection until it disconnects. Wire
// message dispatch (turning bytes into wl_surface.attach/commit and the
// rest of the protocol this core implements against) is a separate
// concern from the socket and credential plumbing this package scopes
// to, and isn't built out here.
func handleClient(conn *wire.Conn, clients *wire.ClientTable, clientID ids.ClientId) {
	defer conn.Close()
	defer clients.Forget(conn)

	buf := make([]byte, 4096)
	for {
		if _, err := conn.Read(buf); err != nil {
			novade.Logger().Info("client disconnected", "client", clientID.String())
			return
		}
	}
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
