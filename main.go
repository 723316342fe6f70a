// Command camerad manages the AOI and acquisition-rate configuration of a
// scientific camera. It brings the device up with fixed one-time modes, then
// serves an HTTP API through which new parameter snapshots are reconciled
// against the hardware's order-dependent property ranges.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rigel-imaging/camerad/internal/camera"
	"github.com/rigel-imaging/camerad/internal/config"
	"github.com/rigel-imaging/camerad/internal/eventlog"
	"github.com/rigel-imaging/camerad/internal/spin"
	"github.com/rigel-imaging/camerad/internal/version"
)

var (
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	configPath  = flag.String("config", "", "Path to JSON configuration file")
	devMode     = flag.Bool("dev", false, "Run against the simulated camera")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// openCamera builds the device transport selected by the configuration.
func openCamera(cfg *config.Config) (spin.Camera, error) {
	if cfg.GetSim() {
		log.Printf("using simulated camera (%dx%d chip)", cfg.GetSimChipWidth(), cfg.GetSimChipHeight())
		return spin.NewSimCamera(cfg.GetSimChipWidth(), cfg.GetSimChipHeight()), nil
	}
	cam, err := spin.NewSerialCamera(cfg.GetPortPath(), cfg.SerialOptions())
	if err != nil {
		return nil, fmt.Errorf("opening control channel %s: %w", cfg.GetPortPath(), err)
	}
	return cam, nil
}

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("camerad %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		os.Exit(0)
	}

	cfg := config.Empty()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if *devMode {
		sim := true
		cfg.Sim = &sim
	}

	addr := cfg.GetListen()
	if *listen != "" {
		addr = *listen
	}

	cam, err := openCamera(cfg)
	if err != nil {
		log.Fatalf("failed to open camera: %v", err)
	}
	defer cam.Close()

	events, err := eventlog.Open(cfg.GetEventLogPath())
	if err != nil {
		log.Fatalf("failed to open event log: %v", err)
	}
	defer events.Close()

	// Bring-up is fail-fast: a camera that cannot reach its required modes
	// must not serve reconfiguration requests.
	ctrl, err := camera.NewController(cam, camera.NewBaseStore(), camera.Options{EventLog: events})
	if err != nil {
		log.Fatalf("failed to initialize camera: %v", err)
	}
	defer ctrl.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mux := http.NewServeMux()

	// Admin debugging routes (accessible only locally or over Tailscale).
	ctrl.AttachAdminRoutes(mux)

	apiMux := NewServer(ctrl, events).ServeMux()
	mux.Handle("/api/", http.StripPrefix("/api", apiMux))

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		log.Printf("camerad listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	if err := ctrl.StopAcquisition(); err != nil {
		log.Printf("failed to stop acquisition: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}
}
