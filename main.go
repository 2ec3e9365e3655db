package main

import (
	"context"
	"embed"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/harrier-data/sensor.report/internal/api"
	"github.com/harrier-data/sensor.report/internal/config"
	"github.com/harrier-data/sensor.report/internal/db"
	"github.com/harrier-data/sensor.report/internal/ingest"
	"github.com/harrier-data/sensor.report/internal/linemux"
	"github.com/harrier-data/sensor.report/internal/timeutil"
	"github.com/harrier-data/sensor.report/internal/version"
)

var (
	//go:embed static/*
	staticFiles embed.FS

	configPath  = flag.String("config", "", "Path to YAML config file")
	devMode     = flag.Bool("dev", false, "Run in dev mode (mock gateway, local static files)")
	listen      = flag.String("listen", "", "Listen address (overrides config)")
	dbPath      = flag.String("db", "", "SQLite database path (overrides config)")
	gatewayPath = flag.String("gateway", "", "Serial gateway device path (overrides config)")
	noGateway   = flag.Bool("no-gateway", false, "Run without a serial gateway")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

// mockFeed is the synthetic gateway line emitted on a timer in dev mode.
const mockFeed = "dev-temp,0,21.5\n"

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *listen != "" {
		cfg.ListenAddr = *listen
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}
	if *gatewayPath != "" {
		cfg.Gateway.Port = *gatewayPath
	}
	if *noGateway {
		cfg.Gateway.Disabled = true
	}
	if *devMode {
		cfg.Gateway.Mock = true
	}

	// "migrate" subcommand manages schema versions directly and exits.
	if args := flag.Args(); len(args) > 0 && args[0] == "migrate" {
		db.RunMigrateCommand(args[1:], cfg.DBPath)
		return
	}

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg *config.Config) error {
	database, err := db.EnsureSchema(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()

	m, err := openGateway(cfg)
	if err != nil {
		return fmt.Errorf("failed to open gateway: %w", err)
	}
	defer m.Close()

	hub := ingest.NewHub()
	defer hub.Close()
	handler := ingest.NewHandler(database, hub, timeutil.RealClock{}, true)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run the monitor routine to manage IO on the gateway port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := m.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor gateway port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	if err := m.Initialize(); err != nil {
		log.Printf("gateway initialization failed: %v", err)
	}

	// subscribe to gateway lines and record them as readings
	wg.Add(1)
	go func() {
		defer wg.Done()
		handler.Pump(ctx, m)
	}()

	if cfg.MQTT.Enabled {
		broker, err := ingest.NewBroker(cfg.MQTT.Addr, handler)
		if err != nil {
			return fmt.Errorf("failed to start MQTT broker: %w", err)
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := broker.Serve(); err != nil {
				log.Printf("MQTT broker stopped: %v", err)
			}
		}()
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-ctx.Done()
			if err := broker.Close(); err != nil {
				log.Printf("MQTT broker close error: %v", err)
			}
		}()
		log.Printf("MQTT broker listening on %s", cfg.MQTT.Addr)
	}

	if cfg.UDP.Enabled {
		listener := ingest.NewUDPListener(ingest.UDPListenerConfig{
			Address: cfg.UDP.Addr,
			Handler: handler,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := listener.Start(ctx); err != nil && err != context.Canceled {
				log.Printf("UDP listener stopped: %v", err)
			}
		}()
		log.Printf("UDP listener on %s", cfg.UDP.Addr)
	}

	// hourly rollup maintenance
	worker := db.NewRollupWorker(database, timeutil.RealClock{}, cfg.RollupInterval())
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := worker.Run(ctx); err != nil && err != context.Canceled {
			log.Printf("rollup worker stopped: %v", err)
		}
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// mount the admin debugging routes (accessible only in dev mode or over Tailscale)
		if err := database.AttachAdminRoutes(mux); err != nil {
			log.Printf("failed to attach admin routes: %v", err)
		}
		m.AttachAdminRoutes(mux)

		server := api.NewServer(m, database, hub, cfg.Units, cfg.Location())
		server.Register(mux)

		// read static files from the embedded filesystem in production or from
		// the local ./static in dev for easier iteration without restarting the
		// server
		var staticHandler http.Handler
		if *devMode {
			staticHandler = http.FileServer(http.Dir("./static"))
		} else {
			staticRoot, err := fs.Sub(staticFiles, "static")
			if err != nil {
				log.Fatalf("failed to open embedded static files: %v", err)
			}
			staticHandler = http.FileServer(http.FS(staticRoot))
		}
		mux.Handle("/", staticHandler)

		httpServer := &http.Server{
			Addr:    cfg.ListenAddr,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("listening on %s", cfg.ListenAddr)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
	return nil
}

// openGateway selects the gateway implementation from the config: a real
// serial port, a synthetic dev feed, or nothing at all.
func openGateway(cfg *config.Config) (linemux.LineMuxer, error) {
	switch {
	case cfg.Gateway.Disabled:
		return linemux.NewDisabledLineMux(), nil
	case cfg.Gateway.Mock:
		return linemux.NewMockLineMux([]byte(mockFeed)), nil
	case cfg.Gateway.Port == "":
		log.Print("no gateway port configured, running without a gateway")
		return linemux.NewDisabledLineMux(), nil
	default:
		m, err := linemux.NewRealLineMux(cfg.Gateway.Port, cfg.Gateway.Serial)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
}
