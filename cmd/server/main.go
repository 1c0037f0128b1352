// Command server runs the realtime session/room server: it loads
// configuration, brings up the actor system and the two process-wide
// registries, starts whichever transports are enabled, and serves Prometheus
// metrics, following the wiring shape of the teacher's cmd/game/main.go.
package main

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phuhao00/roomrealm/configs"
	internalActor "github.com/phuhao00/roomrealm/internal/actor"
	"github.com/phuhao00/roomrealm/internal/entity"
	"github.com/phuhao00/roomrealm/internal/logging"
	"github.com/phuhao00/roomrealm/internal/metrics"
	"github.com/phuhao00/roomrealm/internal/registry"
	"github.com/phuhao00/roomrealm/internal/transport/grpc"
	"github.com/phuhao00/roomrealm/internal/transport/tcp"
	"github.com/phuhao00/roomrealm/internal/transport/websocket"
)

func main() {
	configPath := "config.json"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}

	cfg, err := configs.LoadConfig(configPath)
	if err != nil {
		logging.Fatalf("failed to load configuration: %v", err)
	}
	logging.SetLevel(cfg.LogLevel)
	logging.Infof("roomrealm server starting, config=%s", configPath)

	reg := prometheus.NewRegistry()
	metrics.Register(reg)

	actorSystem := actor.NewActorSystem()
	players := registry.NewPlayerRegistry()

	var rooms *registry.RoomRegistry
	spawnRoom := func(roomID entity.RoomId, roomConfig entity.RoomConfig) *actor.PID {
		props := internalActor.PropsForRoom(roomID, roomConfig, rooms)
		return actorSystem.Root.Spawn(props)
	}
	rooms = registry.NewRoomRegistry(spawnRoom)

	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		logging.Fatalf("tls: %v", err)
	}

	var stoppers []func()

	if cfg.TCP.Enabled {
		srv := tcp.NewServer(cfg.TCP.Address, tlsConfig, actorSystem, cfg.Auth.BearerToken, players, rooms)
		if err := srv.Start(); err != nil {
			logging.Fatalf("tcp: %v", err)
		}
		stoppers = append(stoppers, srv.Stop)
	}

	if cfg.WebSocket.Enabled {
		srv := websocket.NewServer(cfg.WebSocket.Address, cfg.WebSocket.Path, tlsConfig, actorSystem, cfg.Auth.BearerToken, players, rooms)
		if err := srv.Start(); err != nil {
			logging.Fatalf("websocket: %v", err)
		}
		stoppers = append(stoppers, srv.Stop)
	}

	if cfg.GRPC.Enabled {
		certFile, keyFile := "", ""
		if cfg.TLS.Enabled {
			certFile, keyFile = cfg.TLS.CertFile, cfg.TLS.KeyFile
		}
		srv, err := grpc.NewServer(cfg.GRPC.Address, certFile, keyFile, actorSystem, cfg.Auth.BearerToken, players, rooms)
		if err != nil {
			logging.Fatalf("grpc: %v", err)
		}
		if err := srv.Start(); err != nil {
			logging.Fatalf("grpc: %v", err)
		}
		stoppers = append(stoppers, srv.Stop)
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		metricsServer = &http.Server{Addr: cfg.Metrics.Address, Handler: mux}
		go func() {
			logging.Infof("metrics: listening on %s", cfg.Metrics.Address)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logging.Errorf("metrics: serve error: %v", err)
			}
		}()
	}

	logging.Infof("roomrealm server ready")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Infof("shutting down...")
	for _, stop := range stoppers {
		stop()
	}
	if metricsServer != nil {
		metricsServer.Close()
	}
	actorSystem.Shutdown()
	time.Sleep(500 * time.Millisecond)
	logging.Infof("roomrealm server stopped")
}

// buildTLSConfig returns nil (plaintext) unless TLS is enabled in cfg, in
// which case it loads the configured certificate/key pair for the TCP and
// WebSocket adapters. The gRPC adapter loads the same cert/key files itself
// through grpc credentials.
func buildTLSConfig(cfg *configs.Config) (*tls.Config, error) {
	if !cfg.TLS.Enabled {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLS.CertFile, cfg.TLS.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("loading TLS certificate: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}
