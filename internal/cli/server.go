package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/xlnnetwork/xln/internal/config"
	"github.com/xlnnetwork/xln/internal/di"
	"github.com/xlnnetwork/xln/internal/rpcapi"
)

var (
	tickInterval  time.Duration
	serverGenesis string
)

// serverCmd starts the tick-loop daemon: the default command when no
// subcommand is given, mirroring the teacher's rootCmd.Run = runServer
// pattern.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the xln tick-loop daemon",
	Long: `server loads configuration, opens the durable frame log, and
starts the tick-loop server, the egress gRPC server, and the WebSocket
observer feed. A fixed-interval ticker advances the server once per
interval, draining whatever input has accumulated via Submit calls
made through the gRPC surface.`,
	Run: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)
	rootCmd.Run = runServer

	serverCmd.Flags().DurationVar(&tickInterval, "tick-interval", 100*time.Millisecond, "interval between server ticks")
	serverCmd.Flags().StringVar(&serverGenesis, "genesis", "", "genesis entity list JSON (empty starts with no entities registered)")
}

func runServer(cmd *cobra.Command, args []string) {
	paths := config.DefaultConfigPaths()
	if configFile != "" {
		paths = config.ConfigPaths{Main: configFile}
	}
	cfg, err := config.LoadConfig(paths)
	if err != nil {
		log.Fatalf("xlnd: failed to load configuration: %v", err)
	}

	container := di.New()
	provider := di.NewProvider(container, cfg)
	if err := provider.RegisterAll(); err != nil {
		log.Fatalf("xlnd: failed to register services: %v", err)
	}

	srv, err := provider.GetServer()
	if err != nil {
		log.Fatalf("xlnd: failed to build server: %v", err)
	}
	if serverGenesis != "" {
		if err := registerGenesisEntities(srv, serverGenesis); err != nil {
			log.Fatalf("xlnd: failed to load genesis entities: %v", err)
		}
	}
	runtime, err := provider.GetRuntime()
	if err != nil {
		log.Fatalf("xlnd: failed to build replay runtime: %v", err)
	}
	store, err := provider.GetStore()
	if err != nil {
		log.Fatalf("xlnd: failed to open frame log: %v", err)
	}
	defer store.Close()

	grpcCfg := rpcapi.DefaultServerConfig()
	grpcCfg.Address = cfg.GRPCListen
	rpcServer, err := rpcapi.NewServer(grpcCfg, runtime, srv, store)
	if err != nil {
		log.Fatalf("xlnd: failed to build gRPC server: %v", err)
	}

	observer := rpcapi.NewObserverServer(srv)
	mux := http.NewServeMux()
	mux.Handle("/observe", observer)

	fmt.Printf("xlnd starting\n")
	fmt.Printf("  gRPC:      %s\n", cfg.GRPCListen)
	fmt.Printf("  WebSocket: %s/observe\n", cfg.WebsocketListen)
	fmt.Printf("  Data dir:  %s\n", cfg.DataDir)
	fmt.Printf("  Quorum:    %s\n", cfg.QuorumRule)
	fmt.Printf("  Proposer:  %s\n", cfg.ProposerRule)

	go func() {
		if err := rpcServer.Start(); err != nil {
			log.Fatalf("xlnd: gRPC server stopped: %v", err)
		}
	}()
	go func() {
		if err := http.ListenAndServe(cfg.WebsocketListen, mux); err != nil {
			log.Fatalf("xlnd: websocket server stopped: %v", err)
		}
	}()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()
	ctx := context.Background()
	for range ticker.C {
		if _, err := runtime.Tick(ctx); err != nil {
			log.Printf("xlnd: tick failed: %v", err)
		}
	}
}
