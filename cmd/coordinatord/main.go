// Command coordinatord runs a single peer-to-peer workflow coordinator:
// it loads configuration, builds a Coordinator, runs the periodic
// assignment trigger, and serves the HTTP RPC facade.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/endomorphosis/ipfs-kit-py-sub032/api/httpapi"
	"github.com/endomorphosis/ipfs-kit-py-sub032/internal/coordinator"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/config"
	"github.com/endomorphosis/ipfs-kit-py-sub032/pkg/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "path to the coordinator's YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return 1
	}

	if err := log.InitGlobalLogger(cfg.LogConfigOrDefault()); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		return 1
	}

	coord, err := coordinator.New(coordinator.Options{
		PeerID:       cfg.PeerID,
		DataDir:      cfg.DataDir,
		SaveTimeout:  cfg.SaveTimeout,
		InitialPeers: cfg.InitialPeers,
	})
	if err != nil {
		log.Errorf("failed to construct coordinator: %v", err)
		return 1
	}

	runner := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	spec := fmt.Sprintf("@every %s", cfg.AssignInterval.String())
	if cfg.AssignInterval <= 0 {
		spec = "@every 10s"
	}
	_, err = runner.AddFunc(spec, func() {
		assigned, err := coord.AssignWorkflows(context.Background())
		if err != nil {
			log.Errorf("assign_workflows failed: %v", err)
			return
		}
		if len(assigned) > 0 {
			log.Infof("assign_workflows: assigned %d workflows", len(assigned))
		}
	})
	if err != nil {
		log.Errorf("failed to register assignment trigger: %v", err)
		return 1
	}
	runner.Start()
	defer runner.Stop()

	server := httpapi.NewServer(coord)

	errCh := make(chan error, 1)
	go func() {
		log.Infof("coordinatord listening on %s", cfg.HTTPAddr)
		errCh <- server.Run(cfg.HTTPAddr)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Errorf("http server exited: %v", err)
			return 1
		}
	case sig := <-sigCh:
		log.Infof("received %s, shutting down", sig)
	}

	// Give the cron scheduler's currently running job a moment to finish
	// before the process exits.
	ctx := runner.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
	return 0
}
