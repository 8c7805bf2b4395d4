package di

import (
	"github.com/xlnnetwork/xln/internal/config"
	"github.com/xlnnetwork/xln/internal/replay"
	"github.com/xlnnetwork/xln/internal/server"
	storagepebble "github.com/xlnnetwork/xln/internal/storage/pebble"
)

// Provider configures and registers XLN services in the container:
// config, the pebble-backed frame log, the tick-loop server, and the
// replay runtime wrapping it. Grounded on the teacher's
// internal/di/provider.go registration pattern (lazy builders resolved
// through Container.Get), repointed from goXRPLd's ledger/nodestore/
// relationaldb services to XLN's server/replay/storage stack.
type Provider struct {
	container *Container
	config    *config.Config
}

// NewProvider creates a new service provider.
func NewProvider(container *Container, cfg *config.Config) *Provider {
	return &Provider{
		container: container,
		config:    cfg,
	}
}

// RegisterAll registers all services.
func (p *Provider) RegisterAll() error {
	p.container.Register(ServiceConfig, p.config)
	p.registerStorageBuilders()
	p.registerServerBuilders()
	p.registerRuntimeBuilders()
	return nil
}

// registerStorageBuilders registers the durable frame log builder.
func (p *Provider) registerStorageBuilders() {
	p.container.RegisterBuilder(ServiceStore, func(c *Container) (interface{}, error) {
		return storagepebble.Open(p.config.DataDir)
	})
}

// registerServerBuilders registers the tick-loop server builder. The
// server itself starts with no entities registered; callers obtain it
// via GetServer and call RegisterEntity/CreateEntity before driving
// Tick (spec.md §3 Lifecycles: entities are created by a registration
// input, not by server construction).
func (p *Provider) registerServerBuilders() {
	p.container.RegisterBuilder(ServiceServer, func(c *Container) (interface{}, error) {
		cfg, err := server.ConfigFromFile(p.config)
		if err != nil {
			return nil, err
		}
		return server.New(cfg), nil
	})
}

// registerRuntimeBuilders registers the replay.Runtime wiring the
// server to its frame log with the configured snapshot cadence.
func (p *Provider) registerRuntimeBuilders() {
	p.container.RegisterBuilder(ServiceRuntime, func(c *Container) (interface{}, error) {
		srvVal, err := c.Get(ServiceServer)
		if err != nil {
			return nil, err
		}
		storeVal, err := c.Get(ServiceStore)
		if err != nil {
			return nil, err
		}
		return replay.New(srvVal.(*server.Server), storeVal.(*storagepebble.Store), replay.Config{
			SnapshotIntervalFrames: p.config.SnapshotIntervalFrames,
			CacheSize:              p.config.ReplayCacheSize,
		})
	})
}

// GetServer returns the tick-loop server from the container.
func (p *Provider) GetServer() (*server.Server, error) {
	svc, err := p.container.Get(ServiceServer)
	if err != nil {
		return nil, err
	}
	return svc.(*server.Server), nil
}

// GetRuntime returns the replay runtime from the container.
func (p *Provider) GetRuntime() (*replay.Runtime, error) {
	svc, err := p.container.Get(ServiceRuntime)
	if err != nil {
		return nil, err
	}
	return svc.(*replay.Runtime), nil
}

// GetStore returns the durable frame log from the container.
func (p *Provider) GetStore() (*storagepebble.Store, error) {
	svc, err := p.container.Get(ServiceStore)
	if err != nil {
		return nil, err
	}
	return svc.(*storagepebble.Store), nil
}

// GetConfig returns the configuration from the container.
func (p *Provider) GetConfig() *config.Config {
	return p.config
}
