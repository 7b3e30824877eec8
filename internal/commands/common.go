package commands

import (
	"fmt"

	"github.com/maksimkurb/pbr-lens/internal/config"
	"github.com/maksimkurb/pbr-lens/internal/resolve"
	"github.com/maksimkurb/pbr-lens/internal/routing"
	"github.com/maksimkurb/pbr-lens/internal/snapshot"
)

// Runner is one CLI subcommand.
type Runner interface {
	Init(args []string, globalArgs *AppContext) error
	Run() error
	Name() string
}

// AppContext carries the global flags into every subcommand.
type AppContext struct {
	ConfigPath string
	Verbose    bool
}

// loadAndValidateConfigOrFail loads configuration from file and validates it.
func loadAndValidateConfigOrFail(configPath string) (*config.Config, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %v", err)
	}

	if err := cfg.ValidateConfig(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %v", err)
	}

	return cfg, nil
}

// newSource builds the snapshot source the configuration selects.
func newSource(cfg *config.Config) (routing.Source, error) {
	switch cfg.SourceOrDefault() {
	case config.SourceExec:
		binPath := ""
		if cfg.General != nil {
			binPath = cfg.General.IPBinary
		}
		return snapshot.NewExecSource(binPath), nil
	case config.SourceFile:
		return snapshot.NewFileSource(cfg.General.DumpDir), nil
	case config.SourceNetlink:
		return snapshot.NewNetlinkSource(), nil
	default:
		return nil, fmt.Errorf("unknown snapshot source %q", cfg.SourceOrDefault())
	}
}

// newBuiltManager creates a RouteManager from the configured source and runs
// the initial build.
func newBuiltManager(cfg *config.Config) (*routing.RouteManager, error) {
	source, err := newSource(cfg)
	if err != nil {
		return nil, err
	}

	manager := routing.NewRouteManager(source)
	if err := manager.BuildTables(); err != nil {
		return nil, err
	}
	return manager, nil
}

// newResolver creates the DNS resolver for hostname packet endpoints.
func newResolver(cfg *config.Config) *resolve.Resolver {
	server := ""
	if cfg.General != nil {
		server = cfg.General.Resolver
	}
	return resolve.NewResolver(server)
}

// buildPacket converts a scenario into a core Packet, resolving hostname
// endpoints through the resolver.
func buildPacket(resolver *resolve.Resolver, scenario *config.Scenario) (*routing.Packet, error) {
	family, err := routing.ParseFamily(scenario.Family)
	if err != nil {
		return nil, err
	}
	protocol, err := routing.ParseProtocol(scenario.Protocol)
	if err != nil {
		return nil, err
	}

	src, err := resolver.LookupAddr(scenario.Src, family)
	if err != nil {
		return nil, fmt.Errorf("src: %w", err)
	}
	dst, err := resolver.LookupAddr(scenario.Dst, family)
	if err != nil {
		return nil, fmt.Errorf("dst: %w", err)
	}

	return &routing.Packet{
		Family:         family,
		Protocol:       protocol,
		Src:            src,
		Dst:            dst,
		SrcPort:        scenario.SrcPort,
		DstPort:        scenario.DstPort,
		FwMark:         scenario.FwMark,
		InputInterface: scenario.IIF,
	}, nil
}
