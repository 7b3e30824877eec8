package commands

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/maksimkurb/pbr-lens/internal/api"
	"github.com/maksimkurb/pbr-lens/internal/config"
	"github.com/maksimkurb/pbr-lens/internal/log"
)

// ServeCommand runs the HTTP API server exposing decisions over REST.
type ServeCommand struct {
	fs  *flag.FlagSet
	cfg *config.Config

	BindAddr string
}

// CreateServeCommand creates the serve command.
func CreateServeCommand() *ServeCommand {
	c := &ServeCommand{
		fs: flag.NewFlagSet("serve", flag.ExitOnError),
	}

	c.fs.StringVar(&c.BindAddr, "bind", "127.0.0.1:8080", "Address to bind the HTTP server")

	return c
}

// Name returns the command name.
func (c *ServeCommand) Name() string {
	return c.fs.Name()
}

// Init parses flags and loads the configuration.
func (c *ServeCommand) Init(args []string, ctx *AppContext) error {
	if err := c.fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadAndValidateConfigOrFail(ctx.ConfigPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	// Config value wins over the flag default.
	if cfg.General != nil && cfg.General.APIListen != "" {
		c.BindAddr = cfg.General.APIListen
	}

	return nil
}

// Run builds the tables and serves the API until interrupted.
func (c *ServeCommand) Run() error {
	manager, err := newBuiltManager(c.cfg)
	if err != nil {
		return err
	}

	handler := api.NewHandler(manager, newResolver(c.cfg), c.cfg.Templates())
	server := api.NewServer(c.BindAddr, handler)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Infof("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Stop(shutdownCtx)
}
