package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/maksimkurb/pbr-lens/internal/commands"
	"github.com/maksimkurb/pbr-lens/internal/log"
)

var (
	version = "dev"
	commit  = "n/a"
	date    = "n/a"
)

func main() {
	ctx := &commands.AppContext{}

	// Define flags
	flag.StringVar(&ctx.ConfigPath, "config", "/etc/pbr-lens/pbr-lens.conf", "Path to configuration file")
	flag.BoolVar(&ctx.Verbose, "verbose", false, "Enable debug logging")

	// Custom usage message
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Offline Linux Policy-Routing Decision Simulator\n")
		fmt.Fprintf(os.Stderr, "Version: %s (Commit: %s, Date: %s)\n\n", version, commit, date)
		fmt.Fprintf(os.Stderr, "Usage: %s [options] <command>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Commands:\n")
		fmt.Fprintf(os.Stderr, "  simulate                Evaluate configured scenarios (or an ad-hoc packet) against the routing snapshot\n")
		fmt.Fprintf(os.Stderr, "  show                    Print the parsed policy rules and routing tables\n")
		fmt.Fprintf(os.Stderr, "  self-check              Build the snapshot and report parse statistics\n")
		fmt.Fprintf(os.Stderr, "  serve                   Run the HTTP API server\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}

	flag.Parse()

	if ctx.Verbose {
		log.SetVerbose(true)
	}

	cmds := []commands.Runner{
		commands.CreateSimulateCommand(),
		commands.CreateShowCommand(),
		commands.CreateSelfCheckCommand(),
		commands.CreateServeCommand(),
	}

	args := flag.Args()

	if len(args) < 1 {
		flag.Usage()
		os.Exit(1)
	}

	subcommand := args[0]
	for _, cmd := range cmds {
		if cmd.Name() == subcommand {
			if err := cmd.Init(args[1:], ctx); err != nil {
				log.Fatalf("Failed to initialize command: %v", err)
			}

			if err := cmd.Run(); err != nil {
				log.Fatalf("Failed to run command: %v", err)
			}

			os.Exit(0)
		}
	}

	log.Fatalf("Unknown subcommand: %s", subcommand)
}
