package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/presbrey/ircserv/irc/config"
	"github.com/presbrey/ircserv/irc/server"
)

func main() {
	// Define command-line flags
	configSource := flag.String("config", "", "Configuration file or URL (yaml, toml or json)")
	adminAddr := flag.String("admin", "", "Enable the admin HTTP API on this address")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <port> <password>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 2 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configSource)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	port, err := strconv.Atoi(flag.Arg(0))
	if err != nil {
		log.Fatalf("Invalid port %q: %v", flag.Arg(0), err)
	}
	cfg.Server.Port = port
	cfg.Server.Password = flag.Arg(1)
	if *adminAddr != "" {
		cfg.Admin.Enabled = true
		cfg.Admin.Addr = *adminAddr
	}
	if *debug {
		cfg.Server.Debug = true
	}

	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// The signal path only cancels the context; the event loop does the rest
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("Starting IRC server %s on %s", cfg.Server.Name, cfg.ListenAddress())
	if err := srv.ListenAndServe(ctx); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server stopped. Goodbye!")
}
