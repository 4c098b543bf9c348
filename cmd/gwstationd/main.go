package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrissnell/gwstationd/internal/app"
	"github.com/chrissnell/gwstationd/internal/log"
	"github.com/chrissnell/gwstationd/pkg/config"
)

func main() {
	cfgPath := flag.String("config", "gwstationd.yaml", "path to the YAML configuration file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	if err := log.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "initializing logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	provider := config.NewYAMLProvider(*cfgPath)
	defer provider.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, provider, log.GetSugaredLogger())
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	if err := a.Run(); err != nil {
		log.Fatalf("%v", err)
	}
}
