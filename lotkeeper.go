package main

import (
	stdContext "context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/templestuart/lotkeeper/clock"
	"github.com/templestuart/lotkeeper/db"
	"github.com/templestuart/lotkeeper/env"
	"github.com/templestuart/lotkeeper/log"
	"github.com/templestuart/lotkeeper/migration"
	"github.com/templestuart/lotkeeper/rest"
	"github.com/templestuart/lotkeeper/service/registry"
)

func init() {
	// set the clock
	clock.Set()

	// register env defaults
	env.RegisterDefault("LOTKEEPER_MODE", "DEV")
	env.RegisterDefault("LOTKEEPER_PORT", "5996")
	env.RegisterDefault("PGHOST", "127.0.0.1")
	env.RegisterDefault("PGUSER", "postgres")
	env.RegisterDefault("PGDATABASE", "lotkeeper")

	flag.Parse()

	// set deployment level on logger
	log.Logger().SetDeploymentLevel(env.GetVar("LOTKEEPER_MODE"))
}

func shutdown() {
	timeout := time.Second
	ctx, cancel := stdContext.WithTimeout(stdContext.Background(), timeout)
	defer cancel()

	if err := rest.Shutdown(ctx); err != nil {
		log.Error("rest shutdown failure", "error", err)
	}
}

func main() {
	conn, err := db.New()
	if err != nil {
		log.Fatal("database initialization failure", "error", err)
	}

	defer conn.Close()

	if err := migration.Migration(conn).Migrate(); err != nil {
		log.Fatal("database migration failure", "error", err)
	}

	sigC := make(chan os.Signal, 1)
	signal.Notify(sigC, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigC
		log.Info("shutting down", "signal", sig)
		shutdown()
	}()

	log.Info("lotkeeper is live", "mode", env.GetVar("LOTKEEPER_MODE"), "clock", clock.Now())

	if err := rest.Start(env.GetVar("LOTKEEPER_PORT"), registry.New(), conn); err != nil {
		if !strings.Contains(err.Error(), "Server closed") {
			log.Fatal("rest server unexpectedly exited", "error", err)
		}
	}
}
