package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"github.com/pkg/errors"

	dig_container "github.com/darulhuda/madrasa/apps/api/di/dig"
	echoapi "github.com/darulhuda/madrasa/apps/api/echo"
	"github.com/darulhuda/madrasa/core"
	"github.com/darulhuda/madrasa/services/scheduler"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		cleanup *dig_container.Cleanup,
		shutdown dig_container.ShutdownChan,
		server echoapi.Server,
		jobs *scheduler.Scheduler,
	) {
		// =========================================================================
		// Initialize App

		apiLogger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
		defer apiLogger.Info("Application stopped")

		signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

		// =========================================================================
		// Start Debug Service
		//
		// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
		// /debug/vars - Added to the default mux by importing the expvar package.

		expvar.NewString("build").Set(conf.Build)
		expvar.NewString("env").Set(conf.Env)

		if conf.Server.DebugHost != "" {
			go func() {
				if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
					apiLogger.Error(fmt.Sprintf("debug server closed: %v", err), err)
				}
			}()
		}

		// =========================================================================
		// Start API Service & Jobs

		serverErrors := make(chan error, 1)
		go func() {
			apiLogger.Info("API listening on " + conf.Server.Addr)
			serverErrors <- server.Start()
		}()
		jobs.Start()

		// =========================================================================
		// Shutdown

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				apiLogger.Error(fmt.Sprintf("server error: %v", err), err)
			}

		case sig := <-shutdown:
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
		}

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Stop(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		}
		jobs.Stop(ctx)
		if err := cleanup.Run(ctx); err != nil {
			apiLogger.Error(fmt.Sprintf("releasing resources: %v", err), err)
		}
	}))
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
