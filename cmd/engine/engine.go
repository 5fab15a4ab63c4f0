package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nbd-wtf/go-nostr"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	redis "github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"timelock/engine/actors"
	"timelock/engine/library"
	"timelock/engine/metrics"
	"timelock/messaging/eventcatcher"
	"timelock/messaging/eventconductor"
	"timelock/state/blocks"
	"timelock/state/ledger"
	"timelock/state/timelock"
)

func main() {
	// Various aspect of this application require global and local settings. To keep things
	// clean and tidy we put these settings in a Viper configuration.
	conf := viper.New()

	// Now we initialise this configuration with basic settings that are required on startup.
	actors.InitConfig(conf)
	// make the config accessible globally
	actors.SetConfig(conf)
	library.SetLogLevel(conf.GetInt("logLevel"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, memStore := openStore(conf)
	clock := blocks.New(conf.GetStringSlice("clockOracles"))
	restore("blocks", clock)
	if memStore != nil {
		restore("ledger", memStore)
	}
	runtime := ledger.NewRuntime(store, clock)
	fundGenesis(ctx, conf, runtime)

	locks := timelock.New(timelock.WithFutureUnlockPolicy(conf.GetBool("requireFutureUnlock")))
	conductor := eventconductor.New(runtime, locks, clock)

	reg := metrics.NewRegistry()
	metrics.RegisterMetrics(reg)
	server := &http.Server{Addr: conf.GetString("metricsAddr"), Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			library.LogCLI(err.Error(), 1)
		}
	}()

	eventChan := make(chan nostr.Event)
	go conductor.Run(ctx, eventChan)
	for _, relay := range conf.GetStringSlice("relays") {
		go eventcatcher.SubscribeToRequests(relay, eventChan)
	}

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-interrupt
		actors.Shutdown()
	}()
	go cliListener(runtime, clock)

	<-actors.GetTerminateChan()
	library.LogCLI("Shutting down", 4)
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		library.LogCLI(err.Error(), 2)
	}
	waitOrTimeout(10 * time.Second)
	persist("blocks", clock)
	if memStore != nil {
		persist("ledger", memStore)
	}
	if err := store.Close(); err != nil {
		library.LogCLI(err.Error(), 2)
	}
	fmt.Println("Bye")
}

func openStore(conf *viper.Viper) (ledger.Store, *ledger.MemoryStore) {
	switch backend := conf.GetString("store"); backend {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: conf.GetString("redisAddr")})
		if err := client.Ping(context.Background()).Err(); err != nil {
			library.LogCLI(fmt.Sprintf("redis at %s: %s", conf.GetString("redisAddr"), err.Error()), 0)
			os.Exit(1)
		}
		return ledger.NewRedisStore(client), nil
	case "memory":
		m := ledger.NewMemoryStore()
		return m, m
	default:
		library.LogCLI("unknown store "+backend, 0)
		os.Exit(1)
	}
	return nil, nil
}

func fundGenesis(ctx context.Context, conf *viper.Viper, runtime *ledger.Runtime) {
	balances := make(map[library.Account]uint64)
	if err := conf.UnmarshalKey("genesisBalances", &balances); err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	funded, err := runtime.Genesis(ctx, balances)
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	if funded {
		library.LogCLI(fmt.Sprintf("Funded %d genesis accounts", len(balances)), 4)
	}
}

type snapshotter interface {
	Snapshot() ([]byte, error)
	Restore([]byte) error
}

func restore(mind string, s snapshotter) {
	b, ok, err := actors.ReadFlatFile(mind, "current")
	if err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	if !ok {
		return
	}
	if err := s.Restore(b); err != nil {
		library.LogCLI(err.Error(), 0)
		os.Exit(1)
	}
	library.LogCLI("Restored "+mind+" from disk", 4)
}

func persist(mind string, s snapshotter) {
	b, err := s.Snapshot()
	if err != nil {
		library.LogCLI(err.Error(), 1)
		return
	}
	if err := actors.WriteFlatFile(mind, "current", b); err != nil {
		library.LogCLI(err.Error(), 1)
	}
}

func waitOrTimeout(d time.Duration) {
	done := make(chan struct{})
	go func() {
		actors.GetWaitGroup().Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(d):
		library.LogCLI("timed out waiting for goroutines to stop", 2)
	}
}
