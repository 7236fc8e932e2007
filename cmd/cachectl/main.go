// Command cachectl is an operator front-end for the cache access
// coordinator: it opens a coordinator against a directory and exercises
// put/get/stat/serve against it. It is not part of the coordinator's own
// contract, just a small driver for the library.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cachecoord/pkg/cacheaccess"
	"cachecoord/pkg/config"
	"cachecoord/pkg/filelock"
	"cachecoord/pkg/metrics"
	"cachecoord/pkg/storedcache"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(2)
	}
	subcommand := os.Args[1]

	fs := flag.NewFlagSet(subcommand, flag.ExitOnError)
	cfg := config.Config{}
	config.RegisterFlags(fs, &cfg)
	if err := fs.Parse(os.Args[2:]); err != nil {
		log.Fatalf("parse flags: %v", err)
	}

	coord, m, err := buildCoordinator(cfg)
	if err != nil {
		log.Fatalf("build coordinator: %v", err)
	}
	if err := coord.Open(); err != nil {
		log.Fatalf("open coordinator: %v", err)
	}
	defer coord.Close()

	if m != nil && cfg.MetricsAddr != "" {
		go m.Serve(cfg.MetricsAddr)
	}

	ctx := context.Background()
	args := fs.Args()

	switch subcommand {
	case "put":
		err = runPut(ctx, coord, args)
	case "get":
		err = runGet(ctx, coord, args)
	case "stat":
		err = runStat(ctx, coord, args)
	case "serve":
		err = runServe(ctx, coord)
	default:
		printUsage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s: %v", subcommand, err)
	}
}

func buildCoordinator(cfg config.Config) (*cacheaccess.Coordinator, *metrics.CoordinatorMetrics, error) {
	mode := cacheaccess.ModeExclusive
	switch cfg.Mode {
	case config.LockModeShared:
		mode = cacheaccess.ModeShared
	case config.LockModeNone:
		mode = cacheaccess.ModeNone
	}

	manager := filelock.NewManager(log.New(os.Stderr, "[filelock] ", log.LstdFlags), cfg.WaiterPollInterval)

	newStore := func(name string) (cacheaccess.IndexedCache, error) {
		return storedcache.Open(cfg.CacheDir, name)
	}

	var m *metrics.CoordinatorMetrics
	opts := []cacheaccess.Option{cacheaccess.WithLRUSize(cfg.LRUSize)}
	if cfg.MetricsAddr != "" {
		m = metrics.NewCoordinatorMetrics()
		opts = append(opts, cacheaccess.WithMetrics(m))
	}

	init := storedcache.Initializer{Dir: cfg.CacheDir, Name: "default"}
	coord := cacheaccess.New(mode, cfg.LockFilePath, "cachectl", manager, init, newStore, opts...)
	return coord, m, nil
}

func runPut(ctx context.Context, coord *cacheaccess.Coordinator, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: cachectl put <cache> <key> <value>")
	}
	cacheName, key, value := args[0], args[1], args[2]
	return coord.UseCache(ctx, "put "+cacheName, func(ctx context.Context) error {
		cache, err := coord.NewCache(cacheaccess.CacheParameters{Name: cacheName, KeyType: "string", ValueType: "string"})
		if err != nil {
			return err
		}
		return cache.Put(key, value)
	})
}

func runGet(ctx context.Context, coord *cacheaccess.Coordinator, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: cachectl get <cache> <key>")
	}
	cacheName, key := args[0], args[1]
	return coord.UseCache(ctx, "get "+cacheName, func(ctx context.Context) error {
		cache, err := coord.NewCache(cacheaccess.CacheParameters{Name: cacheName, KeyType: "string", ValueType: "string"})
		if err != nil {
			return err
		}
		value, ok, err := cache.Get(key)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Println(value.(string))
		return nil
	})
}

func runStat(ctx context.Context, coord *cacheaccess.Coordinator, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: cachectl stat <cache>")
	}
	cacheName := args[0]
	return coord.UseCache(ctx, "stat "+cacheName, func(ctx context.Context) error {
		cache, err := coord.NewCache(cacheaccess.CacheParameters{Name: cacheName, KeyType: "string", ValueType: "string"})
		if err != nil {
			return err
		}
		stats := cache.Stats()
		fmt.Printf("%s: hits=%d misses=%d evictions=%d\n", cacheName, stats.Hits, stats.Misses, stats.Evictions)
		return nil
	})
}

func runServe(ctx context.Context, coord *cacheaccess.Coordinator) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	log.Printf("cachectl serving, press ctrl-c to exit")
	<-sig
	log.Printf("shutting down")
	return nil
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: cachectl <put|get|stat|serve> [flags] [args]")
	fmt.Fprintln(os.Stderr, "  put <cache> <key> <value>")
	fmt.Fprintln(os.Stderr, "  get <cache> <key>")
	fmt.Fprintln(os.Stderr, "  stat <cache>")
	fmt.Fprintln(os.Stderr, "  serve")
	fmt.Fprintln(os.Stderr)
	fmt.Fprintln(os.Stderr, "flags (apply to all subcommands):")
	fmt.Fprintln(os.Stderr, "  -lock-mode, -lock-file, -cache-dir, -metrics-addr, -waiter-poll-interval, -lru-size")
}
