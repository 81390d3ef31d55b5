// Command metacache inspects and edits a metacache namespace from the shell.
// The backend is configured through CACHE_* environment variables (a .env
// file in the working directory is loaded first).
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/unkn0wn-root/metacache"
	"github.com/unkn0wn-root/metacache/codec"
	"github.com/unkn0wn-root/metacache/config"
	zaplog "github.com/unkn0wn-root/metacache/log/zap"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(context.Background(), os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	global := flag.NewFlagSet("metacache", flag.ContinueOnError)
	global.SetOutput(stderr)
	verbose := global.Bool("v", false, "debug logging")
	if err := global.Parse(args); err != nil {
		return 2
	}
	args = global.Args()
	if len(args) < 1 {
		printUsage(stderr)
		return 2
	}

	zl, err := newLogger(*verbose)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 1
	}
	defer zl.Sync() //nolint:errcheck
	log := zaplog.ZapLogger{L: zl}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}
	b, err := config.Open(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(stderr, "open: %v\n", err)
		return 1
	}
	opts := config.Options[string](cfg, b)
	opts.Codec = codec.String{}
	if cfg.Driver == "memcached" {
		opts.Codec = codec.ForMemcached[string](codec.String{})
	}
	opts.Logger = log
	c, err := metacache.New(opts)
	if err != nil {
		fmt.Fprintf(stderr, "init: %v\n", err)
		return 1
	}
	defer c.Close(ctx) //nolint:errcheck

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "get":
		return runGet(ctx, c, rest, stdout, stderr)
	case "has":
		return runHas(ctx, c, rest, stdout, stderr)
	case "set":
		return runSet(ctx, c, rest, stdout, stderr)
	case "rm":
		return runRemove(ctx, c, rest, stdout, stderr)
	case "rm-pattern":
		return runRemovePattern(ctx, c, rest, stdout, stderr)
	case "meta":
		return runMeta(ctx, c, rest, stdout, stderr)
	case "flush":
		return runFlush(ctx, c, rest, stdout, stderr)
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n", cmd)
		printUsage(stderr)
		return 2
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{"stderr"}
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return zc.Build()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "metacache - namespaced cache tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  metacache [-v] get KEY...            - print values (missing keys are skipped)")
	fmt.Fprintln(w, "  metacache [-v] has KEY               - exit 0 if present, 1 if not")
	fmt.Fprintln(w, "  metacache [-v] set [-ttl d] KEY VAL  - store a value")
	fmt.Fprintln(w, "  metacache [-v] rm KEY                - remove a value and its metadata")
	fmt.Fprintln(w, "  metacache [-v] rm-pattern GLOB       - remove registered keys matching GLOB")
	fmt.Fprintln(w, "  metacache [-v] meta KEY              - print last-modified and expiry times")
	fmt.Fprintln(w, "  metacache [-v] flush -yes            - flush the WHOLE backend, every prefix")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  CACHE_DRIVER       memcached | redis | ristretto | bigcache (default memcached)")
	fmt.Fprintln(w, "  CACHE_PREFIX       key namespace")
	fmt.Fprintln(w, "  CACHE_LIFETIME     default ttl (default 24h)")
	fmt.Fprintln(w, "  CACHE_STORE_INFO   record keys so rm-pattern works")
	fmt.Fprintln(w, "  MEMCACHED_SERVERS  host[:port[:weight]],... (default localhost:11211:100)")
}

func runGet(ctx context.Context, c metacache.Cache[string], args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "get: need at least one key")
		return 2
	}
	if len(args) == 1 {
		v, ok, err := c.Get(ctx, args[0])
		if err != nil {
			fmt.Fprintf(stderr, "get: %v\n", err)
			return 1
		}
		if !ok {
			return 1
		}
		fmt.Fprintln(stdout, v)
		return 0
	}
	found, err := c.GetMany(ctx, args)
	if err != nil {
		fmt.Fprintf(stderr, "get: %v\n", err)
		return 1
	}
	for _, k := range args {
		if v, ok := found[k]; ok {
			fmt.Fprintf(stdout, "%s\t%s\n", k, v)
		}
	}
	return 0
}

func runHas(ctx context.Context, c metacache.Cache[string], args []string, _, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "has: need exactly one key")
		return 2
	}
	ok, err := c.Has(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "has: %v\n", err)
		return 1
	}
	if !ok {
		return 1
	}
	return 0
}

func runSet(ctx context.Context, c metacache.Cache[string], args []string, _, stderr io.Writer) int {
	fs := flag.NewFlagSet("set", flag.ContinueOnError)
	fs.SetOutput(stderr)
	ttl := fs.Duration("ttl", 0, "lifetime; 0 uses CACHE_LIFETIME, negative never expires")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 2 {
		fmt.Fprintln(stderr, "set: need KEY and VALUE")
		return 2
	}
	ok, err := c.Set(ctx, fs.Arg(0), fs.Arg(1), *ttl)
	if err != nil {
		fmt.Fprintf(stderr, "set: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(stderr, "set: rejected by backend")
		return 1
	}
	return 0
}

func runRemove(ctx context.Context, c metacache.Cache[string], args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "rm: need exactly one key")
		return 2
	}
	ok, err := c.Remove(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "rm: %v\n", err)
		return 1
	}
	if !ok {
		fmt.Fprintln(stdout, "not found")
	}
	return 0
}

func runRemovePattern(ctx context.Context, c metacache.Cache[string], args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "rm-pattern: need exactly one pattern")
		return 2
	}
	n, err := c.RemovePattern(ctx, args[0])
	if errors.Is(err, metacache.ErrConfiguration) {
		fmt.Fprintf(stderr, "rm-pattern: %v (set CACHE_STORE_INFO=true)\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "removed %d\n", n)
	if err != nil {
		fmt.Fprintf(stderr, "rm-pattern: %v\n", err)
		return 1
	}
	return 0
}

func runMeta(ctx context.Context, c metacache.Cache[string], args []string, stdout, stderr io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(stderr, "meta: need exactly one key")
		return 2
	}
	lm, err := c.LastModified(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "meta: %v\n", err)
		return 1
	}
	to, err := c.Timeout(ctx, args[0])
	if err != nil {
		fmt.Fprintf(stderr, "meta: %v\n", err)
		return 1
	}
	fmt.Fprintf(stdout, "last_modified\t%s\n", stamp(lm))
	fmt.Fprintf(stdout, "timeout\t%s\n", stamp(to))
	return 0
}

func runFlush(ctx context.Context, c metacache.Cache[string], args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("flush", flag.ContinueOnError)
	fs.SetOutput(stderr)
	yes := fs.Bool("yes", false, "confirm flushing every prefix on the backend")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if !*yes {
		fmt.Fprintln(stderr, "flush: this empties the whole backend, not only this prefix; pass -yes")
		return 2
	}
	if err := c.Clean(ctx, metacache.CleanAll); err != nil {
		fmt.Fprintf(stderr, "flush: %v\n", err)
		return 1
	}
	fmt.Fprintln(stdout, "flushed")
	return 0
}

func stamp(unix int64) string {
	if unix == 0 {
		return "-"
	}
	return fmt.Sprintf("%d (%s)", unix, time.Unix(unix, 0).UTC().Format(time.RFC3339))
}
