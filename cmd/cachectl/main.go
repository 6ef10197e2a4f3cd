// Command cachectl inspects and maintains a dashboard cache directory from
// the command line, without going through the HTTP API.
//
// Usage:
//
//	go run ./cmd/cachectl -cache-dir ./cache stats
//	go run ./cmd/cachectl -cache-dir ./cache cleanup
//	go run ./cmd/cachectl -cache-dir ./cache clear
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/couchcryptid/weather-alert-dashboard/internal/cache"
)

func main() {
	cacheDir := flag.String("cache-dir", "cache", "root of the cache directory tree")
	verbose := flag.Bool("v", false, "log cache operations to stderr")
	flag.Parse()

	cmd := flag.Arg(0)
	if cmd == "" {
		fmt.Fprintln(os.Stderr, "usage: cachectl [-cache-dir dir] stats|cleanup|clear")
		os.Exit(1)
	}

	logOut := io.Discard
	if *verbose {
		logOut = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(logOut, nil))

	mgr, err := cache.NewManager(*cacheDir, cache.Options{Logger: logger})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(mgr, cmd))
}

func run(mgr *cache.Manager, cmd string) int {
	switch cmd {
	case "stats":
		return printJSON(mgr.Stats())
	case "cleanup":
		return printJSON(mgr.CleanupExpired())
	case "clear":
		if !mgr.ClearAll() {
			fmt.Fprintln(os.Stderr, "cachectl: clear failed")
			return 1
		}
		fmt.Println("cache cleared")
		return 0
	default:
		fmt.Fprintf(os.Stderr, "cachectl: unknown command %q\n", cmd)
		return 1
	}
}

func printJSON(v any) int {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "cachectl: %v\n", err)
		return 1
	}
	fmt.Println(string(out))
	return 0
}
