package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/liuran001/MusicPreview-Go/music/app"
)

var (
	versionName = ""
	commitSHA   = ""
	buildTime   = ""
)

func main() {
	configPath := flag.String("c", "config.ini", "config file")
	headless := flag.Bool("headless", false, "search, print and preview without the terminal UI")
	query := flag.String("q", "", "headless search query")
	seconds := flag.Int("seconds", 10, "headless preview length in seconds")
	catalogName := flag.String("catalog", "", "catalog plugin override")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	buildInfo := app.BuildInfo{
		RuntimeVer: runtime.Version(),
		BinVersion: versionName,
		CommitSHA:  commitSHA,
		BuildTime:  buildTime,
		BuildArch:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	}
	if *showVersion {
		fmt.Printf("MusicPreview-Go %s (%s) built %s with %s for %s\n",
			buildInfo.BinVersion, buildInfo.CommitSHA, buildInfo.BuildTime, buildInfo.RuntimeVer, buildInfo.BuildArch)
		return
	}

	if _, err := os.Stat(*configPath); err != nil {
		*configPath = ""
	}

	if err := run(*configPath, *headless, *query, *seconds, *catalogName, buildInfo); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string, headless bool, query string, seconds int, catalogName string, buildInfo app.BuildInfo) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	application, err := app.New(ctx, app.Options{
		ConfigPath: configPath,
		Console:    headless,
		Catalog:    catalogName,
	}, buildInfo)
	if err != nil {
		return err
	}

	if headless {
		err = application.RunHeadless(ctx, query, time.Duration(seconds)*time.Second, os.Stdout)
	} else {
		err = application.RunTUI(ctx)
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if serr := application.Shutdown(shutdownCtx); serr != nil && err == nil {
		err = serr
	}
	return err
}
