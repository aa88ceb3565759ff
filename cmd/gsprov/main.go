// Package main is the entry point for the gsprov CLI.
//
// gsprov installs and removes dedicated game servers on Linux hosts. Every
// step checks the host before changing it, so an interrupted run can simply
// be repeated.
//
// For detailed usage information, run:
//
//	gsprov --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/gsprov/cmd/gsprov/commands"
	"github.com/imamik/gsprov/internal/ui/style"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, style.Fatal(err))
		os.Exit(1)
	}
}
