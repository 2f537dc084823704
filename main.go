package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sonyaz93/Divaparadise-ai/cmd"
	applog "github.com/sonyaz93/Divaparadise-ai/internal/log"
	"github.com/sonyaz93/Divaparadise-ai/pkg/build"
	"github.com/sonyaz93/Divaparadise-ai/pkg/core"
)

// main is the entry point for the engine host.
// The program flow is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Announce the core engine
//   - Install signal handling
//
// 2. Command Phase:
//   - Parse command line arguments and load configuration
//   - Run the selected command (process, spectrum or serve)
//
// 3. Shutdown Phase (Cold Path):
//   - Termination signals cancel the command context
//   - Commands close their transports and files before returning
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Initialize build information including version, commit hash, and build time
	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	core.InitEngine()

	// Setup signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// ==================== COMMAND PHASE ====================

	err := cmd.Execute(ctx, os.Args[1:])

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	stop()
	if err != nil {
		applog.Fatalf("%v", err)
	}
}
