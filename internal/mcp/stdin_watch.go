package mcp

import (
	"context"
	"log/slog"
	"os"
	"time"
)

// ParentPollInterval is how often WatchParent checks the parent pid.
var ParentPollInterval = 2 * time.Second

// WatchParent cancels the server when the process that spawned it goes
// away, so an orphaned stdio server does not linger.
//
// It must not read stdin: the SDK's StdioTransport owns it and any stolen
// byte corrupts the JSON-RPC stream.
func WatchParent(ctx context.Context, logger *slog.Logger, cancel context.CancelFunc) {
	ppid := os.Getppid()
	go func() {
		ticker := time.NewTicker(ParentPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					logger.Warn("parent process exited, shutting down", "parent_pid", ppid)
					cancel()
					return
				}
			}
		}
	}()
}
