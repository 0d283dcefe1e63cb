package mcp_test

import (
	"bufio"
	"context"
	"io"
	"testing"
	"time"

	"rppreproc/internal/logging"
	mcpserver "rppreproc/internal/mcp"
)

func TestWatchParent_StopsWhenContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mcpserver.WatchParent(ctx, logging.Discard(), cancel)
	cancel()
	time.Sleep(50 * time.Millisecond)
}

func TestWatchParent_KeepsRunningWhileParentAlive(t *testing.T) {
	old := mcpserver.ParentPollInterval
	mcpserver.ParentPollInterval = 10 * time.Millisecond
	t.Cleanup(func() { mcpserver.ParentPollInterval = old })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watched, stop := context.WithCancel(ctx)
	defer stop()

	mcpserver.WatchParent(watched, logging.Discard(), cancel)
	time.Sleep(60 * time.Millisecond)
	if ctx.Err() != nil {
		t.Fatal("watchdog cancelled while parent is alive")
	}
}

func TestWatchParent_DoesNotConsumeData(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pr, pw := io.Pipe()
	defer pr.Close()

	mcpserver.WatchParent(ctx, logging.Discard(), cancel)
	time.Sleep(50 * time.Millisecond)

	msg := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n"
	go func() {
		pw.Write([]byte(msg))
		time.Sleep(100 * time.Millisecond)
		pw.Close()
	}()

	scanner := bufio.NewScanner(pr)
	if !scanner.Scan() {
		t.Fatalf("reader got no data; err=%v", scanner.Err())
	}
	if got, want := scanner.Text(), `{"jsonrpc":"2.0","id":1,"method":"initialize"}`; got != want {
		t.Fatalf("reader got corrupted data:\n  got:  %q\n  want: %q", got, want)
	}
}
