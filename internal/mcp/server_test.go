package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	mcpserver "rppreproc/internal/mcp"
	"rppreproc/internal/rp/rptest"
)

const passingXML = `<testsuite name="S1" failures="0" errors="0">
  <testcase classname="pkg" name="t1" time="0.1"/>
</testsuite>`

func connectInMemory(t *testing.T, ctx context.Context, srv *mcpserver.Server) *sdkmcp.ClientSession {
	t.Helper()
	t1, t2 := sdkmcp.NewInMemoryTransports()
	serverSession, err := srv.MCPServer.Connect(ctx, t1, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}
	t.Cleanup(func() { serverSession.Close() })

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, t2, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

// callTool returns the decoded text content and whether the tool failed.
func callTool(t *testing.T, ctx context.Context, session *sdkmcp.ClientSession, name string, args map[string]any) (map[string]any, string) {
	t.Helper()
	res, err := session.CallTool(ctx, &sdkmcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	for _, c := range res.Content {
		tc, ok := c.(*sdkmcp.TextContent)
		if !ok {
			continue
		}
		if res.IsError {
			return nil, tc.Text
		}
		result := map[string]any{}
		if err := json.Unmarshal([]byte(tc.Text), &result); err != nil {
			t.Fatalf("unmarshal tool result: %v (text: %s)", err, tc.Text)
		}
		return result, ""
	}
	if res.IsError {
		return nil, "error without text"
	}
	t.Fatalf("CallTool(%s) returned no text content", name)
	return nil, ""
}

func writeFixture(t *testing.T, srv *rptest.Server) (configPath, payloadDir string) {
	t.Helper()
	dir := t.TempDir()
	payloadDir = filepath.Join(dir, "payload")
	if err := os.MkdirAll(filepath.Join(payloadDir, "results"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(payloadDir, "results", "junit.xml"), []byte(passingXML), 0o644); err != nil {
		t.Fatal(err)
	}
	configPath = filepath.Join(dir, "rp.json")
	cfg := fmt.Sprintf(`{"reportportal": {"host_url": %q, "api_token": %q, "project": %q, "launch": {"name": "mcp"}}}`,
		srv.URL, srv.Token, srv.Project)
	if err := os.WriteFile(configPath, []byte(cfg), 0o644); err != nil {
		t.Fatal(err)
	}
	return configPath, payloadDir
}

func TestProcessPayload(t *testing.T) {
	ctx := context.Background()
	rps := rptest.New(t, "qe")
	configPath, payloadDir := writeFixture(t, rps)
	session := connectInMemory(t, ctx, mcpserver.NewServer("test"))

	got, errText := callTool(t, ctx, session, "process_payload", map[string]any{
		"config_file": configPath,
		"payload_dir": payloadDir,
	})
	if errText != "" {
		t.Fatalf("process_payload failed: %s", errText)
	}
	report, ok := got["reportportal"].(map[string]any)
	if !ok {
		t.Fatalf("reportportal missing: %v", got)
	}
	launches, _ := report["launches"].([]any)
	if len(launches) != 1 || launches[0] != "launch-1" {
		t.Errorf("launches = %v", report["launches"])
	}
	timing, _ := got["rp_preproc"].(map[string]any)
	if _, ok := timing["elapsed_time"]; !ok {
		t.Errorf("rp_preproc timing missing: %v", got)
	}
	if l := rps.Launches(); len(l) != 1 || l[0].Name != "mcp" {
		t.Errorf("launches on server = %+v", l)
	}
}

func TestProcessPayload_Errors(t *testing.T) {
	ctx := context.Background()
	rps := rptest.New(t, "qe")
	configPath, _ := writeFixture(t, rps)
	session := connectInMemory(t, ctx, mcpserver.NewServer("test"))

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing config file", map[string]any{"config_file": filepath.Join(t.TempDir(), "nope.json")}},
		{"no payload dir", map[string]any{"config_file": configPath}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, errText := callTool(t, ctx, session, "process_payload", tc.args); errText == "" {
				t.Error("expected tool error")
			}
		})
	}
	if n := len(rps.Calls()); n != 0 {
		t.Errorf("failed calls reached Report Portal %d times", n)
	}
}

func TestCheckConfig(t *testing.T) {
	ctx := context.Background()
	rps := rptest.New(t, "qe")
	configPath, payloadDir := writeFixture(t, rps)
	session := connectInMemory(t, ctx, mcpserver.NewServer("test"))

	got, errText := callTool(t, ctx, session, "check_config", map[string]any{"config_file": configPath})
	if errText != "" {
		t.Fatalf("check_config failed: %s", errText)
	}
	if got["valid"] != false || got["project"] != "qe" || got["api_token_set"] != true {
		t.Errorf("without payload dir: %v", got)
	}

	got, _ = callTool(t, ctx, session, "check_config", map[string]any{"config_file": configPath, "payload_dir": payloadDir})
	if got["valid"] != true || got["payload_dir"] != payloadDir || got["launch_name"] != "mcp" {
		t.Errorf("with payload dir: %v", got)
	}
}
