// Package mcp serves rp-preproc processing as MCP tools over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"rppreproc/internal/config"
	"rppreproc/internal/logging"
	"rppreproc/internal/payload"
	"rppreproc/internal/preproc"
	"rppreproc/internal/rp"
)

// Server wraps the MCP SDK server. Processing calls run one at a time.
type Server struct {
	MCPServer *sdkmcp.Server

	mu        sync.Mutex
	logger    *slog.Logger
	rpOptions []rp.Option
	sender    *payload.Sender
	now       func() time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithRPOptions passes client options to the Report Portal client.
func WithRPOptions(opts ...rp.Option) Option {
	return func(s *Server) { s.rpOptions = append(s.rpOptions, opts...) }
}

// WithSender sets the sender used when the config names a service.
func WithSender(p *payload.Sender) Option {
	return func(s *Server) { s.sender = p }
}

// NewServer creates an MCP server with the processing tools registered.
func NewServer(version string, opts ...Option) *Server {
	s := &Server{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.Discard()
	}
	if s.sender == nil {
		s.sender = payload.NewSender(payload.WithLogger(s.logger))
	}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "rp-preproc", Version: version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "process_payload",
		Description: "Import a payload directory of xUnit XML results and attachments into Report Portal. Returns the launches created, the merged launch and dashboard when requested, and timing.",
	}, s.handleProcessPayload)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check_config",
		Description: "Resolve an rp-preproc config file against the environment and report the effective settings without contacting Report Portal.",
	}, s.handleCheckConfig)
}

// Run serves over stdio until ctx is cancelled or the parent exits.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	WatchParent(ctx, s.logger, cancel)
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}

// --- Tool input/output types ---

type processPayloadInput struct {
	ConfigFile    string `json:"config_file" jsonschema:"path to the rp-preproc JSON or YAML config file"`
	PayloadDir    string `json:"payload_dir,omitempty" jsonschema:"payload directory holding results/ and attachments/, overrides the config"`
	SimpleXML     *bool  `json:"simple_xml,omitempty" jsonschema:"send each XML file to launch/import without preprocessing"`
	MergeLaunches *bool  `json:"merge_launches,omitempty" jsonschema:"merge the launches of all result files into one"`
	AutoDashboard *bool  `json:"auto_dashboard,omitempty" jsonschema:"create or update a dashboard for the launch name"`
}

type checkConfigInput struct {
	ConfigFile string `json:"config_file" jsonschema:"path to the rp-preproc JSON or YAML config file"`
	PayloadDir string `json:"payload_dir,omitempty" jsonschema:"payload directory override"`
}

type checkConfigOutput struct {
	PayloadDir    string   `json:"payload_dir"`
	ServiceURL    string   `json:"service_url,omitempty"`
	HostURL       string   `json:"host_url"`
	Project       string   `json:"project"`
	TokenSet      bool     `json:"api_token_set"`
	LaunchName    string   `json:"launch_name,omitempty"`
	Tags          []string `json:"tags,omitempty"`
	SimpleXML     bool     `json:"simple_xml"`
	MergeLaunches bool     `json:"merge_launches"`
	AutoDashboard bool     `json:"auto_dashboard"`
	Valid         bool     `json:"valid"`
	Problem       string   `json:"problem,omitempty"`
}

func (in processPayloadInput) cli() map[string]any {
	cli := map[string]any{"config_file": in.ConfigFile}
	if in.PayloadDir != "" {
		cli["payload_dir"] = in.PayloadDir
	}
	for key, v := range map[string]*bool{
		"simple_xml":     in.SimpleXML,
		"merge_launches": in.MergeLaunches,
		"auto_dashboard": in.AutoDashboard,
	} {
		if v != nil {
			cli[key] = *v
		}
	}
	return cli
}

// --- Tool handlers ---

func (s *Server) handleProcessPayload(ctx context.Context, _ *sdkmcp.CallToolRequest, input processPayloadInput) (*sdkmcp.CallToolResult, preproc.Summary, error) {
	if input.ConfigFile == "" {
		return nil, preproc.Summary{}, fmt.Errorf("config_file is required")
	}
	settings, err := config.LoadFile(input.ConfigFile, input.cli())
	if err != nil {
		return nil, preproc.Summary{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	logger := s.logger.With("tool", "process_payload")
	start := s.now()
	var result any
	if settings.UseService() {
		reply, err := s.sender.Forward(ctx, settings)
		if err != nil {
			return nil, preproc.Summary{}, err
		}
		if !reply.OK() {
			return nil, preproc.Summary{}, fmt.Errorf("service replied HTTP %d: %s", reply.StatusCode, reply.Body)
		}
		result = json.RawMessage(reply.Body)
	} else {
		res, err := preproc.Run(ctx, settings, logger, s.rpOptions...)
		if err != nil {
			return nil, preproc.Summary{}, err
		}
		result = res
	}
	summary := preproc.Summarize(result, start, s.now())
	logger.InfoContext(ctx, "payload processed", "elapsed_s", summary.RPPreproc.ElapsedTime)
	return nil, summary, nil
}

func (s *Server) handleCheckConfig(_ context.Context, _ *sdkmcp.CallToolRequest, input checkConfigInput) (*sdkmcp.CallToolResult, checkConfigOutput, error) {
	cli := map[string]any{}
	if input.PayloadDir != "" {
		cli["payload_dir"] = input.PayloadDir
	}
	settings, err := config.LoadFile(input.ConfigFile, cli)
	if err != nil {
		return nil, checkConfigOutput{}, err
	}
	rpc := settings.ReportPortal
	out := checkConfigOutput{
		PayloadDir:    settings.PayloadDir,
		HostURL:       rpc.HostURL,
		Project:       rpc.Project,
		TokenSet:      rpc.APIToken != "",
		LaunchName:    rpc.Launch.Name,
		Tags:          rpc.Launch.Tags,
		SimpleXML:     settings.SimpleXML,
		MergeLaunches: settings.MergeLaunches,
		AutoDashboard: settings.AutoDashboard,
		Valid:         true,
	}
	if settings.UseService() {
		out.ServiceURL = settings.ServiceURL
	}
	if err := settings.Validate(); err != nil {
		out.Valid = false
		out.Problem = err.Error()
	}
	return nil, out, nil
}
