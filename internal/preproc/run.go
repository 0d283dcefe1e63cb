package preproc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"rppreproc/internal/config"
	"rppreproc/internal/logging"
	"rppreproc/internal/rp"
)

// Run validates settings, opens a session against the configured Report
// Portal and processes the payload.
func Run(ctx context.Context, settings config.Settings, logger *slog.Logger, opts ...rp.Option) (*Result, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Discard()
	}
	rpc := settings.ReportPortal
	clientOpts := append([]rp.Option{
		rp.WithLogger(logger),
		rp.WithInsecureSkipVerify(!rpc.VerifyTLS),
	}, opts...)
	client, err := rp.New(rpc.HostURL, rpc.APIToken, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrConfig, err)
	}
	session := rp.NewSession(client, rpc.Project, rp.WithSessionLogger(logger))
	logger.InfoContext(ctx, "session opened", "endpoint", session.Endpoint(), "project", rpc.Project, "run_id", session.RunID())
	return NewProcessor(settings, session, WithLogger(logger)).Process(ctx)
}

// Timing is the rp_preproc block of the summary, in unix seconds.
type Timing struct {
	StartTime   int64 `json:"start_time"`
	EndTime     int64 `json:"end_time"`
	ElapsedTime int64 `json:"elapsed_time"`
}

// Summary is the document printed at the end of an import.
type Summary struct {
	ReportPortal any    `json:"reportportal"`
	RPPreproc    Timing `json:"rp_preproc"`
}

// Summarize wraps result, a *Result or a service reply, with run timing.
func Summarize(result any, start, end time.Time) Summary {
	return Summary{
		ReportPortal: result,
		RPPreproc: Timing{
			StartTime:   start.Unix(),
			EndTime:     end.Unix(),
			ElapsedTime: end.Unix() - start.Unix(),
		},
	}
}
