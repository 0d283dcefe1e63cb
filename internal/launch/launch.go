// Package launch models one Report Portal launch: a top-level run that
// brackets the items created for a single result document.
package launch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"rppreproc/internal/rp"
)

var (
	ErrAlreadyStarted  = errors.New("launch: already started")
	ErrNotStarted      = errors.New("launch: not started")
	ErrAlreadyFinished = errors.New("launch: already finished")
)

// Defaults used when the config names no launch.
const (
	DefaultName        = "RP PreProc Example Launch"
	DefaultDescription = "Example launch created by RP PreProc"
	partSuffix         = " (part)"
)

// State is the lifecycle position of a launch.
type State int

const (
	NotStarted State = iota
	Started
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Started:
		return "started"
	case Finished:
		return "finished"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Service opens and closes launches on the server. *rp.Session implements it.
type Service interface {
	StartLaunch(ctx context.Context, rq rp.StartLaunchRQ) (string, error)
	FinishLaunch(ctx context.Context, id string, rq rp.FinishExecutionRQ) error
}

// Registrar records finished launch ids. *rp.Registry implements it.
type Registrar interface {
	Add(id string)
}

// Options describes the launch to open.
type Options struct {
	// Override replaces every other naming rule when set.
	Override    string
	Name        string
	Description string
	Tags        []string
	// MergeMode names the launch after RunID and marks it as a part.
	MergeMode bool
	RunID     string

	Now    func() time.Time
	Logger *slog.Logger
}

// ResolveName applies the naming rules: override, then the run id in merge
// mode, then the configured name, then DefaultName. Merge mode appends
// " (part)" to whatever was chosen.
func ResolveName(o Options) string {
	var name string
	switch {
	case o.Override != "":
		name = o.Override
	case o.MergeMode && o.RunID != "":
		name = o.RunID
	case o.Name != "":
		name = o.Name
	default:
		name = DefaultName
	}
	if o.MergeMode {
		name += partSuffix
	}
	return name
}

// Launch is a single launch moving through NotStarted → Started → Finished.
// It is not safe for concurrent use.
type Launch struct {
	svc         Service
	registry    Registrar
	name        string
	description string
	tags        []string
	now         func() time.Time
	logger      *slog.Logger

	state     State
	id        string
	startTime time.Time
	endTime   time.Time
}

// New prepares a launch; nothing is sent until Start.
func New(svc Service, registry Registrar, o Options) *Launch {
	l := &Launch{
		svc:         svc,
		registry:    registry,
		name:        ResolveName(o),
		description: o.Description,
		tags:        append([]string(nil), o.Tags...),
		now:         o.Now,
		logger:      o.Logger,
	}
	if l.description == "" {
		l.description = DefaultDescription
	}
	if l.now == nil {
		l.now = time.Now
	}
	if l.logger == nil {
		l.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}

// Start opens the launch and returns the id the server assigned.
func (l *Launch) Start(ctx context.Context) (string, error) {
	if l.state != NotStarted {
		return "", ErrAlreadyStarted
	}
	l.startTime = l.now()
	id, err := l.svc.StartLaunch(ctx, rp.StartLaunchRQ{
		Name:        l.name,
		Description: l.description,
		StartTime:   rp.EpochMillis(l.startTime),
		Attributes:  rp.TagAttributes(l.tags),
	})
	if err != nil {
		return "", fmt.Errorf("start launch %q: %w", l.name, err)
	}
	l.id = id
	l.state = Started
	l.logger.InfoContext(ctx, "launch started", "launch", l.name, "launch_id", id)
	return id, nil
}

// Finish closes the launch and registers its id. Registration happens here,
// never on Start.
func (l *Launch) Finish(ctx context.Context) error {
	switch l.state {
	case NotStarted:
		return ErrNotStarted
	case Finished:
		return ErrAlreadyFinished
	}
	l.endTime = l.now()
	if err := l.svc.FinishLaunch(ctx, l.id, rp.FinishExecutionRQ{EndTime: rp.EpochMillis(l.endTime)}); err != nil {
		return fmt.Errorf("finish launch %s: %w", l.id, err)
	}
	l.state = Finished
	if l.registry != nil {
		l.registry.Add(l.id)
	}
	l.logger.InfoContext(ctx, "launch finished", "launch_id", l.id, "elapsed_ms", l.Elapsed().Milliseconds())
	return nil
}

// ID returns the server id, empty before Start.
func (l *Launch) ID() string { return l.id }

// Name returns the resolved launch name.
func (l *Launch) Name() string { return l.name }

// State returns the lifecycle state.
func (l *Launch) State() State { return l.state }

// Elapsed is end minus start in whole milliseconds. Unset times count as now.
func (l *Launch) Elapsed() time.Duration {
	start, end := l.startTime, l.endTime
	if start.IsZero() {
		start = l.now()
	}
	if end.IsZero() {
		end = l.now()
	}
	return end.Sub(start).Truncate(time.Millisecond)
}
