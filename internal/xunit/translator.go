package xunit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"rppreproc/internal/launch"
	"rppreproc/internal/rp"
)

// Reporter is the Report Portal surface the translator drives. *rp.Session
// implements it.
type Reporter interface {
	launch.Service
	StartItem(ctx context.Context, parentID string, rq rp.StartTestItemRQ) (string, error)
	FinishItem(ctx context.Context, id string, rq rp.FinishTestItemRQ) error
	Log(ctx context.Context, rq rp.SaveLogRQ) error
	Attach(ctx context.Context, rq rp.SaveLogRQ, path string) error
}

// Translator replays documents as launches. Each Translate call opens and
// finishes exactly one launch.
type Translator struct {
	reporter   Reporter
	registry   launch.Registrar
	launchOpts launch.Options
	payloadDir string
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithLaunchOptions sets how each launch is named and tagged.
func WithLaunchOptions(o launch.Options) Option {
	return func(t *Translator) { t.launchOpts = o }
}

// WithPayloadDir sets the payload root searched for attachments.
func WithPayloadDir(dir string) Option {
	return func(t *Translator) { t.payloadDir = dir }
}

// WithClock replaces time.Now for item and log timestamps.
func WithClock(now func() time.Time) Option {
	return func(t *Translator) { t.now = now }
}

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(t *Translator) { t.logger = l }
}

// NewTranslator returns a translator reporting through r and registering
// finished launches in registry.
func NewTranslator(r Reporter, registry launch.Registrar, opts ...Option) *Translator {
	t := &Translator{reporter: r, registry: registry, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return t
}

// Translate reports doc as one launch and returns its id. xmlName is the
// result file name without extension, used to find attachments.
func (t *Translator) Translate(ctx context.Context, doc *Document, xmlName string) (string, error) {
	opts := t.launchOpts
	opts.Now = t.now
	opts.Logger = t.logger
	l := launch.New(t.reporter, t.registry, opts)

	launchID, err := l.Start(ctx)
	if err != nil {
		return "", err
	}
	t.logger.DebugContext(ctx, "processing suites", "file", xmlName, "suites", len(doc.Suites))
	for _, s := range doc.Suites {
		if err := t.suite(ctx, launchID, xmlName, s); err != nil {
			return launchID, err
		}
	}
	if err := l.Finish(ctx); err != nil {
		return launchID, err
	}
	return launchID, nil
}

func (t *Translator) suite(ctx context.Context, launchID, xmlName string, s Suite) error {
	failures, errs, err := s.Counts()
	if err != nil {
		return err
	}
	status := SuiteStatus(failures, errs)

	suiteID, err := t.reporter.StartItem(ctx, "", rp.StartTestItemRQ{
		Name:       truncateName(s.Name()),
		StartTime:  rp.EpochMillis(t.now()),
		Type:       rp.ItemSuite,
		LaunchUUID: launchID,
	})
	if err != nil {
		return fmt.Errorf("start suite %q: %w", s.Name(), err)
	}
	t.logger.DebugContext(ctx, "suite started", "suite", s.Name(), "cases", len(s.Cases))

	for _, c := range s.Cases {
		if err := t.testCase(ctx, launchID, suiteID, xmlName, c); err != nil {
			return err
		}
	}

	if err := t.reporter.FinishItem(ctx, suiteID, rp.FinishTestItemRQ{
		EndTime:    rp.EpochMillis(t.now()),
		Status:     status,
		LaunchUUID: launchID,
	}); err != nil {
		return fmt.Errorf("finish suite %q: %w", s.Name(), err)
	}
	return nil
}

func (t *Translator) testCase(ctx context.Context, launchID, suiteID, xmlName string, c Case) error {
	name, _ := c.Name()
	caseID, err := t.reporter.StartItem(ctx, suiteID, rp.StartTestItemRQ{
		Name:        truncateName(name),
		Description: fmt.Sprintf("%s time: %s", name, c.Time),
		StartTime:   rp.EpochMillis(t.now()),
		Type:        rp.ItemStep,
		LaunchUUID:  launchID,
	})
	if err != nil {
		return fmt.Errorf("start case %q: %w", name, err)
	}

	if c.SystemOut != nil && *c.SystemOut != "" {
		if err := t.log(ctx, launchID, caseID, rp.LogInfo, *c.SystemOut); err != nil {
			return err
		}
	}

	out := CaseOutcome(c)
	if out.Message != "" {
		if err := t.log(ctx, launchID, caseID, out.Level, out.Message); err != nil {
			return err
		}
	}
	if out.Attach && t.payloadDir != "" {
		if err := t.attach(ctx, launchID, caseID, xmlName, c); err != nil {
			return err
		}
	}

	if err := t.reporter.FinishItem(ctx, caseID, rp.FinishTestItemRQ{
		EndTime:    rp.EpochMillis(t.now()),
		Status:     out.Status,
		LaunchUUID: launchID,
		Issue:      out.Issue,
	}); err != nil {
		return fmt.Errorf("finish case %q: %w", name, err)
	}
	return nil
}

func (t *Translator) log(ctx context.Context, launchID, itemID string, level rp.LogLevel, msg string) error {
	err := t.reporter.Log(ctx, rp.SaveLogRQ{
		LaunchUUID: launchID,
		ItemUUID:   itemID,
		Time:       rp.EpochMillis(t.now()),
		Message:    msg,
		Level:      level,
	})
	if err != nil {
		return fmt.Errorf("log to item %s: %w", itemID, err)
	}
	return nil
}

func (t *Translator) attach(ctx context.Context, launchID, itemID, xmlName string, c Case) error {
	files, err := FindAttachments(t.payloadDir, xmlName, AttachmentDir(c))
	if err != nil {
		return fmt.Errorf("find attachments for %s: %w", AttachmentDir(c), err)
	}
	for _, f := range files {
		t.logger.DebugContext(ctx, "attaching file", "file", f, "item", itemID)
		if err := t.reporter.Attach(ctx, rp.SaveLogRQ{
			LaunchUUID: launchID,
			ItemUUID:   itemID,
			Time:       rp.EpochMillis(t.now()),
			Level:      rp.LogInfo,
		}, f); err != nil {
			return fmt.Errorf("attach %s: %w", f, err)
		}
	}
	return nil
}
