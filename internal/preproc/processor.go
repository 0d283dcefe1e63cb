// Package preproc drives one processing run: it discovers result files under
// a payload directory, reports each of them, then optionally merges the
// launches and builds a dashboard.
package preproc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"rppreproc/internal/config"
	"rppreproc/internal/dashboard"
	"rppreproc/internal/launch"
	"rppreproc/internal/rp"
	"rppreproc/internal/xunit"
)

// Merge names used when the config has no launch name or description.
const (
	DefaultMergeName        = "Merged Launch"
	DefaultMergeDescription = "merged launches"
)

// Result is the outcome of a run.
type Result struct {
	Launches      []string          `json:"launches"`
	MergedLaunch  string            `json:"merged_launch,omitempty"`
	AutoDashboard *dashboard.Result `json:"auto_dashboard,omitempty"`
	FailedFiles   []FailedFile      `json:"failed_files,omitempty"`
}

// FailedFile is a result file skipped because it could not be parsed or
// its import reply could not be read.
type FailedFile struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

// Processor runs one payload through a session.
type Processor struct {
	settings config.Settings
	session  *rp.Session
	logger   *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger configures structured logging.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// NewProcessor returns a processor for settings on session.
func NewProcessor(settings config.Settings, session *rp.Session, opts ...Option) *Processor {
	p := &Processor{settings: settings, session: session}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p
}

// Process reports every result file, one at a time and in path order.
// Files that fail to parse are recorded in FailedFiles and skipped; a
// Report Portal error ends the run. An unreadable merge reply leaves
// MergedLaunch empty.
func (p *Processor) Process(ctx context.Context) (*Result, error) {
	if p.settings.PayloadDir == "" {
		return nil, fmt.Errorf("%w: payload_dir must be set via config or CLI", config.ErrConfig)
	}
	files, err := ResultFiles(filepath.Join(p.settings.PayloadDir, "results"))
	if err != nil {
		return nil, err
	}
	p.logger.InfoContext(ctx, "processing payload", "payload_dir", p.settings.PayloadDir, "files", len(files), "simple_xml", p.settings.SimpleXML)

	res := &Result{}
	translator := p.translator()
	for _, path := range files {
		if err := p.processFile(ctx, translator, path); err != nil {
			var skip *skipError
			if !errors.As(err, &skip) {
				return nil, err
			}
			p.logger.ErrorContext(ctx, "skipping result file", "file", path, "error", skip.err)
			res.FailedFiles = append(res.FailedFiles, FailedFile{File: path, Error: skip.err.Error()})
		}
	}

	registry := p.session.Registry()
	if p.settings.MergeLaunches {
		if registry.Len() > 1 {
			id, err := p.merge(ctx)
			switch {
			case rp.IsParse(err):
				p.logger.ErrorContext(ctx, "merged launch id not returned", "error", err)
			case err != nil:
				return nil, err
			default:
				res.MergedLaunch = id
			}
		} else {
			p.logger.InfoContext(ctx, "merge skipped: cannot merge a single launch", "launches", registry.Len())
		}
	}
	res.Launches = registry.IDs()

	if p.settings.AutoDashboard {
		b := dashboard.NewBuilder(p.session.Project(), p.launchName(), dashboard.WithLogger(p.logger))
		d, err := b.Build(ctx)
		if err != nil {
			return nil, fmt.Errorf("auto dashboard: %w", err)
		}
		res.AutoDashboard = d
	}
	return res, nil
}

// skipError wraps a per-file failure that must not end the run.
type skipError struct{ err error }

func (e *skipError) Error() string { return e.err.Error() }
func (e *skipError) Unwrap() error { return e.err }

func (p *Processor) processFile(ctx context.Context, tr *xunit.Translator, path string) error {
	if p.settings.SimpleXML {
		p.logger.DebugContext(ctx, "importing file", "file", path)
		if _, err := p.session.ImportResultsArchive(ctx, path); err != nil {
			if rp.IsParse(err) {
				return &skipError{err}
			}
			return err
		}
		return nil
	}

	doc, err := xunit.ParseFile(path)
	if err != nil {
		return &skipError{err}
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if _, err := tr.Translate(ctx, doc, name); err != nil {
		return fmt.Errorf("report %s: %w", path, err)
	}
	return nil
}

func (p *Processor) translator() *xunit.Translator {
	ls := p.settings.ReportPortal.Launch
	return xunit.NewTranslator(p.session, p.session.Registry(),
		xunit.WithPayloadDir(p.settings.PayloadDir),
		xunit.WithLogger(p.logger),
		xunit.WithLaunchOptions(launch.Options{
			Name:        ls.Name,
			Description: ls.Description,
			Tags:        ls.Tags,
			MergeMode:   p.settings.MergeLaunches,
			RunID:       p.session.RunID(),
		}),
	)
}

func (p *Processor) merge(ctx context.Context) (string, error) {
	ls := p.settings.ReportPortal.Launch
	name, desc := ls.Name, ls.Description
	if name == "" {
		name = DefaultMergeName
	}
	if desc == "" {
		desc = DefaultMergeDescription
	}
	id, err := p.session.MergeLaunches(ctx, name, desc, rp.MergeDeep)
	if err != nil {
		return "", fmt.Errorf("merge launches: %w", err)
	}
	p.logger.InfoContext(ctx, "launches merged", "merged_launch", id)
	return id, nil
}

// launchName is the name dashboards are keyed on: the configured launch
// name, without the per-run naming used in merge mode.
func (p *Processor) launchName() string {
	if n := p.settings.ReportPortal.Launch.Name; n != "" {
		return n
	}
	return launch.DefaultName
}

// ResultFiles lists the .xml files under dir, recursively, sorted by path.
func ResultFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && filepath.Ext(path) == ".xml" {
			files = append(files, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: results directory %s not found", config.ErrConfig, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("list results in %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}
