package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"rppreproc/internal/config"
	"rppreproc/internal/format"
	"rppreproc/internal/logging"
	"rppreproc/internal/payload"
	"rppreproc/internal/preproc"
)

// serviceFromConfig is the value of a bare --service: use the configured
// service_url.
const serviceFromConfig = "config"

type importFlags struct {
	configFile    string
	payloadDir    string
	logPath       string
	service       string
	simpleXML     bool
	merge         bool
	autoDashboard bool
	debug         bool
	output        string
}

func newImportCmd() *cobra.Command {
	var fl importFlags
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a payload directory into Report Portal",
		Long: `Reads the results/ and attachments/ of a payload directory and reports
them to Report Portal, either directly or through an rp-preproc service.
Prints a summary (JSON by default) and exits non-zero on any error.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runImport(cmd, fl)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&fl.configFile, "config", "c", "", "rp-preproc config file (required)")
	f.StringVarP(&fl.payloadDir, "payload_dir", "d", "", "directory containing results and attachments")
	f.StringVarP(&fl.logPath, "log", "l", logging.DefaultLogPath, "log file path")
	f.StringVar(&fl.service, "service", "", `send the payload through an rp-preproc service at this URL ("no" disables the configured one)`)
	f.Lookup("service").NoOptDefVal = serviceFromConfig
	f.BoolVar(&fl.simpleXML, "simple_xml", false, "send xml without preprocessing")
	f.BoolVar(&fl.merge, "merge", false, "merge multiple launches into one")
	f.BoolVar(&fl.autoDashboard, "auto-dashboard", false, "create a dashboard with a basic filter and widgets")
	f.BoolVar(&fl.debug, "debug", false, "log debug detail")
	f.StringVar(&fl.output, "format", "json", "summary format: json, table or markdown")

	_ = cmd.MarkFlagRequired("config")
	return cmd
}

// cliArgs builds the CLI source map. Only flags the user set enter it, so
// env and config values still apply to the rest.
func cliArgs(cmd *cobra.Command, fl importFlags) map[string]any {
	f := cmd.Flags()
	args := map[string]any{
		"config_file":  fl.configFile,
		"log_filepath": fl.logPath,
	}
	if f.Changed("payload_dir") {
		args["payload_dir"] = fl.payloadDir
	}
	if f.Changed("service") && fl.service != serviceFromConfig {
		args["service_url"] = fl.service
	}
	for flag, key := range map[string]string{
		"simple_xml":     "simple_xml",
		"merge":          "merge_launches",
		"auto-dashboard": "auto_dashboard",
		"debug":          "debug",
	} {
		if f.Changed(flag) {
			v, _ := f.GetBool(flag)
			args[key] = v
		}
	}
	return args
}

func runImport(cmd *cobra.Command, fl importFlags) error {
	if fl.output != "json" {
		if _, err := format.ParseMode(fl.output); err != nil {
			return err
		}
	}
	settings, err := config.LoadFile("", cliArgs(cmd, fl))
	if err != nil {
		return err
	}
	closeLog, err := logging.Setup(settings.Debug, settings.LogFilepath)
	if err != nil {
		return err
	}
	defer closeLog() //nolint:errcheck

	ctx := cmd.Context()
	logger := logging.New("import")
	start := time.Now()
	logger.InfoContext(ctx, "import started", "start_time", start.Unix())

	var (
		result any
		failed error
	)
	if settings.UseService() {
		logger.InfoContext(ctx, "sending to rp-preproc service", "service_url", settings.ServiceURL)
		reply, err := payload.NewSender(payload.WithLogger(logger)).Forward(ctx, settings)
		if err != nil {
			return err
		}
		result = reply.Body
		if !reply.OK() {
			failed = fmt.Errorf("rp-preproc service replied HTTP %d", reply.StatusCode)
		}
	} else {
		logger.InfoContext(ctx, "posting directly to Report Portal", "host_url", settings.ReportPortal.HostURL)
		res, err := preproc.Run(ctx, settings, logger)
		if err != nil {
			return err
		}
		result = res
	}

	end := time.Now()
	summary := preproc.Summarize(result, start, end)
	logger.InfoContext(ctx, "import finished", "end_time", end.Unix(), "elapsed_s", summary.RPPreproc.ElapsedTime)
	if err := writeSummary(cmd.OutOrStdout(), fl.output, summary); err != nil {
		return err
	}
	return failed
}

// writeSummary prints the summary as JSON or, for table formats, as a
// table. A service reply that is not a result falls back to JSON.
func writeSummary(w io.Writer, output string, s preproc.Summary) error {
	if output == "json" {
		return printSummary(w, s)
	}
	mode, err := format.ParseMode(output)
	if err != nil {
		return err
	}
	out, err := format.SummaryTable(mode, s)
	if err != nil {
		return printSummary(w, s)
	}
	_, err = fmt.Fprintln(w, out)
	return err
}

// printSummary writes v as indented JSON with sorted keys.
func printSummary(w io.Writer, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	out, err := json.MarshalIndent(generic, "", "  ")
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
