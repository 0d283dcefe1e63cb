package config

import "fmt"

// DefaultLogFilepath is used when no source sets log_filepath.
const DefaultLogFilepath = "/tmp/rp_preproc.log"

// Settings is the fully resolved configuration of one run. Build it with
// Load; the only change allowed afterwards is WithPayloadDir.
type Settings struct {
	ConfigPath    string
	ServiceURL    string
	PayloadDir    string
	SimpleXML     bool
	MergeLaunches bool
	AutoDashboard bool
	Debug         bool
	LogFilepath   string
	ReportPortal  ReportPortal
}

// ReportPortal holds the connection and launch settings.
type ReportPortal struct {
	HostURL   string
	APIToken  string
	Project   string
	VerifyTLS bool
	Launch    LaunchSettings
}

// LaunchSettings comes from reportportal.launch in the config document.
type LaunchSettings struct {
	Name          string
	Description   string
	Tags          []string
	MergeLaunches bool
}

// Load resolves every setting at once from the CLI map args, the environment
// and the config document doc.
func Load(args, doc map[string]any, opts ...ResolverOption) Settings {
	r := NewResolver(args, doc, opts...)
	svc := InSection(r.Section("rp_preproc"))
	rpSection := r.Section("reportportal")
	rpc := InSection(rpSection)
	launch := subMap(rpSection, "launch")

	s := Settings{
		ConfigPath:    asString(args["config_file"]),
		ServiceURL:    r.String("service_url", svc),
		PayloadDir:    r.String("payload_dir", svc),
		SimpleXML:     r.Bool("simple_xml", rpc),
		MergeLaunches: r.Bool("merge_launches", rpc, WithDefault(launch["merge_launches"])),
		AutoDashboard: r.Bool("auto_dashboard", rpc),
		Debug:         r.Bool("debug", rpc),
		LogFilepath:   r.String("log_filepath", rpc, WithDefault(DefaultLogFilepath)),
		ReportPortal: ReportPortal{
			HostURL:   r.String("host_url", rpc),
			APIToken:  r.String("api_token", rpc),
			Project:   r.String("project", rpc),
			VerifyTLS: r.Bool("verify_ssl", rpc),
			Launch: LaunchSettings{
				Name:          asString(launch["name"]),
				Description:   asString(launch["description"]),
				Tags:          asStrings(launch["tags"]),
				MergeLaunches: asBool(launch["merge_launches"]),
			},
		},
	}
	return s
}

// LoadFile reads the config file named by args["config_file"] (or path when
// non-empty) and resolves settings from it.
func LoadFile(path string, args map[string]any, opts ...ResolverOption) (Settings, error) {
	if path == "" {
		path = asString(args["config_file"])
	}
	if path == "" {
		return Settings{}, fmt.Errorf("%w: no config file given", ErrConfig)
	}
	doc, err := ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	cli := make(map[string]any, len(args)+1)
	for k, v := range args {
		cli[k] = v
	}
	cli["config_file"] = path
	return Load(cli, doc, opts...), nil
}

// WithPayloadDir returns a copy of s that reads its payload from dir.
func (s Settings) WithPayloadDir(dir string) Settings {
	s.PayloadDir = dir
	s.ReportPortal.Launch.Tags = append([]string(nil), s.ReportPortal.Launch.Tags...)
	return s
}

// Validate reports the settings a direct ReportPortal run cannot do without.
func (s Settings) Validate() error {
	switch {
	case s.PayloadDir == "":
		return fmt.Errorf("%w: payload_dir must be set via config or CLI", ErrConfig)
	case s.ReportPortal.HostURL == "":
		return fmt.Errorf("%w: reportportal.host_url is not set", ErrConfig)
	case s.ReportPortal.Project == "":
		return fmt.Errorf("%w: reportportal.project is not set", ErrConfig)
	}
	return nil
}

// UseService reports whether the run is forwarded to an rp-preproc service.
// The literal "no" disables a service_url inherited from the file.
func (s Settings) UseService() bool {
	return s.ServiceURL != "" && s.ServiceURL != "no"
}
