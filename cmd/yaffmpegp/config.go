package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"gopkg.in/yaml.v3"
)

// yamlHost is the YAML wire shape for a configured host; lib/core.Host
// itself carries no serialization tags, matching the teacher's convention
// of keeping domain value types free of encoding concerns.
type yamlHost struct {
	Endpoint string `yaml:"endpoint"`
	// ExtraParams is a YAML sequence rather than a single string so that an
	// argument containing a space (e.g. a "-vf" filter expression) can be
	// given verbatim as one list element, instead of being whitespace-split
	// later and mis-divided into two argv entries.
	ExtraParams []string `yaml:"extra_params"`
}

// Config holds every setting needed to run one dispatch (spec §2 through
// §6): the fleet, the source file, and the tunables spec §3/§4 name as
// Worker state (QLimit, AdmissionLimit, retry budget) or Adapter state
// (keepalive is left at remote.DefaultKeepalive and not exposed here).
type Config struct {
	Hosts []core.Host `yaml:"-"`

	InputFile      string        `yaml:"input"`
	OutputFile     string        `yaml:"output"`
	SegmentSeconds int           `yaml:"segment_length"`
	TranscoderArgs string        `yaml:"transcoder_args"`
	Transcoder     string        `yaml:"transcoder"`
	OutputSuffix   string        `yaml:"output_suffix"`
	QLimit         int           `yaml:"qlimit"`
	AdmissionLimit int64         `yaml:"admission_limit"`
	MaxAttempts    int           `yaml:"upload_max_attempts"`
	RemoteBaseDir  string        `yaml:"remote_base_dir"`
	SSHUser        string        `yaml:"ssh_user"`
	SSHKeyFile     string        `yaml:"ssh_key_file"`
	ListenAddress  string        `yaml:"listen_address"`
	ReportInterval time.Duration `yaml:"report_interval"`

	YAMLHosts []yamlHost `yaml:"hosts"`
}

// Validate checks the settings the Worker/Dispatcher/preflight layers
// assume hold, matching the teacher's flags_test-era pattern of a single
// Validate pass rather than scattering checks across constructors.
func (c *Config) Validate() error {
	var problems []string

	if len(c.Hosts) == 0 {
		problems = append(problems, "at least one -hosts endpoint is required")
	}
	if c.InputFile == "" {
		problems = append(problems, "-input is required")
	}
	if c.SegmentSeconds <= 0 {
		problems = append(problems, "-segment-length must be positive")
	}
	if c.AdmissionLimit <= 0 {
		problems = append(problems, "-admission-limit must be positive")
	}
	if c.MaxAttempts <= 0 {
		problems = append(problems, "-upload-max-attempts must be positive")
	}
	if c.Transcoder == "" {
		problems = append(problems, "-transcoder must not be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// loadYAMLFile merges settings from an optional YAML file into cfg.
// Flags parsed before this call survive only where the YAML file does not
// set that key; newConfigFromFlags resolves the merge order by loading
// YAML first, then applying flag.Parse on top of it.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// resolveHosts builds the final core.Host list from whichever of
// YAMLHosts / the -hosts flag / -transcoder-args was populated.
func (c *Config) resolveHosts(flagHosts []core.Host) {
	if len(flagHosts) > 0 {
		c.Hosts = flagHosts
	} else {
		c.Hosts = make([]core.Host, len(c.YAMLHosts))
		for i, h := range c.YAMLHosts {
			c.Hosts[i] = core.Host{Endpoint: h.Endpoint, ExtraParams: core.EncodeExtraParams(h.ExtraParams)}
		}
	}
	for i := range c.Hosts {
		if c.TranscoderArgs != "" && c.Hosts[i].ExtraParams == "" {
			c.Hosts[i].ExtraParams = core.EncodeExtraParams(strings.Fields(c.TranscoderArgs))
		}
		if c.SSHUser != "" && !strings.Contains(c.Hosts[i].Endpoint, "@") {
			c.Hosts[i].Endpoint = c.SSHUser + "@" + c.Hosts[i].Endpoint
		}
	}
}
