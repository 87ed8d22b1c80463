package main

import (
	"flag"
	"strings"
	"time"

	"github.com/lsiudut/yaffmpegp/lib/core"
)

const (
	commandName = "yaffmpegp"
	hostListSep = ","

	defaultSegmentSeconds = 60
	defaultQLimit         = 2
	defaultAdmissionLimit = 2
	defaultMaxAttempts    = 4
	defaultTranscoder     = "ffmpeg"
	defaultOutputSuffix   = ".ts"
	defaultRemoteBaseDir  = "/tmp"
	defaultReportInterval = 2 * time.Second
)

// HostListValue is a flag.Value for a comma-separated list of Host
// endpoints, in the style of the teacher's UpstreamListValue.
type HostListValue struct {
	Hosts []core.Host
}

func (v *HostListValue) String() string {
	tokens := make([]string, len(v.Hosts))
	for i, h := range v.Hosts {
		tokens[i] = h.Endpoint
	}
	return strings.Join(tokens, hostListSep)
}

func (v *HostListValue) Set(s string) error {
	for _, token := range strings.Split(s, hostListSep) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		v.Hosts = append(v.Hosts, core.Host{Endpoint: token})
	}
	return nil
}

// newConfigFromFlags parses argv into a Config. A -config file, if given,
// is loaded first so that flags explicitly passed on the command line
// take precedence over it.
func newConfigFromFlags(argv []string) (*Config, error) {
	flagSet := flag.NewFlagSet(commandName, flag.ExitOnError)

	var configFile string
	hostListVar := &HostListValue{}

	cfg := &Config{
		SegmentSeconds: defaultSegmentSeconds,
		Transcoder:     defaultTranscoder,
		OutputSuffix:   defaultOutputSuffix,
		QLimit:         defaultQLimit,
		AdmissionLimit: defaultAdmissionLimit,
		MaxAttempts:    defaultMaxAttempts,
		RemoteBaseDir:  defaultRemoteBaseDir,
		ReportInterval: defaultReportInterval,
		OutputFile:     "output.mp4",
	}

	flagSet.StringVar(&configFile, "config", "", "optional YAML file providing these same settings")
	flagSet.Var(hostListVar, "hosts", "comma-separated list of user@host[:port] ssh endpoints")
	flagSet.StringVar(&cfg.InputFile, "input", "", "source video file to transcode")
	flagSet.StringVar(&cfg.OutputFile, "output", cfg.OutputFile, "final concatenated output file")
	flagSet.IntVar(&cfg.SegmentSeconds, "segment-length", cfg.SegmentSeconds, "segment length in seconds")
	flagSet.StringVar(&cfg.Transcoder, "transcoder", cfg.Transcoder, "remote transcoder binary name")
	flagSet.StringVar(&cfg.TranscoderArgs, "transcoder-args", "", "extra transcoder CLI arguments, applied to every host")
	flagSet.StringVar(&cfg.OutputSuffix, "output-suffix", cfg.OutputSuffix, "suffix appended to each remote output's basename")
	flagSet.IntVar(&cfg.QLimit, "qlimit", cfg.QLimit, "shared queue depth below which (or once the queue is empty) workers begin draining")
	flagSet.Int64Var(&cfg.AdmissionLimit, "admission-limit", cfg.AdmissionLimit, "max segments in flight per worker past the supervisor")
	flagSet.IntVar(&cfg.MaxAttempts, "upload-max-attempts", cfg.MaxAttempts, "total upload attempts before a transient copy failure is promoted to fatal")
	flagSet.StringVar(&cfg.RemoteBaseDir, "remote-base-dir", cfg.RemoteBaseDir, "base directory for each worker's remote scratch directory")
	flagSet.StringVar(&cfg.SSHUser, "ssh-user", "", "ssh username, used for hosts given without a user@ prefix")
	flagSet.StringVar(&cfg.SSHKeyFile, "ssh-key-file", "", "PEM-encoded SSH private key file; empty configures no SSH auth method (no SSH agent is consulted)")
	flagSet.StringVar(&cfg.ListenAddress, "listen-address", "", "optional host:port to serve /status and /metrics; empty disables")
	flagSet.DurationVar(&cfg.ReportInterval, "report-interval", cfg.ReportInterval, "stdout telemetry refresh interval")

	// First pass resolves every flag including -config itself.
	if err := flagSet.Parse(argv[1:]); err != nil {
		return nil, err
	}

	if configFile != "" {
		if err := loadYAMLFile(configFile, cfg); err != nil {
			return nil, err
		}
		// Re-parse so command-line flags override whatever the YAML file set.
		// HostListValue.Set appends, so clear the first pass's hosts first.
		hostListVar.Hosts = nil
		if err := flagSet.Parse(argv[1:]); err != nil {
			return nil, err
		}
	}

	cfg.resolveHosts(hostListVar.Hosts)
	return cfg, nil
}
