package main

import (
	"os"
	"testing"

	"github.com/lsiudut/yaffmpegp/lib/core"
	"github.com/stretchr/testify/require"
)

func TestHostListValueSetSplitsTrimsAndSkipsEmptyTokens(t *testing.T) {
	v := &HostListValue{}
	err := v.Set(" user@host1:22 , host2 ,, user@host3 ")
	require.NoError(t, err)
	require.Equal(t, []core.Host{
		{Endpoint: "user@host1:22"},
		{Endpoint: "host2"},
		{Endpoint: "user@host3"},
	}, v.Hosts)
}

func TestHostListValueSetAccumulatesAcrossMultipleCalls(t *testing.T) {
	// flag.Value.Set is called once per -hosts occurrence; repeated flags
	// must append rather than replace, matching the teacher's
	// UpstreamListValue convention.
	v := &HostListValue{}
	require.NoError(t, v.Set("host1"))
	require.NoError(t, v.Set("host2"))
	require.Equal(t, []core.Host{{Endpoint: "host1"}, {Endpoint: "host2"}}, v.Hosts)
}

func TestNewConfigFromFlagsAppliesDefaults(t *testing.T) {
	cfg, err := newConfigFromFlags([]string{commandName, "-hosts=host1", "-input=in.mp4"})
	require.NoError(t, err)

	require.Equal(t, defaultSegmentSeconds, cfg.SegmentSeconds)
	require.Equal(t, defaultTranscoder, cfg.Transcoder)
	require.Equal(t, defaultOutputSuffix, cfg.OutputSuffix)
	require.Equal(t, defaultQLimit, cfg.QLimit)
	require.Equal(t, int64(defaultAdmissionLimit), cfg.AdmissionLimit)
	require.Equal(t, defaultMaxAttempts, cfg.MaxAttempts)
	require.Equal(t, []core.Host{{Endpoint: "host1"}}, cfg.Hosts)
}

func TestNewConfigFromFlagsExplicitFlagsOverrideYAML(t *testing.T) {
	dir := t.TempDir()
	configPath := dir + "/config.yaml"
	requireWriteFile(t, configPath, ""+
		"input: from-yaml.mp4\n"+
		"segment_length: 30\n"+
		"transcoder: yaml-ffmpeg\n"+
		"hosts:\n"+
		"  - endpoint: yaml-host\n")

	// -input is given explicitly on the command line: it must win over the
	// YAML file's value. -segment-length is left at its flag default, so
	// the YAML file's value fills it in (newConfigFromFlags's load-then-
	// reparse merge order).
	cfg, err := newConfigFromFlags([]string{commandName, "-config=" + configPath, "-input=from-flag.mp4"})
	require.NoError(t, err)

	require.Equal(t, "from-flag.mp4", cfg.InputFile)
	require.Equal(t, 30, cfg.SegmentSeconds)
	require.Equal(t, "yaml-ffmpeg", cfg.Transcoder)
	require.Equal(t, []core.Host{{Endpoint: "yaml-host"}}, cfg.Hosts)
}

func TestNewConfigFromFlagsHostsFlagOverridesYAMLHosts(t *testing.T) {
	dir := t.TempDir()
	configPath := dir + "/config.yaml"
	requireWriteFile(t, configPath, ""+
		"input: in.mp4\n"+
		"hosts:\n"+
		"  - endpoint: yaml-host\n")

	cfg, err := newConfigFromFlags([]string{commandName, "-config=" + configPath, "-hosts=flag-host"})
	require.NoError(t, err)
	require.Equal(t, []core.Host{{Endpoint: "flag-host"}}, cfg.Hosts)
}

func requireWriteFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}
