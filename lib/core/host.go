package core

import (
	"fmt"
	"strings"
)

// extraParamsSep joins encoded ExtraParams arguments. It is the ASCII
// Unit Separator, not whitespace, so an argument that itself contains a
// space (e.g. a "-vf" filter expression) survives the round trip verbatim
// instead of being split into multiple argv entries.
const extraParamsSep = "\x1f"

// EncodeExtraParams joins an ordered sequence of transcoder CLI arguments
// into the form stored in Host.ExtraParams.
func EncodeExtraParams(args []string) string {
	return strings.Join(args, extraParamsSep)
}

// Host identifies a remote endpoint that runs the transcoder binary, and
// the extra transcoder CLI arguments that should be applied when running
// work on it.
//
// Host has value semantics and supports the comparison operators (==, !=),
// so it can be used as a map key (for example inside telemetry and the
// preflight probe pool).
type Host struct {
	// Endpoint is the SSH destination, in user@host[:port] form.
	Endpoint string

	// ExtraParams are additional transcoder CLI arguments, encoded via
	// EncodeExtraParams, inserted verbatim between the fixed flags and the
	// output path. Encoded into a single string so that Host keeps value
	// semantics (a slice would not be comparable, and Host must support
	// == / != to be a map key).
	ExtraParams string
}

// ExtraParamsArgs decodes ExtraParams into the ordered argv slice the
// transcode stage appends to the remote command line.
func (h Host) ExtraParamsArgs() []string {
	if h.ExtraParams == "" {
		return nil
	}
	return strings.Split(h.ExtraParams, extraParamsSep)
}

// String returns a human-readable representation of the Host, omitting
// ExtraParams, matching the teacher's convention of deriving a short
// log-friendly label from a domain value.
func (h Host) String() string {
	return fmt.Sprintf("<Host %s>", h.Endpoint)
}

// HostSet represents a set of Hosts.
type HostSet map[Host]struct{}

// NewHostSet returns a new HostSet containing the given Hosts.
func NewHostSet(hosts ...Host) HostSet {
	result := make(HostSet, len(hosts))
	for _, h := range hosts {
		result[h] = struct{}{}
	}
	return result
}
