package firewall

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// SourceAny matches every source address.
	SourceAny = "any"
	// ZonePublic is the default zone for port rules.
	ZonePublic = "public"
	// ZoneTrusted accepts all traffic from a source; it never takes a port.
	ZoneTrusted = "trusted"
)

// Rule is a request to accept traffic.
//
// Port is a single port ("5520"), a comma list ("80,443") or a colon range
// ("8000:8010"). It must be empty for the trusted zone.
type Rule struct {
	Port     string
	Protocol string // tcp or udp, default tcp
	Source   string // address or CIDR, default any
	Zone     string // default public
	Comment  string
}

// ErrInvalidRule is wrapped by every validation failure.
var ErrInvalidRule = errors.New("invalid firewall rule")

// Normalized returns a copy with defaults applied.
func (r Rule) Normalized() Rule {
	r.Port = strings.TrimSpace(r.Port)
	r.Protocol = strings.ToLower(strings.TrimSpace(r.Protocol))
	if r.Protocol == "" {
		r.Protocol = "tcp"
	}
	r.Source = strings.TrimSpace(r.Source)
	if r.Source == "" {
		r.Source = SourceAny
	}
	r.Zone = strings.ToLower(strings.TrimSpace(r.Zone))
	if r.Zone == "" {
		r.Zone = ZonePublic
	}
	return r
}

// Trusted reports whether the rule targets the trusted zone.
func (r Rule) Trusted() bool {
	return r.Normalized().Zone == ZoneTrusted
}

// Validate checks the rule before it is dispatched to any backend.
func (r Rule) Validate() error {
	n := r.Normalized()

	if n.Zone == ZoneTrusted {
		if n.Port != "" {
			return fmt.Errorf("%w: the trusted zone accepts all ports, do not specify a port", ErrInvalidRule)
		}
		if n.Source == SourceAny {
			return fmt.Errorf("%w: the trusted zone requires a specific source", ErrInvalidRule)
		}
		return nil
	}

	if n.Port == "" {
		return fmt.Errorf("%w: a port is required outside the trusted zone", ErrInvalidRule)
	}
	if n.Protocol != "tcp" && n.Protocol != "udp" {
		return fmt.Errorf("%w: unsupported protocol %q", ErrInvalidRule, n.Protocol)
	}
	return validatePortSpec(n.Port)
}

// IsMulti reports whether the port spec names more than one port.
func (r Rule) IsMulti() bool {
	return strings.ContainsAny(r.Port, ",:")
}

// Ports splits a comma list into its members; ranges stay intact.
func (r Rule) Ports() []string {
	parts := strings.Split(r.Normalized().Port, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func validatePortSpec(spec string) error {
	for _, part := range strings.Split(spec, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return fmt.Errorf("%w: empty entry in port list %q", ErrInvalidRule, spec)
		}
		if lo, hi, ok := strings.Cut(part, ":"); ok {
			l, err := parsePort(lo)
			if err != nil {
				return err
			}
			h, err := parsePort(hi)
			if err != nil {
				return err
			}
			if l > h {
				return fmt.Errorf("%w: port range %q is reversed", ErrInvalidRule, part)
			}
			continue
		}
		if _, err := parsePort(part); err != nil {
			return err
		}
	}
	return nil
}

func parsePort(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > 65535 {
		return 0, fmt.Errorf("%w: %q is not a port between 1 and 65535", ErrInvalidRule, s)
	}
	return n, nil
}
