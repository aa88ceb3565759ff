package host

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"
)

// DefaultOSReleasePath is where systemd-era distributions describe themselves.
const DefaultOSReleasePath = "/etc/os-release"

// OSInfo is the subset of os-release the provisioner acts on.
type OSInfo struct {
	ID        string   // e.g. "ubuntu"
	Like      []string // ID_LIKE, e.g. ["debian"]
	VersionID string   // raw VERSION_ID, e.g. "24.04"
}

// IsLike reports whether the OS is the given family: either its own ID or a
// member of its ID_LIKE list (so Ubuntu is debian-like, Rocky is rhel-like).
func (o OSInfo) IsLike(family string) bool {
	if family == "" {
		return false
	}
	if o.ID == family {
		return true
	}
	for _, l := range o.Like {
		if l == family {
			return true
		}
	}
	return false
}

// IsLikeAny reports whether IsLike holds for any of the families.
func (o OSInfo) IsLikeAny(families ...string) bool {
	for _, f := range families {
		if o.IsLike(f) {
			return true
		}
	}
	return false
}

// MajorVersion returns NormalizeVersion(VersionID).
func (o OSInfo) MajorVersion() int {
	return NormalizeVersion(o.VersionID)
}

// ParseOSRelease reads an os-release file. A missing file yields an empty
// OSInfo and no error; the caller decides whether that is fatal.
func ParseOSRelease(path string) (OSInfo, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment:     true,
		SkipUnrecognizableLines: true,
	}, path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return OSInfo{}, nil
		}
		return OSInfo{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	sec := cfg.Section(ini.DefaultSection)
	info := OSInfo{
		ID:        strings.ToLower(trimQuotes(sec.Key("ID").String())),
		VersionID: trimQuotes(sec.Key("VERSION_ID").String()),
	}
	for _, like := range strings.Fields(trimQuotes(sec.Key("ID_LIKE").String())) {
		info.Like = append(info.Like, strings.ToLower(like))
	}
	return info, nil
}

// NormalizeVersion reduces a version string to its bare major number:
// surrounding quotes are stripped, everything from the first '.' dropped and
// a leading 'v' removed. Anything unparseable is 0.
func NormalizeVersion(v string) int {
	v = trimQuotes(strings.TrimSpace(v))
	if i := strings.IndexByte(v, '.'); i >= 0 {
		v = v[:i]
	}
	v = strings.TrimPrefix(strings.TrimPrefix(v, "v"), "V")
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func trimQuotes(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return strings.Trim(s, `"'`)
}
