// Package meta reports build metadata of the running binary for bundle
// manifests and the version command.
package meta

import (
	"runtime/debug"
	"strings"
)

// Info is a minimal, tool-friendly summary of how the binary was built.
type Info struct {
	Module    string `json:"module"`
	Version   string `json:"version"`
	GoVersion string `json:"goVersion"`
	Revision  string `json:"revision,omitempty"`
	Modified  bool   `json:"modified,omitempty"`
}

// Detect reads the embedded build info. Missing pieces stay empty; an
// unstamped build reports version "dev".
func Detect() Info {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return Info{Version: "dev"}
	}
	return fromBuildInfo(bi)
}

func fromBuildInfo(bi *debug.BuildInfo) Info {
	inf := Info{
		Module:    firstNonEmpty(bi.Main.Path, bi.Path),
		Version:   bi.Main.Version,
		GoVersion: bi.GoVersion,
	}
	if inf.Version == "" || inf.Version == "(devel)" {
		inf.Version = "dev"
	}
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			inf.Revision = s.Value
		case "vcs.modified":
			inf.Modified = s.Value == "true"
		}
	}
	return inf
}

// String renders the one-line form printed by the version command.
func (i Info) String() string {
	var b strings.Builder
	b.WriteString(firstNonEmpty(i.Module, "sheetdiff"))
	b.WriteString(" " + i.Version)
	if i.Revision != "" {
		rev := i.Revision
		if len(rev) > 12 {
			rev = rev[:12]
		}
		b.WriteString(" (" + rev)
		if i.Modified {
			b.WriteString(", modified")
		}
		b.WriteString(")")
	}
	if i.GoVersion != "" {
		b.WriteString(" " + i.GoVersion)
	}
	return b.String()
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		s = strings.TrimSpace(s)
		if s != "" {
			return s
		}
	}
	return ""
}
