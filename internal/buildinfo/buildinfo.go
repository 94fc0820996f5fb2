// Package buildinfo expose la version des binaires avs et avs-server.
package buildinfo

import (
	"runtime/debug"
	"strings"
)

// Renseignées par la CI via -ldflags, par exemple:
//
//	-X github.com/Guilhem-Bonnet/anivideo-sync/internal/buildinfo.Version=v0.3.0
//	-X github.com/Guilhem-Bonnet/anivideo-sync/internal/buildinfo.Commit=abcdef
var (
	Version = "dev"
	Commit  = ""
	Date    = ""
)

type Info struct {
	Version   string `json:"version"`
	Commit    string `json:"commit,omitempty"`
	Date      string `json:"date,omitempty"`
	GoVersion string `json:"goVersion,omitempty"`
}

// readBuildInfo est remplacé dans les tests.
var readBuildInfo = debug.ReadBuildInfo

// Current complète les valeurs absentes des ldflags avec les infos VCS
// embarquées par go build.
func Current() Info {
	info := Info{Version: Version, Commit: Commit, Date: Date}
	bi, ok := readBuildInfo()
	if !ok {
		return info
	}
	info.GoVersion = bi.GoVersion
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			if info.Commit == "" {
				info.Commit = s.Value
			}
		case "vcs.time":
			if info.Date == "" {
				info.Date = s.Value
			}
		}
	}
	return info
}

// String donne "v0.3.0 (abcdef1, 2026-01-18)".
func (i Info) String() string {
	var extra []string
	if c := i.Commit; c != "" {
		if len(c) > 7 {
			c = c[:7]
		}
		extra = append(extra, c)
	}
	if i.Date != "" {
		extra = append(extra, i.Date)
	}
	if len(extra) == 0 {
		return i.Version
	}
	return i.Version + " (" + strings.Join(extra, ", ") + ")"
}
