package buildinfo

import (
	"runtime/debug"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurrent_FallsBackToVCSSettings(t *testing.T) {
	orig := readBuildInfo
	t.Cleanup(func() { readBuildInfo = orig })
	readBuildInfo = func() (*debug.BuildInfo, bool) {
		return &debug.BuildInfo{
			GoVersion: "go1.24.0",
			Settings: []debug.BuildSetting{
				{Key: "vcs.revision", Value: "0123456789abcdef"},
				{Key: "vcs.time", Value: "2026-01-18T10:00:00Z"},
			},
		}, true
	}

	info := Current()
	assert.Equal(t, "dev", info.Version)
	assert.Equal(t, "0123456789abcdef", info.Commit)
	assert.Equal(t, "go1.24.0", info.GoVersion)
	assert.Equal(t, "dev (0123456, 2026-01-18T10:00:00Z)", info.String())
}

func TestInfo_StringWithoutVCS(t *testing.T) {
	assert.Equal(t, "v1.2.0", Info{Version: "v1.2.0"}.String())
}
