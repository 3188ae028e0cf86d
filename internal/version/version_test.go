package version

import (
	"runtime/debug"
	"strings"
	"testing"
)

func TestFromBuildInfo_FillsUnset(t *testing.T) {
	info := Info{Version: "dev", Commit: "unknown", BuildDate: "unknown"}
	fromBuildInfo(&info, &debug.BuildInfo{
		Main: debug.Module{Version: "v1.2.3"},
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "abc123"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
			{Key: "vcs.modified", Value: "true"},
		},
	})

	if info.Version != "1.2.3" {
		t.Errorf("Version = %q", info.Version)
	}
	if info.Commit != "abc123" || info.BuildDate != "2026-01-02T03:04:05Z" || !info.Dirty {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestFromBuildInfo_KeepsLdflags(t *testing.T) {
	info := Info{Version: "2.0.0", Commit: "deadbeef", BuildDate: "2026-05-01"}
	fromBuildInfo(&info, &debug.BuildInfo{
		Main:     debug.Module{Version: "(devel)"},
		Settings: []debug.BuildSetting{{Key: "vcs.revision", Value: "abc123"}},
	})

	if info.Version != "2.0.0" || info.Commit != "deadbeef" || info.BuildDate != "2026-05-01" {
		t.Errorf("ldflags values should win, got %+v", info)
	}
}

func TestFull_ContainsFields(t *testing.T) {
	out := Full()
	for _, want := range []string{"realty ", "Commit:", "Go version:", "OS/Arch:"} {
		if !strings.Contains(out, want) {
			t.Errorf("Full() missing %q:\n%s", want, out)
		}
	}
}
