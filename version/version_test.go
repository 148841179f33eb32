package version

import "testing"

func TestInfoShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"bare", Info{Version: "dev"}, "dev"},
		{"commit", Info{Version: "v1.2.0", Commit: "0123456789abcdef"}, "v1.2.0-0123456"},
		{"short commit", Info{Version: "v1.2.0", Commit: "abc"}, "v1.2.0-abc"},
		{"dirty", Info{Version: "v1.2.0", Commit: "abc1234", Dirty: true}, "v1.2.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInfoRelease(t *testing.T) {
	tests := []struct {
		info Info
		want bool
	}{
		{Info{Version: "dev"}, false},
		{Info{Version: "v1.0.0"}, true},
		{Info{Version: "v1.0.0", Dirty: true}, false},
		{Info{Version: "v1.0.0-dirty"}, false},
	}
	for _, tt := range tests {
		if got := tt.info.Release(); got != tt.want {
			t.Errorf("%+v Release() = %v, want %v", tt.info, got, tt.want)
		}
	}
}

func TestInfoString(t *testing.T) {
	info := Info{Version: "v1.0.0", GoVersion: "go1.26.0", BuildTime: "2026-01-02T03:04:05Z"}
	want := "v1.0.0 go1.26.0 (built 2026-01-02T03:04:05Z)"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGetKeepsStampedValues(t *testing.T) {
	orig := [3]string{Version, Commit, BuildTime}
	t.Cleanup(func() { Version, Commit, BuildTime = orig[0], orig[1], orig[2] })

	Version, Commit, BuildTime = "v9.9.9", "feedbee", "2026-05-01T00:00:00Z"
	info := Get()
	if info.Version != "v9.9.9" || info.Commit != "feedbee" || info.BuildTime != "2026-05-01T00:00:00Z" {
		t.Errorf("Get() = %+v, stamped values lost", info)
	}
}
