package permissions

import "testing"

type fakeLookup map[string]string

func (f fakeLookup) get(key string) (string, bool) {
	v, ok := f[key]
	return v, ok
}

func TestInterpretFlag(t *testing.T) {
	cases := map[string]struct {
		value    string
		expected Status
	}{
		"granted":     {"granted", StatusGranted},
		"yes":         {" YES ", StatusGranted},
		"denied":      {"denied", StatusDenied},
		"prompt":      {"ask", StatusPromptRequired},
		"unsupported": {"unsupported", StatusUnavailable},
		"unknown":     {"", StatusUnknown},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			res := interpretFlag("test", tc.value)
			if res.Status != tc.expected {
				t.Fatalf("expected %s, got %s", tc.expected, res.Status)
			}
		})
	}
}

func TestCheckInputMonitoringHonoursEnv(t *testing.T) {
	res := CheckInputMonitoring(fakeLookup{EnvInputMonitoring: "denied"}.get)
	if res.Status != StatusDenied {
		t.Fatalf("expected denied, got %s", res.Status)
	}
	if res.Guidance == "" {
		t.Fatalf("expected guidance when denied")
	}
}

func TestCheckInputMonitoringWithoutOverride(t *testing.T) {
	res := CheckInputMonitoring(fakeLookup{}.get)
	if res.Status == StatusUnknown || res.Message == "" {
		t.Fatalf("expected a platform specific answer, got %+v", res)
	}
}

func TestStatusStringDefaultsToUnknown(t *testing.T) {
	if got := (CheckResult{}).StatusString(); got != "unknown" {
		t.Fatalf("got %q", got)
	}
	if got := (CheckResult{Status: StatusGranted}).StatusString(); got != "granted" {
		t.Fatalf("got %q", got)
	}
}
