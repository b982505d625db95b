// Package permissions covers the one macOS privacy permission the selection
// tracker needs: Input Monitoring, which gates listen-only event taps.
package permissions

import (
	"log"
	"os"
	"strings"
)

// Status enumerates coarse permission results.
type Status string

const (
	StatusUnknown        Status = "unknown"
	StatusGranted        Status = "granted"
	StatusDenied         Status = "denied"
	StatusPromptRequired Status = "prompt"
	StatusUnavailable    Status = "unavailable"
)

// EnvInputMonitoring overrides the checked Input Monitoring state.
const EnvInputMonitoring = "SCREENSHOTS_INPUT_MONITORING"

// CheckResult is the coarse state of one permission.
type CheckResult struct {
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Guidance string `json:"guidance,omitempty"`
}

// LookupEnvFunc exposes environment probing for testability.
type LookupEnvFunc func(string) (string, bool)

// RequestNeededPermissions asks macOS for Input Monitoring access when the
// user has not decided yet. It neither blocks nor reports the answer; a
// denied permission surfaces later when the event tap cannot be created.
func RequestNeededPermissions() {
	if inputMonitoringAccess() == StatusPromptRequired {
		log.Printf("Permissions: requesting Input Monitoring access")
		requestInputMonitoring()
	}
}

// CheckInputMonitoring reports whether listen-only event taps are allowed.
func CheckInputMonitoring(lookup LookupEnvFunc) CheckResult {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if value, ok := lookup(EnvInputMonitoring); ok {
		return interpretFlag("input monitoring", value)
	}
	switch inputMonitoringAccess() {
	case StatusGranted:
		return CheckResult{Status: StatusGranted, Message: "input monitoring granted"}
	case StatusDenied:
		return CheckResult{
			Status:   StatusDenied,
			Message:  "input monitoring denied; selection rectangles will be unavailable",
			Guidance: "enable the app under System Settings > Privacy & Security > Input Monitoring",
		}
	case StatusPromptRequired:
		return CheckResult{Status: StatusPromptRequired, Message: "input monitoring will prompt on first capture"}
	default:
		return CheckResult{Status: StatusUnavailable, Message: "input monitoring unsupported on this platform"}
	}
}

func interpretFlag(name, value string) CheckResult {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "granted", "allow", "allowed", "yes", "true":
		return CheckResult{Status: StatusGranted, Message: name + " permission pre-authorised via env override"}
	case "denied", "no", "false", "blocked":
		return CheckResult{Status: StatusDenied, Message: name + " permission denied via env override", Guidance: "use 'tccutil reset ListenEvent' or unset " + EnvInputMonitoring + " to re-test"}
	case "prompt", "ask":
		return CheckResult{Status: StatusPromptRequired, Message: name + " permission will prompt at runtime"}
	case "unavailable", "unsupported":
		return CheckResult{Status: StatusUnavailable, Message: name + " permission unavailable on this platform"}
	default:
		return CheckResult{Status: StatusUnknown, Message: name + " permission state unknown"}
	}
}

// StatusString returns the status, defaulting to "unknown".
func (p CheckResult) StatusString() string {
	if p.Status == "" {
		return string(StatusUnknown)
	}
	return string(p.Status)
}
