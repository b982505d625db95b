//go:build !darwin || !cgo

package permissions

func inputMonitoringAccess() Status { return StatusUnavailable }

func requestInputMonitoring() {}
