//go:build darwin && cgo

package permissions

/*
#cgo LDFLAGS: -framework IOKit -framework CoreFoundation
#include <IOKit/hid/IOHIDLib.h>

static int screenshotsCheckListenAccess(void) {
	return (int)IOHIDCheckAccess(kIOHIDRequestTypeListenEvent);
}

static void screenshotsRequestListenAccess(void) {
	IOHIDRequestAccess(kIOHIDRequestTypeListenEvent);
}
*/
import "C"

func inputMonitoringAccess() Status {
	switch C.screenshotsCheckListenAccess() {
	case C.int(C.kIOHIDAccessTypeGranted):
		return StatusGranted
	case C.int(C.kIOHIDAccessTypeDenied):
		return StatusDenied
	default:
		return StatusPromptRequired
	}
}

func requestInputMonitoring() {
	C.screenshotsRequestListenAccess()
}
