//go:build darwin

package watcher

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

func creationTime(path string, info fs.FileInfo) time.Time {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		return info.ModTime()
	}
	return time.Unix(st.Btim.Unix())
}
