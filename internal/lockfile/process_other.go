//go:build !unix

package lockfile

// isProcessRunning is a conservative stub for platforms without a cheap
// signal-0 probe: report the holder as running so reclamation falls back
// to the age threshold alone.
func isProcessRunning(pid int) bool {
	return pid > 0
}
