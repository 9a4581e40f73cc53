package logging

import (
	"strings"
	"time"
)

const (
	// Console lines use local time; run logs are UTC so they sort and merge
	// across machines.
	consoleTimeLayout = "2006-01-02 15:04:05.000"
	runLogTimeLayout  = "2006-01-02T15:04:05.000Z"
	runLogStampLayout = "20060102T150405"
	runLogPrefix      = "featmill-"
	runLogSuffix      = ".log"
)

func formatTimestamp(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(consoleTimeLayout)
}

func formatRunLogTime(ts time.Time) string {
	return ts.UTC().Format(runLogTimeLayout)
}

// runLogName is the file name RunLogPath uses for a run started at now.
func runLogName(now time.Time) string {
	return runLogPrefix + now.UTC().Format(runLogStampLayout) + runLogSuffix
}

// runLogTime recovers the start time encoded by runLogName.
func runLogTime(name string) (time.Time, bool) {
	if !strings.HasPrefix(name, runLogPrefix) || !strings.HasSuffix(name, runLogSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, runLogPrefix), runLogSuffix)
	ts, err := time.ParseInLocation(runLogStampLayout, stamp, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}
