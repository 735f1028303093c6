// Package freshness inspects an HLS output directory to judge whether a
// session's capture pipeline is still producing current video.
package freshness

import (
	"os"
	"path/filepath"
	"time"
)

// Report is the result of one freshness evaluation.
type Report struct {
	// LastSegmentAgeMS is the age, in milliseconds, of the newest .ts
	// segment found in the directory. Nil (via HasSegment) when no segment
	// exists yet and the master playlist's own mtime was used instead.
	LastSegmentAgeMS int64
	HasSegment       bool
	Stale            bool
}

// Evaluate inspects dir (a session's HLS output directory) as of now and
// reports whether its newest artifact is older than staleAfter. It is a pure
// function of the filesystem state passed to it, so it is deterministic and
// testable without a live encoder: given the same directory contents and
// `now`, it always returns the same verdict.
func Evaluate(dir string, staleAfter time.Duration, now time.Time) Report {
	masterPath := filepath.Join(dir, "index.m3u8")
	masterInfo, err := os.Stat(masterPath)
	if err != nil {
		return Report{Stale: true}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return Report{Stale: true}
	}

	var newest time.Time
	found := false
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".ts" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if !found || info.ModTime().After(newest) {
			newest = info.ModTime()
			found = true
		}
	}

	if !found {
		age := now.Sub(masterInfo.ModTime())
		return Report{Stale: age > staleAfter}
	}

	age := now.Sub(newest)
	return Report{
		LastSegmentAgeMS: age.Milliseconds(),
		HasSegment:       true,
		Stale:            age > staleAfter,
	}
}
