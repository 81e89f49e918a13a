package timeseries

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"grainrate/internal/models"
)

// ErrTimestampUnresolvable is returned when a frame's acquisition time cannot be determined
var ErrTimestampUnresolvable = errors.New("timestamp unresolvable")

// TimeSource selects how acquisition times are read
type TimeSource string

const (
	// ModTime uses the file modification time
	ModTime TimeSource = "modtime"

	// FilenameToken parses a number embedded in the file name, e.g. "grain_time=120s.png"
	FilenameToken TimeSource = "filename"
)

// Default markers around the time token in file names
const (
	DefaultTimePrefix = "time="
	DefaultTimeSuffix = "s"
)

// TimeResolver reads acquisition timestamps from frame files
type TimeResolver struct {
	Source TimeSource

	// Prefix and Suffix delimit the numeric token for FilenameToken
	Prefix string
	Suffix string
}

// Resolve returns the timestamp of one file in seconds
func (tr TimeResolver) Resolve(path string) (float64, error) {
	switch tr.Source {
	case ModTime:
		info, err := os.Stat(path)
		if err != nil {
			return 0, fmt.Errorf("%w: %s: %v", ErrTimestampUnresolvable, path, err)
		}
		return float64(info.ModTime().UnixNano()) / 1e9, nil

	case FilenameToken:
		return parseToken(filepath.Base(path), tr.prefix(), tr.suffix())

	default:
		return 0, fmt.Errorf("%w: unknown time source %q", ErrTimestampUnresolvable, tr.Source)
	}
}

func (tr TimeResolver) prefix() string {
	if tr.Prefix == "" {
		return DefaultTimePrefix
	}
	return tr.Prefix
}

func (tr TimeResolver) suffix() string {
	if tr.Suffix == "" {
		return DefaultTimeSuffix
	}
	return tr.Suffix
}

// parseToken extracts the number between the first prefix and the following suffix
func parseToken(name, prefix, suffix string) (float64, error) {
	start := strings.Index(name, prefix)
	if start < 0 {
		return 0, fmt.Errorf("%w: %q has no %q token", ErrTimestampUnresolvable, name, prefix)
	}
	rest := name[start+len(prefix):]
	end := strings.Index(rest, suffix)
	if end < 0 {
		return 0, fmt.Errorf("%w: %q has no %q after %q", ErrTimestampUnresolvable, name, suffix, prefix)
	}
	v, err := strconv.ParseFloat(rest[:end], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrTimestampUnresolvable, name, err)
	}
	return v, nil
}

// ResolveFrames builds frame records for every path. Any unresolvable file fails the whole set.
func ResolveFrames(paths []string, tr TimeResolver) ([]models.FrameRecord, error) {
	frames := make([]models.FrameRecord, 0, len(paths))
	for _, p := range paths {
		ts, err := tr.Resolve(p)
		if err != nil {
			return nil, err
		}
		frames = append(frames, models.FrameRecord{Path: p, Timestamp: ts})
	}
	return frames, nil
}

// SortFrames orders frames by timestamp and sets Elapsed relative to the earliest one.
// The input slice is not modified.
func SortFrames(frames []models.FrameRecord) []models.FrameRecord {
	sorted := make([]models.FrameRecord, len(frames))
	copy(sorted, frames)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})
	if len(sorted) == 0 {
		return sorted
	}
	t0 := sorted[0].Timestamp
	for i := range sorted {
		sorted[i].Elapsed = sorted[i].Timestamp - t0
	}
	return sorted
}

// ElapsedTimes returns the Elapsed value of each frame
func ElapsedTimes(frames []models.FrameRecord) []float64 {
	times := make([]float64, len(frames))
	for i, f := range frames {
		times[i] = f.Elapsed
	}
	return times
}

// ListImages returns the image files in a directory, sorted by name
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".tif", ".tiff", ".jpg", ".jpeg", ".bmp", ".gif":
			paths = append(paths, filepath.Join(dir, entry.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no images found in %s", dir)
	}
	sort.Strings(paths)
	return paths, nil
}
