package timeseries

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"grainrate/internal/models"
)

func TestParseToken(t *testing.T) {
	tests := []struct {
		name     string
		expected float64
		wantErr  bool
	}{
		{"grain_time=120s.png", 120, false},
		{"time=1.5s_50x.tif", 1.5, false},
		{"a_time=30s_b_time=60s.png", 30, false},
		{"grain_120s.png", 0, true},
		{"grain_time=abcs.png", 0, true},
		{"grain_time=120.png", 0, true},
	}

	for _, tc := range tests {
		got, err := parseToken(tc.name, DefaultTimePrefix, DefaultTimeSuffix)
		if tc.wantErr {
			if !errors.Is(err, ErrTimestampUnresolvable) {
				t.Errorf("%s: expected ErrTimestampUnresolvable, got %v", tc.name, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error %v", tc.name, err)
			continue
		}
		if got != tc.expected {
			t.Errorf("%s: expected %f, got %f", tc.name, tc.expected, got)
		}
	}
}

func TestResolveUsesBaseName(t *testing.T) {
	tr := TimeResolver{Source: FilenameToken}
	got, err := tr.Resolve(filepath.Join("run_time=99s", "frame_time=7s.png"))
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != 7 {
		t.Errorf("Expected 7, got %f", got)
	}
}

func TestResolveCustomMarkers(t *testing.T) {
	tr := TimeResolver{Source: FilenameToken, Prefix: "t", Suffix: "sec"}
	got, err := tr.Resolve("frame_t45sec.png")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if got != 45 {
		t.Errorf("Expected 45, got %f", got)
	}
}

func TestResolveModTime(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "frame.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}
	when := time.Date(2021, 6, 1, 12, 0, 30, 500_000_000, time.UTC)
	if err := os.Chtimes(path, when, when); err != nil {
		t.Fatalf("Failed to set times: %v", err)
	}

	got, err := TimeResolver{Source: ModTime}.Resolve(path)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	expected := float64(when.UnixNano()) / 1e9
	if math.Abs(got-expected) > 1e-3 {
		t.Errorf("Expected %f, got %f", expected, got)
	}
}

func TestResolveUnresolvable(t *testing.T) {
	_, err := TimeResolver{Source: ModTime}.Resolve(filepath.Join(t.TempDir(), "missing.png"))
	if !errors.Is(err, ErrTimestampUnresolvable) {
		t.Errorf("Expected ErrTimestampUnresolvable for missing file, got %v", err)
	}

	_, err = TimeResolver{Source: "exif"}.Resolve("frame.png")
	if !errors.Is(err, ErrTimestampUnresolvable) {
		t.Errorf("Expected ErrTimestampUnresolvable for unknown source, got %v", err)
	}

	_, err = ResolveFrames([]string{"a_time=1s.png", "b.png"}, TimeResolver{Source: FilenameToken})
	if !errors.Is(err, ErrTimestampUnresolvable) {
		t.Errorf("Expected the whole set to fail, got %v", err)
	}
}

func TestSortFramesRezeroes(t *testing.T) {
	input := []models.FrameRecord{
		{Path: "c", Timestamp: 130},
		{Path: "a", Timestamp: 100},
		{Path: "b", Timestamp: 115},
	}

	sorted := SortFrames(input)
	order := []string{"a", "b", "c"}
	elapsed := []float64{0, 15, 30}
	for i := range sorted {
		if sorted[i].Path != order[i] {
			t.Errorf("Position %d: expected %s, got %s", i, order[i], sorted[i].Path)
		}
		if sorted[i].Elapsed != elapsed[i] {
			t.Errorf("Position %d: expected elapsed %f, got %f", i, elapsed[i], sorted[i].Elapsed)
		}
	}
	if input[0].Path != "c" || input[0].Elapsed != 0 {
		t.Errorf("Input slice was modified: %+v", input[0])
	}

	// Same result whatever the input order
	reversed := SortFrames([]models.FrameRecord{input[2], input[1], input[0]})
	for i := range reversed {
		if reversed[i] != sorted[i] {
			t.Errorf("Position %d differs between orders: %+v vs %+v", i, reversed[i], sorted[i])
		}
	}

	times := ElapsedTimes(sorted)
	if len(times) != 3 || times[2] != 30 {
		t.Errorf("Unexpected elapsed times %v", times)
	}

	if len(SortFrames(nil)) != 0 {
		t.Errorf("Expected empty result for no frames")
	}
}

func TestListImages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.png", "a.TIF", "notes.txt", "c.jpg"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub.png"), 0755); err != nil {
		t.Fatalf("Failed to create dir: %v", err)
	}

	paths, err := ListImages(dir)
	if err != nil {
		t.Fatalf("ListImages failed: %v", err)
	}
	expected := []string{"a.TIF", "b.png", "c.jpg"}
	if len(paths) != len(expected) {
		t.Fatalf("Expected %d images, got %v", len(expected), paths)
	}
	for i, p := range paths {
		if filepath.Base(p) != expected[i] {
			t.Errorf("Position %d: expected %s, got %s", i, expected[i], filepath.Base(p))
		}
	}

	if _, err := ListImages(t.TempDir()); err == nil {
		t.Errorf("Expected error for a directory without images")
	}
}
