package metadata

import (
	"path/filepath"
	"testing"
)

func TestFromFilename(t *testing.T) {
	s := FromFilename("TPBi_mag=50x_sub=Si_T=165C_t=30nm-Td=25C_mat=TPBi_time=12s.png")
	expected := Sample{
		Magnification:   "50x",
		Substrate:       "Si",
		Material:        "TPBi",
		ThicknessNm:     "30",
		AnnealTempC:     "165",
		DepositionTempC: "25",
	}
	if s != expected {
		t.Errorf("Expected %+v, got %+v", expected, s)
	}
}

func TestFromFilenameIgnoresUnknownTokens(t *testing.T) {
	s := FromFilename(filepath.Join("dir_mag=10x", "frame_001_t=5s.tif"))
	if s != (Sample{}) {
		t.Errorf("Expected nothing guessed, got %+v", s)
	}
}

func TestGrowthDate(t *testing.T) {
	tests := []struct {
		dir      string
		expected string
	}{
		{filepath.Join("data", "2019-03-14_TPBi", "run1", "frames"), "2019-03-14"},
		{filepath.Join("data", "2019-03-14"), "2019-03-14"},
		{filepath.Join("2019-03-14_x", "a", "b", "c", "d"), ""},
		{filepath.Join("data", "march_run"), ""},
	}
	for _, tc := range tests {
		if got := GrowthDate(tc.dir); got != tc.expected {
			t.Errorf("%s: expected %q, got %q", tc.dir, tc.expected, got)
		}
	}
}

func TestGuessAndApply(t *testing.T) {
	s := Guess(filepath.Join("2020-01-02_anneal", "grain_mag=20x_time=0s.png"))
	if s.Magnification != "20x" || s.GrowthDate != "2020-01-02" {
		t.Errorf("Unexpected guess %+v", s)
	}

	unknown := s.Apply(map[string]string{
		"magnification": "50x",
		"note":          "second anneal",
		"operator":      "jb",
		"colour":        "red",
	})
	if s.Magnification != "50x" || s.Note != "second anneal" {
		t.Errorf("Expected overrides applied, got %+v", s)
	}
	if len(unknown) != 2 || unknown[0] != "colour" || unknown[1] != "operator" {
		t.Errorf("Expected sorted unknown keys, got %v", unknown)
	}
}
