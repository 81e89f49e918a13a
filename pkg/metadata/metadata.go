// Package metadata guesses sample properties from frame file names and folders.
// Guessing is best effort; anything not recognised is left empty.
package metadata

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// Sample describes the specimen a time series was recorded from
type Sample struct {
	Magnification   string `yaml:"magnification,omitempty"`
	Substrate       string `yaml:"substrate,omitempty"`
	Material        string `yaml:"material,omitempty"`
	ThicknessNm     string `yaml:"thickness_nm,omitempty"`
	AnnealTempC     string `yaml:"anneal_temp_c,omitempty"`
	DepositionTempC string `yaml:"deposition_temp_c,omitempty"`
	GrowthDate      string `yaml:"growth_date,omitempty"`
	Note            string `yaml:"note,omitempty"`
}

// maxDateLevels is how many folders are searched upwards for a growth date
const maxDateLevels = 4

var datePattern = regexp.MustCompile(`^\d{4}.\d{2}.\d{2}$`)

// FromFilename reads key=value tokens from a file name such as
// "TPBi_mag=50x_sub=Si_T=165C_t=30nm_time=12s.png"
func FromFilename(name string) Sample {
	var s Sample
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ReplaceAll(base, "-", "_")
	for _, token := range strings.Split(base, "_") {
		key, value, ok := strings.Cut(token, "=")
		if !ok || value == "" {
			continue
		}
		switch key {
		case "mag", "magnification":
			s.Magnification = value
		case "sub", "substrate":
			s.Substrate = value
		case "mat", "material":
			s.Material = value
		case "T", "Ta", "Tanneal":
			s.AnnealTempC = strings.TrimSuffix(value, "C")
		case "Td", "Tgrowth", "Tdep":
			s.DepositionTempC = strings.TrimSuffix(value, "C")
		case "t", "thick", "thickness":
			if strings.HasSuffix(value, "nm") {
				s.ThicknessNm = strings.TrimSuffix(value, "nm")
			}
		}
	}
	return s
}

// GrowthDate looks for a "YYYY-MM-DD_..." folder among dir and its parents
func GrowthDate(dir string) string {
	dir = filepath.Clean(dir)
	for i := 0; i < maxDateLevels; i++ {
		prefix, _, _ := strings.Cut(filepath.Base(dir), "_")
		if datePattern.MatchString(prefix) {
			return prefix
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Guess combines the file name tokens of the first frame with the folder date
func Guess(firstFrame string) Sample {
	s := FromFilename(firstFrame)
	s.GrowthDate = GrowthDate(filepath.Dir(firstFrame))
	return s
}

// Apply overrides guessed values with explicitly given ones. Keys use the
// yaml names of Sample; unknown keys are returned sorted.
func (s *Sample) Apply(values map[string]string) []string {
	fields := map[string]*string{
		"magnification":     &s.Magnification,
		"substrate":         &s.Substrate,
		"material":          &s.Material,
		"thickness_nm":      &s.ThicknessNm,
		"anneal_temp_c":     &s.AnnealTempC,
		"deposition_temp_c": &s.DepositionTempC,
		"growth_date":       &s.GrowthDate,
		"note":              &s.Note,
	}
	var unknown []string
	for k, v := range values {
		field, ok := fields[k]
		if !ok {
			unknown = append(unknown, k)
			continue
		}
		*field = v
	}
	sort.Strings(unknown)
	return unknown
}
