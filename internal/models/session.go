package models

// Range is an open intensity interval (Lower, Upper)
type Range struct {
	Lower float64
	Upper float64
}

// ContrastOptions controls the optional contrast enhancement applied to the
// full frame before cropping
type ContrastOptions struct {
	// Rescale enables a fixed linear remap of [RescaleLow, RescaleHigh] onto 0-255
	Rescale     bool
	RescaleLow  float64
	RescaleHigh float64

	// Equalize enables contrast limited adaptive histogram equalization
	Equalize bool

	// ClipLimit is the normalized CLAHE clip limit in (0,1]
	ClipLimit float64
}

// ThresholdSpec describes how a cropped frame is turned into a grain mask
type ThresholdSpec struct {
	// Ranges are the intensity bands. Without inversion a pixel is grain when it
	// falls inside any band; with inversion it must fall outside every band.
	Ranges []Range

	// Invert selects pixels outside the ranges instead of inside
	Invert bool

	// DiskRadius is the despeckle median filter radius in pixels (0 disables it)
	DiskRadius int

	// Contrast holds the preprocessing options
	Contrast ContrastOptions
}

// Session bundles the externally chosen parameters of one analysis.
// It is built once and passed by value; the pipeline never mutates it.
type Session struct {
	Crop      CropRegion
	Threshold ThresholdSpec
	Lines     []DirectionalLine
}
