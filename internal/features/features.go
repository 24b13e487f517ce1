// Package features extracts quantitative visual evidence from a normalized
// leaf buffer: capture quality, color-band coverage, texture, disease-pattern
// detections and nutrient deficiency flags.
//
// Every extractor is a pure function of pixel data. On failure an extractor
// returns its documented sentinel value together with a
// *model.FeatureExtractionError; callers record the error and continue.
package features

import (
	"errors"
	"fmt"

	"github.com/dmitriimaksimovdevelop/cocoscan/internal/imaging"
	"github.com/dmitriimaksimovdevelop/cocoscan/internal/model"
)

// ErrInvalidBuffer is wrapped when a buffer is nil, inconsistent or too small.
var ErrInvalidBuffer = errors.New("invalid pixel buffer")

// Component names used in FeatureExtractionError.
const (
	ComponentQuality   = "quality"
	ComponentColor     = "color"
	ComponentTexture   = "texture"
	ComponentPatterns  = "patterns"
	ComponentNutrients = "nutrients"
)

// checkBuffer requires a populated buffer of at least minSize x minSize.
func checkBuffer(component string, buf *imaging.Buffer, minSize int) error {
	if !buf.Valid() {
		return &model.FeatureExtractionError{Component: component, Err: ErrInvalidBuffer}
	}
	if buf.Size < minSize {
		return &model.FeatureExtractionError{
			Component: component,
			Err:       fmt.Errorf("%w: size %d below %d", ErrInvalidBuffer, buf.Size, minSize),
		}
	}
	return nil
}
