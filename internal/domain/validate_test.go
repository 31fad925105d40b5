package domain

import (
	"math"
	"strings"
	"testing"

	"github.com/dunamismax/imagetools/internal/probe"
)

func TestCropOptionsValidate(t *testing.T) {
	valid := CropOptions{X: 10, Y: 10, Width: 100, Height: 50}
	if res := valid.Validate(); !res.Valid {
		t.Fatalf("expected valid crop options, got %q", res.Reason)
	}

	tests := []struct {
		name string
		opts CropOptions
		want string
	}{
		{"negative x", CropOptions{X: -1, Y: 0, Width: 10, Height: 10}, "x must be at least 0"},
		{"zero width", CropOptions{Width: 0, Height: 10}, "width must be at least 1"},
		{"huge height", CropOptions{Width: 10, Height: MaxDimension + 1}, "height must be at most 50000"},
		{"bad format", CropOptions{Width: 10, Height: 10, Output: Output{Format: "bmp"}}, "format must be one of"},
		{"bad quality", CropOptions{Width: 10, Height: 10, Output: Output{Quality: 101}}, "quality must be at most 100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := tt.opts.Validate()
			if res.Valid {
				t.Fatal("expected validation failure")
			}
			if !strings.Contains(res.Reason, tt.want) {
				t.Fatalf("expected reason containing %q, got %q", tt.want, res.Reason)
			}
		})
	}
}

func TestCropOptionsValidateBounds(t *testing.T) {
	dims := probe.Dimensions{Width: 200, Height: 200}

	if res := (CropOptions{X: 10, Y: 10, Width: 100, Height: 50}).ValidateBounds(dims); !res.Valid {
		t.Fatalf("expected in-bounds crop, got %q", res.Reason)
	}
	if res := (CropOptions{X: 0, Y: 0, Width: 200, Height: 200}).ValidateBounds(dims); !res.Valid {
		t.Fatalf("expected full-image crop to be valid, got %q", res.Reason)
	}
	if res := (CropOptions{X: 150, Y: 0, Width: 51, Height: 10}).ValidateBounds(dims); res.Valid {
		t.Fatal("expected width overflow to fail")
	}
	if res := (CropOptions{X: 0, Y: 199, Width: 10, Height: 2}).ValidateBounds(dims); res.Valid {
		t.Fatal("expected height overflow to fail")
	}
}

func TestRotateFlipOptionsValidate(t *testing.T) {
	opts := DefaultRotateFlipOptions()
	opts.Rotation = -360
	if res := opts.Validate(); !res.Valid {
		t.Fatalf("expected -360 to be valid, got %q", res.Reason)
	}

	for _, rotation := range []float64{360.5, -361, math.NaN(), math.Inf(1)} {
		opts.Rotation = rotation
		if res := opts.Validate(); res.Valid {
			t.Fatalf("expected rotation %v to be rejected", rotation)
		}
	}

	opts = DefaultRotateFlipOptions()
	opts.Background = "white"
	if res := opts.Validate(); res.Valid {
		t.Fatal("expected named color to be rejected")
	}
}

func TestResizeOptionsRequiresOneEdge(t *testing.T) {
	opts := DefaultResizeOptions()
	if res := opts.Validate(); res.Valid {
		t.Fatal("expected missing width and height to fail")
	}
	opts.Width = 320
	if res := opts.Validate(); !res.Valid {
		t.Fatalf("expected width-only resize to be valid, got %q", res.Reason)
	}
	opts.Fit = "stretch"
	if res := opts.Validate(); res.Valid {
		t.Fatal("expected unknown fit to fail")
	}
}

func TestCombineOptionsValidate(t *testing.T) {
	opts := DefaultCombineOptions()
	if res := opts.Validate(); !res.Valid {
		t.Fatalf("expected defaults to be valid, got %q", res.Reason)
	}
	if res := opts.ValidateImageCount(1); res.Valid {
		t.Fatal("expected a single image to be rejected")
	}
	if res := opts.ValidateImageCount(6); res.Valid {
		t.Fatal("expected six images to be rejected")
	}

	opts.Images = []RotateFlipOptions{DefaultRotateFlipOptions(), DefaultRotateFlipOptions()}
	if res := opts.ValidateImageCount(3); res.Valid {
		t.Fatal("expected mismatched per-image list to be rejected")
	}

	opts.Images = []RotateFlipOptions{{Rotation: 90}, {FlipHorizontal: true}}
	if res := opts.Validate(); !res.Valid {
		t.Fatalf("expected entries without a background to be valid, got %q", res.Reason)
	}
	opts.Images[0].Background = "blue"
	if res := opts.Validate(); res.Valid {
		t.Fatal("expected a named per-image background to be rejected")
	}
	opts.Images[0].Background = ""

	opts.Images[1].Rotation = 400
	if res := opts.Validate(); res.Valid {
		t.Fatal("expected nested rotation out of range to be rejected")
	}

	opts = DefaultCombineOptions()
	opts.Layout = "grid"
	if res := opts.Validate(); res.Valid {
		t.Fatal("expected unknown layout to be rejected")
	}
}

func TestEnhancementOptionRanges(t *testing.T) {
	restore := DefaultColorRestoreOptions()
	restore.Intensity = 0
	if res := restore.Validate(); res.Valid {
		t.Fatal("expected intensity 0 to be rejected")
	}

	unblur := DefaultUnblurOptions()
	unblur.Mode = "ai"
	if res := unblur.Validate(); res.Valid {
		t.Fatal("expected unknown unblur mode to be rejected")
	}

	enhance := DefaultAutoEnhanceOptions()
	enhance.Temperature = -100
	enhance.Contrast = 100
	if res := enhance.Validate(); !res.Valid {
		t.Fatalf("expected boundary values to be valid, got %q", res.Reason)
	}
	enhance.Brightness = -101
	if res := enhance.Validate(); res.Valid {
		t.Fatal("expected brightness -101 to be rejected")
	}

	filter := DefaultArtisticFilterOptions()
	filter.Filter = "oil-paint"
	if res := filter.Validate(); res.Valid {
		t.Fatal("expected unknown filter to be rejected")
	}
}

func TestProcessingCode(t *testing.T) {
	if got := ProcessingCode(ToolRotateFlip); got != "ROTATE_FLIP_PROCESSING_ERROR" {
		t.Fatalf("unexpected code %s", got)
	}
	err := ProcessingError(ToolCrop, nil)
	if err.Status != 500 || err.Code != "CROP_PROCESSING_ERROR" {
		t.Fatalf("unexpected processing error %+v", err)
	}
}
