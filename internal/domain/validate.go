package domain

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/dunamismax/imagetools/internal/probe"
)

// ValidationResult is the outcome of checking a tool's options. Validation
// never fails with an error; callers turn Valid=false into a client error.
type ValidationResult struct {
	Valid  bool
	Reason string
}

func valid() ValidationResult {
	return ValidationResult{Valid: true}
}

func invalid(format string, args ...any) ValidationResult {
	return ValidationResult{Reason: fmt.Sprintf(format, args...)}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}
		return name
	})
	return v
}

func checkStruct(opts any) ValidationResult {
	if err := validate.Struct(opts); err != nil {
		return ValidationResult{Reason: validationReason(err)}
	}
	return valid()
}

func validationReason(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "invalid options"
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("%s must contain at most %s entries", field, fe.Param())
		}
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "hexcolor":
		return fmt.Sprintf("%s must be a hex color such as #ffffff", field)
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

func finite(name string, v float64) ValidationResult {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid("%s must be a finite number", name)
	}
	return valid()
}

func (o CropOptions) Validate() ValidationResult {
	return checkStruct(o)
}

// ValidateBounds is the second validation phase, run once the image size is
// known.
func (o CropOptions) ValidateBounds(dims probe.Dimensions) ValidationResult {
	if o.X+o.Width > dims.Width {
		return invalid("crop area exceeds image width: x+width=%d, image width=%d", o.X+o.Width, dims.Width)
	}
	if o.Y+o.Height > dims.Height {
		return invalid("crop area exceeds image height: y+height=%d, image height=%d", o.Y+o.Height, dims.Height)
	}
	return valid()
}

func (o ResizeOptions) Validate() ValidationResult {
	if res := checkStruct(o); !res.Valid {
		return res
	}
	if o.Width == 0 && o.Height == 0 {
		return invalid("width or height must be provided")
	}
	return valid()
}

func (o RotateFlipOptions) Validate() ValidationResult {
	if res := finite("rotation", o.Rotation); !res.Valid {
		return res
	}
	return checkStruct(o)
}

func (o CombineOptions) Validate() ValidationResult {
	for i, img := range o.Images {
		if res := finite(fmt.Sprintf("images[%d].rotation", i), img.Rotation); !res.Valid {
			return res
		}
	}
	return checkStruct(o)
}

// ValidateImageCount checks the upload count against the combine limits and
// the per-image transform list.
func (o CombineOptions) ValidateImageCount(n int) ValidationResult {
	if n < MinCombineImages || n > MaxCombineImages {
		return invalid("combine requires between %d and %d images, got %d", MinCombineImages, MaxCombineImages, n)
	}
	if len(o.Images) != 0 && len(o.Images) != n {
		return invalid("images must contain one entry per uploaded image: got %d entries for %d images", len(o.Images), n)
	}
	return valid()
}

func (o ColorRestoreOptions) Validate() ValidationResult {
	return checkStruct(o)
}

func (o UnblurOptions) Validate() ValidationResult {
	return checkStruct(o)
}

func (o AutoEnhanceOptions) Validate() ValidationResult {
	return checkStruct(o)
}

func (o ArtisticFilterOptions) Validate() ValidationResult {
	return checkStruct(o)
}
