package domain

const (
	ToolCrop           = "crop"
	ToolResize         = "resize"
	ToolRotateFlip     = "rotate-flip"
	ToolCombine        = "rotate-flip-combine"
	ToolColorRestore   = "color-restore"
	ToolUnblur         = "unblur"
	ToolAutoEnhance    = "auto-enhance"
	ToolArtisticFilter = "artistic-filter"
	ToolWordToPDF      = "word-to-pdf"

	MaxDimension     = 50000
	MaxResizeEdge    = 10000
	MinCombineImages = 2
	MaxCombineImages = 5
)

// Output is embedded in every image tool's options. Format is optional; an
// empty value keeps the input format.
type Output struct {
	Format  string `json:"format,omitempty" validate:"omitempty,oneof=png jpg jpeg webp"`
	Quality int    `json:"quality,omitempty" validate:"omitempty,min=1,max=100"`
}

type CropOptions struct {
	X      int `json:"x" validate:"min=0,max=50000"`
	Y      int `json:"y" validate:"min=0,max=50000"`
	Width  int `json:"width" validate:"min=1,max=50000"`
	Height int `json:"height" validate:"min=1,max=50000"`
	Output
}

const (
	FitFill    = "fill"
	FitContain = "contain"
	FitCover   = "cover"
	FitInside  = "inside"
)

type ResizeOptions struct {
	Width      int    `json:"width" validate:"min=0,max=10000"`
	Height     int    `json:"height" validate:"min=0,max=10000"`
	Fit        string `json:"fit" validate:"oneof=fill contain cover inside"`
	Background string `json:"background" validate:"hexcolor"`
	Output
}

func DefaultResizeOptions() ResizeOptions {
	return ResizeOptions{Fit: FitInside, Background: "#ffffff"}
}

type RotateFlipOptions struct {
	Rotation       float64 `json:"rotation" validate:"min=-360,max=360"`
	FlipHorizontal bool    `json:"flipHorizontal"`
	FlipVertical   bool    `json:"flipVertical"`
	Background     string  `json:"background" validate:"omitempty,hexcolor"`
	CropToFit      bool    `json:"cropToFit"`
	Output
}

func DefaultRotateFlipOptions() RotateFlipOptions {
	return RotateFlipOptions{Background: "#ffffff"}
}

const (
	LayoutSideBySide = "side-by-side"
	LayoutTopBottom  = "top-bottom"
	LayoutOverlay    = "overlay"

	AlignStart  = "start"
	AlignCenter = "center"
	AlignEnd    = "end"
)

// CombineOptions drives the multi-image rotate/flip tool. Images, when set,
// holds one transform per uploaded file in upload order; an entry without a
// background uses the combine background.
type CombineOptions struct {
	Layout     string              `json:"layout" validate:"oneof=side-by-side top-bottom overlay"`
	Spacing    int                 `json:"spacing" validate:"min=0,max=500"`
	Alignment  string              `json:"alignment" validate:"oneof=start center end"`
	Background string              `json:"background" validate:"hexcolor"`
	Images     []RotateFlipOptions `json:"images,omitempty" validate:"omitempty,max=5,dive"`
	Output
}

func DefaultCombineOptions() CombineOptions {
	return CombineOptions{
		Layout:     LayoutSideBySide,
		Alignment:  AlignCenter,
		Background: "#ffffff",
	}
}

type ColorRestoreOptions struct {
	Mode             string `json:"mode" validate:"oneof=auto faded vintage sepia vibrant"`
	Intensity        int    `json:"intensity" validate:"min=1,max=100"`
	Denoise          bool   `json:"denoise"`
	PreserveDetails  bool   `json:"preserveDetails"`
	CorrectColorCast bool   `json:"correctColorCast"`
	Output
}

func DefaultColorRestoreOptions() ColorRestoreOptions {
	return ColorRestoreOptions{Mode: "auto", Intensity: 50, CorrectColorCast: true}
}

type UnblurOptions struct {
	Mode            string `json:"mode" validate:"oneof=standard gaussian motion deep"`
	Strength        int    `json:"strength" validate:"min=1,max=100"`
	Denoise         bool   `json:"denoise"`
	EdgeEnhance     bool   `json:"edgeEnhance"`
	PreserveDetails bool   `json:"preserveDetails"`
	Output
}

func DefaultUnblurOptions() UnblurOptions {
	return UnblurOptions{Mode: "standard", Strength: 50, PreserveDetails: true}
}

type AutoEnhanceOptions struct {
	Mode         string `json:"mode" validate:"oneof=auto portrait landscape low-light vivid"`
	Intensity    int    `json:"intensity" validate:"min=1,max=100"`
	Brightness   int    `json:"brightness" validate:"min=-100,max=100"`
	Contrast     int    `json:"contrast" validate:"min=-100,max=100"`
	Temperature  int    `json:"temperature" validate:"min=-100,max=100"`
	Denoise      bool   `json:"denoise"`
	Sharpen      bool   `json:"sharpen"`
	ColorCorrect bool   `json:"colorCorrect"`
	Output
}

func DefaultAutoEnhanceOptions() AutoEnhanceOptions {
	return AutoEnhanceOptions{Mode: "auto", Intensity: 50, Sharpen: true, ColorCorrect: true}
}

type ArtisticFilterOptions struct {
	Filter    string `json:"filter" validate:"oneof=grayscale sepia invert vintage emboss sketch posterize blur"`
	Intensity int    `json:"intensity" validate:"min=1,max=100"`
	Output
}

func DefaultArtisticFilterOptions() ArtisticFilterOptions {
	return ArtisticFilterOptions{Filter: "grayscale", Intensity: 100}
}
