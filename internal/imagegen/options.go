package imagegen

import "slices"

// Model identifiers accepted by the Gemini image endpoints.
const (
	ModelFlash = "gemini-2.5-flash-image"
	ModelPro   = "gemini-3-pro-image-preview"
)

// Defaults applied when a user has not chosen otherwise.
const (
	DefaultAspectRatio = "1:1"
	DefaultImageSize   = "1K"
	DefaultModel       = ModelPro
)

var (
	// AspectRatios lists the supported output aspect ratios.
	AspectRatios = []string{"1:1", "16:9", "9:16", "4:3", "3:4"}
	// ImageSizes lists the supported output resolutions.
	ImageSizes = []string{"1K", "2K"}
)

// Model describes a selectable image model.
type Model struct {
	ID    string
	Name  string
	Label string
}

// Models lists the selectable models, fast first.
var Models = []Model{
	{ID: ModelFlash, Name: "Gemini 2.5 Flash", Label: "Gemini 2.5 Flash (Fast)"},
	{ID: ModelPro, Name: "Gemini 3 Pro", Label: "Gemini 3 Pro (High Quality)"},
}

// ModelByID looks up a model by identifier.
func ModelByID(id string) (Model, bool) {
	i := slices.IndexFunc(Models, func(m Model) bool { return m.ID == id })
	if i < 0 {
		return Model{}, false
	}
	return Models[i], true
}

// ModelName returns the short display name for id, or id itself when unknown.
func ModelName(id string) string {
	if m, ok := ModelByID(id); ok {
		return m.Name
	}
	return id
}

// ValidAspectRatio reports whether v is a supported aspect ratio.
func ValidAspectRatio(v string) bool { return slices.Contains(AspectRatios, v) }

// ValidImageSize reports whether v is a supported image size.
func ValidImageSize(v string) bool { return slices.Contains(ImageSizes, v) }

// ValidModel reports whether v is a supported model id.
func ValidModel(v string) bool {
	_, ok := ModelByID(v)
	return ok
}
