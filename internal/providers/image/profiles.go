package image

import (
	"errors"
	"fmt"
	"strings"
)

// RequestShape selects how the source image is placed in a provider request.
type RequestShape int

const (
	// ShapeImageList sends the image as a one-element "image_urls" array.
	ShapeImageList RequestShape = iota
	// ShapeSingleImage sends the image as "image_url".
	ShapeSingleImage
)

func (s RequestShape) String() string {
	switch s {
	case ShapeImageList:
		return "image_list"
	case ShapeSingleImage:
		return "single_image"
	default:
		return fmt.Sprintf("shape(%d)", int(s))
	}
}

const (
	ProfileSeedream   = "seedream"
	ProfileNanoBanana = "nano_banana"
	ProfileFluxDev    = "flux_dev"
)

// Profile is the complete request configuration for one remote model. A nil
// option is left out of the request so the provider applies its own default.
type Profile struct {
	// Name is the logical name clients select the profile by.
	Name string
	// ModelID is the provider endpoint, e.g. "fal-ai/nano-banana/edit".
	ModelID string
	Shape   RequestShape

	// Strength is how far diffusion may move away from the source (0..1).
	Strength *float64
	// GuidanceScale is how strictly the prompt is followed.
	GuidanceScale *float64
	// NumInferenceSteps trades latency for detail.
	NumInferenceSteps *int
	// NumImages is how many candidates the provider renders.
	NumImages *int
	// EnableSafetyChecker turns on provider-side NSFW filtering.
	EnableSafetyChecker *bool
}

// Arguments is the JSON body submitted to the provider.
type Arguments struct {
	Prompt              string   `json:"prompt"`
	ImageURL            string   `json:"image_url,omitempty"`
	ImageURLs           []string `json:"image_urls,omitempty"`
	Strength            *float64 `json:"strength,omitempty"`
	GuidanceScale       *float64 `json:"guidance_scale,omitempty"`
	NumInferenceSteps   *int     `json:"num_inference_steps,omitempty"`
	NumImages           *int     `json:"num_images,omitempty"`
	EnableSafetyChecker *bool    `json:"enable_safety_checker,omitempty"`
}

// Arguments shapes a request for this profile.
func (p Profile) Arguments(imageURL, prompt string) Arguments {
	args := Arguments{
		Prompt:              prompt,
		Strength:            p.Strength,
		GuidanceScale:       p.GuidanceScale,
		NumInferenceSteps:   p.NumInferenceSteps,
		NumImages:           p.NumImages,
		EnableSafetyChecker: p.EnableSafetyChecker,
	}
	switch p.Shape {
	case ShapeSingleImage:
		args.ImageURL = imageURL
	default:
		args.ImageURLs = []string{imageURL}
	}
	return args
}

// Validate checks that the profile can be submitted.
func (p Profile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return errors.New("profile name is required")
	}
	if strings.TrimSpace(p.ModelID) == "" {
		return fmt.Errorf("profile %s: model id is required", p.Name)
	}
	if p.Shape != ShapeImageList && p.Shape != ShapeSingleImage {
		return fmt.Errorf("profile %s: unsupported request shape %s", p.Name, p.Shape)
	}
	if p.Strength != nil && (*p.Strength < 0 || *p.Strength > 1) {
		return fmt.Errorf("profile %s: strength must be within [0,1]", p.Name)
	}
	if p.NumInferenceSteps != nil && *p.NumInferenceSteps <= 0 {
		return fmt.Errorf("profile %s: num_inference_steps must be positive", p.Name)
	}
	if p.NumImages != nil && *p.NumImages <= 0 {
		return fmt.Errorf("profile %s: num_images must be positive", p.Name)
	}
	return nil
}

// DefaultProfiles returns the built-in model profiles.
func DefaultProfiles() []Profile {
	return []Profile{
		{
			Name:              ProfileSeedream,
			ModelID:           "fal-ai/bytedance/seedream/v4/edit",
			Shape:             ShapeImageList,
			NumInferenceSteps: intPtr(50),
		},
		{
			Name:    ProfileNanoBanana,
			ModelID: "fal-ai/nano-banana/edit",
			Shape:   ShapeImageList,
		},
		{
			Name:                ProfileFluxDev,
			ModelID:             "fal-ai/flux-1/dev/image-to-image",
			Shape:               ShapeSingleImage,
			Strength:            floatPtr(0.75),
			GuidanceScale:       floatPtr(7.5),
			NumInferenceSteps:   intPtr(28),
			NumImages:           intPtr(1),
			EnableSafetyChecker: boolPtr(true),
		},
	}
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func boolPtr(v bool) *bool        { return &v }
