package image

import (
	"encoding/json"
	"strings"
)

// Result is the canonical outcome of a provider request.
type Result struct {
	URL               string
	ExternalRequestID string
	Raw               json.RawMessage
}

type resultImage struct {
	URL string `json:"url"`
}

// NormalizeResult extracts the result image URL from a provider payload.
// An "images" list wins over a single "image" object, and the first listed
// image is selected.
func NormalizeResult(raw json.RawMessage) (string, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return "", &ResponseFormatError{Reason: "response is not a JSON object"}
	}

	if list, ok := fields["images"]; ok {
		var images []resultImage
		if err := json.Unmarshal(list, &images); err != nil {
			return "", &ResponseFormatError{Reason: `"images" is not a list of images`}
		}
		if len(images) > 0 {
			return imageURL(images[0], `"images[0]"`)
		}
	}
	if single, ok := fields["image"]; ok && string(single) != "null" {
		var img resultImage
		if err := json.Unmarshal(single, &img); err != nil {
			return "", &ResponseFormatError{Reason: `"image" is not an image object`}
		}
		return imageURL(img, `"image"`)
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	return "", &ResponseFormatError{Reason: `neither "images" nor "image" present`, Keys: keys}
}

func imageURL(img resultImage, where string) (string, error) {
	url := strings.TrimSpace(img.URL)
	if url == "" {
		return "", &ResponseFormatError{Reason: where + " has no url"}
	}
	return url, nil
}
