package services

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/keyproxy/internal/apperr"
)

// Validator holds the request limits. All checks return *apperr.Error of
// the Validation kind.
type Validator struct {
	MaxReferenceImages     int
	MaxReferenceImageBytes int64
}

func NewValidator(maxImages int, maxImageBytes int64) *Validator {
	return &Validator{MaxReferenceImages: maxImages, MaxReferenceImageBytes: maxImageBytes}
}

// SanitizeURLs trims every URL and drops the blank ones.
func SanitizeURLs(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if v := strings.TrimSpace(u); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (v *Validator) Prompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return apperr.Validation("Prompt is required")
	}
	return nil
}

// ReferenceImages limits the number of images and, for inline data: URLs,
// the decoded size estimated as len(payload)*3/4.
func (v *Validator) ReferenceImages(urls []string) error {
	if len(urls) > v.MaxReferenceImages {
		return apperr.Validation(fmt.Sprintf("Too many reference images (max %d)", v.MaxReferenceImages))
	}

	for _, u := range urls {
		if !strings.HasPrefix(u, "data:") {
			continue
		}

		_, payload, ok := strings.Cut(u, ",")
		if !ok {
			return apperr.Validation("Invalid reference image data")
		}

		if int64(len(payload))*3/4 > v.MaxReferenceImageBytes {
			maxMB := v.MaxReferenceImageBytes / (1024 * 1024)
			return apperr.Validation(fmt.Sprintf("Reference image exceeds size limit (max %d MB)", maxMB))
		}
	}
	return nil
}

func (v *Validator) Messages(messages []json.RawMessage) error {
	if len(messages) == 0 {
		return apperr.Validation("messages is required")
	}
	return nil
}

func (v *Validator) DrawID(id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("id is required")
	}
	return nil
}

func (v *Validator) APIKey(value string) error {
	if strings.TrimSpace(value) == "" {
		return apperr.Validation("API key is required")
	}
	return nil
}
