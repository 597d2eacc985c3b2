package hcl

import (
	"github.com/vk/qr3d/internal/config"
	"github.com/vk/qr3d/internal/schema"
)

// translateSettings converts the HCL-specific settings schema into the
// agnostic model.
func translateSettings(s *schema.Settings) config.Settings {
	return config.Settings{
		Input:        s.Input,
		PlaceID:      s.PlaceID,
		FromMetadata: s.FromMetadata,
		OutputName:   s.OutputName,
		OutputDir:    s.OutputDir,
		Mode:         s.Mode,
		Thickness:    s.Thickness,
		CardHeight:   s.CardHeight,
		Margin:       s.Margin,
		Relief:       s.Relief,
		CornerRadius: s.CornerRadius,
		Size:         s.Size,
		TextTop:      s.TextTop,
		TextBottom:   s.TextBottom,
		TextRotation: s.TextRotation,
		Pattern:      s.Pattern,
		Format:       s.Format,
		Preview:      s.Preview,
		UploadURL:    s.UploadURL,
	}
}
