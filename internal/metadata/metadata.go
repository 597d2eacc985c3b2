// Package metadata reads and writes the JSON sidecar stored next to every
// artifact. A sidecar records every input of a run, so loading it is enough
// to produce the same card again.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/vk/qr3d/internal/model"
)

// CurrentVersion is the sidecar schema version this build writes.
const CurrentVersion = "1.1.0"

// RunMetadata is the reproducibility record of one run.
type RunMetadata struct {
	Version    string           `json:"version"`
	QRInput    string           `json:"qr_input"`
	Mode       model.ModelMode  `json:"mode"`
	Dimensions model.Dimensions `json:"dimensions"`
	Parameters Parameters       `json:"parameters"`
	Text       Text             `json:"text"`
	Grid       *GridInfo        `json:"grid,omitempty"`
}

// Parameters are the user inputs. Card height is recorded in Dimensions.
type Parameters struct {
	QRMargin     float64            `json:"qr_margin_mm"`
	QRRelief     float64            `json:"qr_relief_mm"`
	CornerRadius float64            `json:"corner_radius_mm"`
	SizeScale    float64            `json:"size_scale"`
	TextHeight   float64            `json:"text_height_mm"`
	TextRotation model.Rotation     `json:"text_rotation_deg"`
	Pattern      model.PatternStyle `json:"pattern"`
}

// Text holds label content. Empty slots are omitted.
type Text struct {
	ContentTop    string `json:"content_top,omitempty"`
	ContentBottom string `json:"content_bottom,omitempty"`
}

// GridInfo describes the quantized code, for diagnostics only.
type GridInfo struct {
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	ModuleSizePx float64 `json:"module_size_px"`
	Rectangles   int     `json:"rectangles"`
	Modules      int     `json:"modules"`
}

// New assembles the record of a run.
func New(input string, mode model.ModelMode, p model.LayoutParameters, d model.Dimensions, text model.Text) RunMetadata {
	return RunMetadata{
		Version:    CurrentVersion,
		QRInput:    input,
		Mode:       mode,
		Dimensions: d,
		Parameters: Parameters{
			QRMargin:     p.QRMargin,
			QRRelief:     p.QRRelief,
			CornerRadius: p.CornerRadius,
			SizeScale:    p.SizeScale,
			TextHeight:   p.TextHeight,
			TextRotation: p.TextRotation,
			Pattern:      p.Pattern,
		},
		Text: Text{ContentTop: text.Top, ContentBottom: text.Bottom},
	}
}

// LayoutParameters reconstructs the parameters the run used. The recorded
// card height is the scaled one.
func (m RunMetadata) LayoutParameters() model.LayoutParameters {
	cardHeight := m.Dimensions.CardHeight
	if m.Parameters.SizeScale > 0 {
		cardHeight /= m.Parameters.SizeScale
	}
	return model.LayoutParameters{
		CardHeight:   cardHeight,
		QRMargin:     m.Parameters.QRMargin,
		QRRelief:     m.Parameters.QRRelief,
		CornerRadius: m.Parameters.CornerRadius,
		SizeScale:    m.Parameters.SizeScale,
		TextHeight:   m.Parameters.TextHeight,
		TextRotation: m.Parameters.TextRotation,
		Pattern:      m.Parameters.Pattern,
	}
}

// LabelText returns the label content as a model.Text.
func (m RunMetadata) LabelText() model.Text {
	return model.Text{Top: m.Text.ContentTop, Bottom: m.Text.ContentBottom}
}

// Marshal encodes m as indented JSON with a trailing newline.
func (m RunMetadata) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(m); err != nil {
		return nil, fmt.Errorf("failed to encode metadata: %w", err)
	}
	return buf.Bytes(), nil
}

// wire is the permissive decoding shape. Pointers tell missing fields from
// zero values so older sidecars can be filled in.
type wire struct {
	Version    string           `json:"version"`
	QRInput    string           `json:"qr_input"`
	Mode       string           `json:"mode"`
	Dimensions model.Dimensions `json:"dimensions"`
	Parameters struct {
		QRMargin     *float64 `json:"qr_margin_mm"`
		QRRelief     *float64 `json:"qr_relief_mm"`
		CornerRadius *float64 `json:"corner_radius_mm"`
		SizeScale    *float64 `json:"size_scale"`
		TextHeight   *float64 `json:"text_height_mm"`
		TextRotation *int     `json:"text_rotation_deg"`
		Pattern      string   `json:"pattern"`
	} `json:"parameters"`
	Text struct {
		Content       string `json:"content"`
		ContentTop    string `json:"content_top"`
		ContentBottom string `json:"content_bottom"`
	} `json:"text"`
	Grid *GridInfo `json:"grid"`
}

// Load decodes a sidecar. Schema drift and filled-in legacy fields are
// reported as warnings; only malformed JSON or an unknown mode fail.
func Load(r io.Reader) (*RunMetadata, []string, error) {
	var w wire
	if err := json.NewDecoder(r).Decode(&w); err != nil {
		return nil, nil, fmt.Errorf("failed to decode metadata: %w", err)
	}

	mode, err := model.ParseMode(w.Mode)
	if err != nil {
		return nil, nil, err
	}

	var warnings []string
	if msg := checkVersion(w.Version); msg != "" {
		warnings = append(warnings, msg)
	}

	def := model.DefaultParameters()
	p := w.Parameters
	m := &RunMetadata{
		Version:    w.Version,
		QRInput:    w.QRInput,
		Mode:       mode,
		Dimensions: w.Dimensions,
		Parameters: Parameters{
			QRMargin:     valueOr(p.QRMargin, def.QRMargin),
			QRRelief:     valueOr(p.QRRelief, def.QRRelief),
			CornerRadius: valueOr(p.CornerRadius, def.CornerRadius),
			Pattern:      model.PatternStyle(p.Pattern),
		},
		Text: Text{ContentTop: w.Text.ContentTop, ContentBottom: w.Text.ContentBottom},
		Grid: w.Grid,
	}

	if p.SizeScale != nil {
		m.Parameters.SizeScale = *p.SizeScale
	} else {
		m.Parameters.SizeScale = InferScale(w.Dimensions.CardWidth)
		warnings = append(warnings, fmt.Sprintf("size_scale missing, inferred %g from card width %g mm", m.Parameters.SizeScale, w.Dimensions.CardWidth))
	}
	m.Parameters.TextHeight = valueOr(p.TextHeight, m.Parameters.QRRelief)
	if p.TextRotation != nil {
		m.Parameters.TextRotation = model.Rotation(*p.TextRotation)
	} else {
		m.Parameters.TextRotation = mode.DefaultRotation()
	}
	if m.Parameters.Pattern == "" {
		m.Parameters.Pattern = model.PatternRaised
	}
	if m.Dimensions.CardHeight == 0 {
		m.Dimensions.CardHeight = def.CardHeight * m.Parameters.SizeScale
		warnings = append(warnings, fmt.Sprintf("card_height_mm missing, using default %g mm", m.Dimensions.CardHeight))
	}
	if w.Text.Content != "" && m.Text.ContentBottom == "" {
		m.Text.ContentBottom = w.Text.Content
		warnings = append(warnings, "legacy text.content read as content_bottom")
	}
	return m, warnings, nil
}

// LoadFile is Load for a path.
func LoadFile(path string) (*RunMetadata, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open metadata %s: %w", path, err)
	}
	defer f.Close()
	return Load(f)
}

// InferScale guesses the size scale of sidecars written before size_scale
// was recorded, from the card width.
func InferScale(cardWidth float64) float64 {
	switch {
	case cardWidth <= 0:
		return 1.0
	case cardWidth <= 28:
		return 0.5
	case cardWidth >= 100:
		return 2.0
	default:
		return 1.0
	}
}

// checkVersion returns a warning when v is missing, malformed or outside the
// range this build reads natively.
func checkVersion(v string) string {
	if strings.TrimSpace(v) == "" {
		return "metadata has no version"
	}
	got, err := semver.NewVersion(v)
	if err != nil {
		return fmt.Sprintf("metadata version %q is not a semantic version", v)
	}
	c, err := semver.NewConstraint("^" + CurrentVersion)
	if err != nil {
		return fmt.Sprintf("invalid version constraint: %v", err)
	}
	if !c.Check(got) {
		return fmt.Sprintf("metadata version %s differs from supported %s; fields may be missing or ignored", v, CurrentVersion)
	}
	return ""
}

func valueOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}
