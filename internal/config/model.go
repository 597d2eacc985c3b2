package config

// Model is the set of jobs loaded from one or more files.
type Model struct {
	Jobs []*Job
}

// Job is one named card to build.
type Job struct {
	Name string
	// File is the source the job was declared in, for error messages.
	File     string
	Settings Settings
}

// Settings are the optional knobs of a job. Nil means "not set".
type Settings struct {
	Input        *string
	PlaceID      *string
	FromMetadata *string
	OutputName   *string
	OutputDir    *string
	Mode         *string
	Thickness    *string
	CardHeight   *float64
	Margin       *float64
	Relief       *float64
	CornerRadius *float64
	Size         *float64
	TextTop      *string
	TextBottom   *string
	TextRotation *int
	Pattern      *string
	Format       *string
	Preview      *bool
	UploadURL    *string
}

// Merge returns s with every field set in over replacing its own.
func (s Settings) Merge(over Settings) Settings {
	pick(&s.Input, over.Input)
	pick(&s.PlaceID, over.PlaceID)
	pick(&s.FromMetadata, over.FromMetadata)
	pick(&s.OutputName, over.OutputName)
	pick(&s.OutputDir, over.OutputDir)
	pick(&s.Mode, over.Mode)
	pick(&s.Thickness, over.Thickness)
	pick(&s.CardHeight, over.CardHeight)
	pick(&s.Margin, over.Margin)
	pick(&s.Relief, over.Relief)
	pick(&s.CornerRadius, over.CornerRadius)
	pick(&s.Size, over.Size)
	pick(&s.TextTop, over.TextTop)
	pick(&s.TextBottom, over.TextBottom)
	pick(&s.TextRotation, over.TextRotation)
	pick(&s.Pattern, over.Pattern)
	pick(&s.Format, over.Format)
	pick(&s.Preview, over.Preview)
	pick(&s.UploadURL, over.UploadURL)
	return s
}

func pick[T any](dst **T, v *T) {
	if v != nil {
		*dst = v
	}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
