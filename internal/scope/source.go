package scope

// DefaultSourceColor is used when a source color cannot be parsed, opaque red.
const DefaultSourceColor uint32 = 0xffff0000

// SourceConfig identifies one telemetry field feeding a plot and how its raw
// samples are transformed.
type SourceConfig struct {
	ObjectName   string  // Telemetry object name
	FieldName    string  // Field name, "field-element" selects one vector element
	Color        uint32  // Packed 0xAARRGGBB
	ScalePower   int     // Samples are multiplied by 10^ScalePower
	MeanSamples  int     // Moving average window
	MathFunction string  // Transform applied to raw samples
	Minimum      float64 // Lower display bound
	Maximum      float64 // Upper display bound
}

// Clone returns an independent copy
func (s *SourceConfig) Clone() *SourceConfig {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
