package assets

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/taigrr/lymphview/pkg/math3d"
)

// LymphNode is one entry of the lymph position file.
type LymphNode struct {
	Label    string     `json:"label"`
	Position [3]float64 `json:"position"`
}

func (n *LymphNode) UnmarshalJSON(data []byte) error {
	var raw struct {
		Label    string    `json:"label"`
		Position []float64 `json:"position"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Label == "" {
		return errors.New("lymph node without label")
	}
	if len(raw.Position) != 3 {
		return fmt.Errorf("lymph node %q: position has %d components, want 3", raw.Label, len(raw.Position))
	}
	n.Label = raw.Label
	copy(n.Position[:], raw.Position)
	return nil
}

// Vec returns the node position.
func (n LymphNode) Vec() math3d.Vec3 {
	return math3d.FromArray(n.Position)
}

// Text is a display value that may arrive as a JSON string or number.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("expected string or number, got %s", data)
		}
		*t = Text(n.String())
	}
	return nil
}

// Row is one drainage statistic for a skin element.
type Row struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Count      Text   `json:"count"`
	Percentage Text   `json:"percentage"`
	CI         Text   `json:"CI"`
}

// PercentLabel is the percentage as shown next to a marker.
func (r Row) PercentLabel() string {
	return strings.TrimSpace(string(r.Percentage)) + "%"
}

// PercentValue parses the leading number of the percentage text.
func (r Row) PercentValue() (float64, bool) {
	s := strings.TrimSuffix(strings.TrimSpace(string(r.Percentage)), "%")
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

// Statistics maps element names to their drainage rows.
type Statistics map[string][]Row

// Lookup resolves rows for an element name, retrying with underscores
// replaced by spaces. A miss returns nil.
func (s Statistics) Lookup(name string) []Row {
	if rows, ok := s[name]; ok {
		return rows
	}
	if rows, ok := s[strings.ReplaceAll(name, "_", " ")]; ok {
		return rows
	}
	return nil
}

// PatientCounts maps element keys (names without the "element_" prefix)
// to patient totals.
type PatientCounts map[string]int

// ForElement returns the count for an element name, 0 when absent.
func (p PatientCounts) ForElement(name string) int {
	return p[strings.Replace(name, "element_", "", 1)]
}

// RegionColors maps a region name to a flat RGB buffer with one
// normalized triple per mesh vertex.
type RegionColors map[string][]float32

func (rc *RegionColors) UnmarshalJSON(data []byte) error {
	var raw map[string][]int64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(RegionColors, len(raw))
	for region, packed := range raw {
		buf := make([]float32, 0, len(packed)*3)
		for i, c := range packed {
			if c < 0 || c > 0xFFFFFF {
				return fmt.Errorf("region %q: color %d at %d out of 24-bit range", region, c, i)
			}
			rgb := UnpackColor(uint32(c))
			buf = append(buf, rgb[0], rgb[1], rgb[2])
		}
		out[region] = buf
	}
	*rc = out
	return nil
}

// Validate checks every buffer against the mesh vertex count.
func (rc RegionColors) Validate(vertexCount int) error {
	for region, buf := range rc {
		if len(buf) != vertexCount*3 {
			return fmt.Errorf("region %q: color buffer has %d floats, mesh needs %d", region, len(buf), vertexCount*3)
		}
	}
	return nil
}

// PointDataset is a set of melanoma site positions with optional packed
// colors. A nil color entry means the source had no usable value.
type PointDataset struct {
	Positions [][3]float64 `json:"positions"`
	Colors    []*float64   `json:"colors"`
}

func (p *PointDataset) UnmarshalJSON(data []byte) error {
	var raw struct {
		Positions [][]float64      `json:"positions"`
		Colors    []json.RawMessage `json:"colors"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Positions = make([][3]float64, len(raw.Positions))
	for i, pos := range raw.Positions {
		if len(pos) != 3 {
			return fmt.Errorf("position %d has %d components, want 3", i, len(pos))
		}
		copy(p.Positions[i][:], pos)
	}
	if raw.Colors == nil {
		p.Colors = nil
		return nil
	}
	if len(raw.Colors) != len(raw.Positions) {
		return fmt.Errorf("%d colors for %d positions", len(raw.Colors), len(raw.Positions))
	}
	p.Colors = make([]*float64, len(raw.Colors))
	for i, c := range raw.Colors {
		if bytes.Equal(bytes.TrimSpace(c), []byte("null")) {
			continue
		}
		var v float64
		if err := json.Unmarshal(c, &v); err == nil && !math.IsNaN(v) && !math.IsInf(v, 0) {
			p.Colors[i] = &v
		}
	}
	return nil
}

// Color returns the packed color for point i, if one is usable.
func (p PointDataset) Color(i int) (uint32, bool) {
	if i < 0 || i >= len(p.Colors) || p.Colors[i] == nil {
		return 0, false
	}
	return uint32(int64(*p.Colors[i]) & 0xFFFFFF), true
}

// PointDatasets maps a region key, optionally suffixed " Frequency", to
// its sites.
type PointDatasets map[string]PointDataset

// UnpackColor splits a 24-bit 0xRRGGBB integer into normalized channels.
func UnpackColor(c uint32) [3]float32 {
	return [3]float32{
		float32((c>>16)&0xFF) / 255,
		float32((c>>8)&0xFF) / 255,
		float32(c&0xFF) / 255,
	}
}
