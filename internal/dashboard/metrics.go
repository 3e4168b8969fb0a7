package dashboard

import (
	"fmt"
	"unicode/utf16"

	"painel/internal/core"
)

// TileCount is the number of KPI tiles on the dashboard.
const TileCount = 4

var baseColors = map[string]string{
	MetricEntradas:   "#10b981",
	MetricSaidas:     "#ef4444",
	MetricResultado:  "#0ea5e9",
	MetricSaldoTotal: "#8b5cf6",
}

type (
	// MetricOption is one entry of the metric picker. Base metrics have no
	// subcategories.
	MetricOption struct {
		Name          string            `json:"name"`
		Subcategories []SubmetricOption `json:"subcategories,omitempty"`
	}

	SubmetricOption struct {
		Name     string `json:"name"`
		FullName string `json:"fullName"`
	}

	// MetricSelection holds the metric shown by each KPI tile.
	MetricSelection []string

	// Tile is a resolved KPI tile.
	Tile struct {
		Metric string     `json:"metric"`
		Value  core.Money `json:"value"`
		Color  string     `json:"color"`
	}
)

// BaseMetrics lists the fixed aggregates in display order.
func BaseMetrics() []string {
	return []string{MetricEntradas, MetricSaidas, MetricResultado, MetricSaldoTotal}
}

// MetricOptions returns the base metrics followed by every category, in
// store order, with its subcategories nested.
func MetricOptions(s *core.Snapshot) []MetricOption {
	opts := make([]MetricOption, 0, len(BaseMetrics())+len(s.Categories))
	for _, name := range BaseMetrics() {
		opts = append(opts, MetricOption{Name: name})
	}
	for _, c := range s.Categories {
		opt := MetricOption{Name: c.Name}
		for _, sc := range s.SubcategoriesOf(c.ID) {
			opt.Subcategories = append(opt.Subcategories, SubmetricOption{
				Name:     sc.Name,
				FullName: core.SubcategoryMetricName(c.Name, sc.Name),
			})
		}
		opts = append(opts, opt)
	}
	return opts
}

// MetricNames flattens the options into every selectable metric name.
func MetricNames(opts []MetricOption) []string {
	var names []string
	for _, o := range opts {
		names = append(names, o.Name)
		for _, sub := range o.Subcategories {
			names = append(names, sub.FullName)
		}
	}
	return names
}

// MetricColors assigns a color to every base metric, category,
// subcategory and active metric name.
func MetricColors(s *core.Snapshot, active []string) map[string]string {
	colors := make(map[string]string, len(baseColors)+len(s.Categories)+len(s.Subcategories))
	for name, color := range baseColors {
		colors[name] = color
	}
	add := func(name string) {
		if _, ok := colors[name]; !ok {
			colors[name] = ColorFor(name)
		}
	}
	for _, c := range s.Categories {
		add(c.Name)
		for _, sc := range s.SubcategoriesOf(c.ID) {
			add(core.SubcategoryMetricName(c.Name, sc.Name))
		}
	}
	for _, name := range active {
		add(name)
	}
	return colors
}

// ColorFor returns the fixed color of a base metric or hashes any other
// name into a #rrggbb color. Equal names always get equal colors.
func ColorFor(name string) string {
	if c, ok := baseColors[name]; ok {
		return c
	}
	return HashColor(name)
}

// HashColor folds the UTF-16 code units of s into a 32 bit hash
// (h = c + h<<5 - h) and renders its three low bytes, least significant
// first, as #rrggbb. The empty string maps to #CCCCCC.
func HashColor(s string) string {
	if s == "" {
		return "#CCCCCC"
	}
	// h may leave the int32 range between steps; only the shift wraps.
	var h int64
	for _, c := range utf16.Encode([]rune(s)) {
		h = int64(c) + int64(int32(h)<<5) - h
	}
	v := int32(h)
	return fmt.Sprintf("#%02x%02x%02x", byte(v), byte(v>>8), byte(v>>16))
}

// DefaultSelection is the initial tile layout.
func DefaultSelection() MetricSelection {
	return MetricSelection{MetricResultado, MetricEntradas, MetricSaidas, MetricSaldoTotal}
}

// Set retargets one tile and returns the new selection. The receiver is
// left untouched.
func (m MetricSelection) Set(index int, metric string) (MetricSelection, error) {
	if index < 0 || index >= len(m) {
		return m, fmt.Errorf("tile index %d out of range [0,%d)", index, len(m))
	}
	next := make(MetricSelection, len(m))
	copy(next, m)
	next[index] = metric
	return next, nil
}

// Tiles resolves the selection against the KPIs.
func Tiles(kpis KPIs, sel MetricSelection, colors map[string]string) []Tile {
	tiles := make([]Tile, len(sel))
	for i, name := range sel {
		color, ok := colors[name]
		if !ok {
			color = ColorFor(name)
		}
		tiles[i] = Tile{Metric: name, Value: kpis.Get(name), Color: color}
	}
	return tiles
}
