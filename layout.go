package xlkinetics

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v2"
)

// Mode is the acquisition mode a layout was exported with.
type Mode string

const (
	// ModeIntensity is the single-channel layout: one window per sheet.
	ModeIntensity Mode = "intensity"
	// ModeRatio is the dual-channel layout: several module windows per sheet
	// sharing one AU row, plus a summary of each module's value row.
	ModeRatio Mode = "ratio"
)

// DefaultSampleLabel renders the Sample column from plate and well.
const DefaultSampleLabel = "${plate}-${well}"

// Window selects the rows of a sheet harvested for one output module.
// Row offsets are 0-based and refer to the raw sheet, with no header row.
type Window struct {
	Label     string `yaml:"label" validate:"required"`
	TimeStart int    `yaml:"time_start" validate:"gte=0"`
	TimeEnd   int    `yaml:"time_end" validate:"gtefield=TimeStart"`
	ValueRow  int    `yaml:"value_row" validate:"gte=0"`
	AURow     int    `yaml:"au_row" validate:"gte=0"`
	File      string `yaml:"file" validate:"required"`
}

// TimePoints returns the number of time rows in the window.
func (w Window) TimePoints() int {
	return w.TimeEnd - w.TimeStart + 1
}

// TimeColumns returns the column names T1..Tn for the window.
func (w Window) TimeColumns() []string {
	cols := make([]string, w.TimePoints())
	for i := range cols {
		cols[i] = fmt.Sprintf("T%d", i+1)
	}
	return cols
}

// maxRow returns the highest row offset the window reads.
func (w Window) maxRow() int {
	return max(w.TimeEnd, w.ValueRow, w.AURow)
}

// Layout describes one instrument export format: which columns carry wells,
// which rows each module occupies, and how outputs are named.
type Layout struct {
	Name        string   `yaml:"name" validate:"required"`
	Version     int      `yaml:"version" validate:"gte=1"`
	Mode        Mode     `yaml:"mode" validate:"oneof=intensity ratio"`
	ColStart    int      `yaml:"-" validate:"gte=0"` // col_start, see UnmarshalYAML
	ColEnd      int      `yaml:"-" validate:"gtefield=ColStart"`
	Delimiter   string   `yaml:"delimiter" validate:"required"`
	SampleLabel string   `yaml:"sample_label"`
	SheetFilter string   `yaml:"sheet_filter"`
	SummaryFile string   `yaml:"summary_file" validate:"required"`
	Windows     []Window `yaml:"windows" validate:"required,min=1,dive"`
}

// UnmarshalYAML decodes a layout whose col_start and col_end are given
// either as 0-based indexes or as column names ("C", "CT").
func (l *Layout) UnmarshalYAML(unmarshal func(any) error) error {
	type plain Layout
	var raw struct {
		plain    `yaml:",inline"`
		ColStart columnIndex `yaml:"col_start"`
		ColEnd   columnIndex `yaml:"col_end"`
	}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	*l = Layout(raw.plain)
	l.ColStart = int(raw.ColStart)
	l.ColEnd = int(raw.ColEnd)
	return nil
}

// columnIndex is a 0-based column written in YAML as a number or a name.
type columnIndex int

func (c *columnIndex) UnmarshalYAML(unmarshal func(any) error) error {
	var n int
	if err := unmarshal(&n); err == nil {
		*c = columnIndex(n)
		return nil
	}
	var name string
	if err := unmarshal(&name); err != nil {
		return err
	}
	col, err := NameToCol(strings.TrimSpace(name))
	if err != nil {
		return err
	}
	*c = columnIndex(col)
	return nil
}

// Key returns the registry key, e.g. "ratio/v1".
func (l Layout) Key() string {
	return fmt.Sprintf("%s/v%d", l.Name, l.Version)
}

// WellCount returns the number of well columns the layout spans.
func (l Layout) WellCount() int {
	return l.ColEnd - l.ColStart + 1
}

// sampleLabel returns the configured label template or the default.
func (l Layout) sampleLabel() string {
	if l.SampleLabel == "" {
		return DefaultSampleLabel
	}
	return l.SampleLabel
}

// clone returns a deep copy so callers cannot mutate registered layouts.
func (l Layout) clone() Layout {
	l.Windows = append([]Window(nil), l.Windows...)
	return l
}

// IntensityLayout is the single-channel export: T1..T10 on rows 13..22,
// DR on row 22 and AU on row 13, wells in columns 2..97.
var IntensityLayout = Layout{
	Name:        "intensity",
	Version:     1,
	Mode:        ModeIntensity,
	ColStart:    2,
	ColEnd:      97,
	Delimiter:   "-",
	SummaryFile: "DR.xlsx",
	Windows: []Window{
		{Label: "DR", TimeStart: 13, TimeEnd: 22, ValueRow: 22, AURow: 13, File: "Kinetics.xlsx"},
	},
}

// RatioLayout is the dual-channel export with four modules sharing AU on row 50.
var RatioLayout = Layout{
	Name:        "ratio",
	Version:     1,
	Mode:        ModeRatio,
	ColStart:    2,
	ColEnd:      97,
	Delimiter:   "-",
	SummaryFile: "DR.xlsx",
	Windows: []Window{
		{Label: "DR485", TimeStart: 41, TimeEnd: 46, ValueRow: 48, AURow: 50, File: "DR485-Kinetics.xlsx"},
		{Label: "DR420", TimeStart: 61, TimeEnd: 66, ValueRow: 68, AURow: 50, File: "DR420-Kinetics.xlsx"},
		{Label: "DF485", TimeStart: 126, TimeEnd: 131, ValueRow: 132, AURow: 50, File: "DF485-Kinetics.xlsx"},
		{Label: "DF420", TimeStart: 145, TimeEnd: 150, ValueRow: 151, AURow: 50, File: "DF420-Kinetics.xlsx"},
	},
}

var (
	registryMu sync.RWMutex
	registry   = map[string]Layout{
		IntensityLayout.Key(): IntensityLayout,
		RatioLayout.Key():     RatioLayout,
	}
)

// LookupLayout returns a copy of the registered layout with the given key.
func LookupLayout(key string) (Layout, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	l, ok := registry[key]
	if !ok {
		return Layout{}, fmt.Errorf("%w: %q", ErrUnknownLayout, key)
	}
	return l.clone(), nil
}

// DefaultLayout returns the built-in layout for a mode.
func DefaultLayout(mode Mode) (Layout, error) {
	switch mode {
	case ModeIntensity:
		return IntensityLayout.clone(), nil
	case ModeRatio:
		return RatioLayout.clone(), nil
	default:
		return Layout{}, fmt.Errorf("%w: no default for mode %q", ErrUnknownLayout, mode)
	}
}

// RegisterLayout validates l and adds it to the registry.
func RegisterLayout(l Layout) error {
	if err := CheckLayout(l); err != nil {
		return err
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[l.Key()]; ok {
		return fmt.Errorf("layout %q already registered", l.Key())
	}
	registry[l.Key()] = l.clone()
	return nil
}

// Layouts returns the registered layout keys in sorted order.
func Layouts() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	keys := make([]string, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// layoutFile is the YAML document accepted by LoadLayouts.
type layoutFile struct {
	Layouts []Layout `yaml:"layouts"`
}

// LoadLayouts reads layouts from a YAML file and validates each one.
// The layouts are returned, not registered.
func LoadLayouts(path string) ([]Layout, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	var doc layoutFile
	if err := yaml.UnmarshalStrict(data, &doc); err != nil {
		return nil, fmt.Errorf("parse layouts %q: %w", path, err)
	}
	if len(doc.Layouts) == 0 {
		return nil, fmt.Errorf("no layouts defined in %q", path)
	}
	for _, l := range doc.Layouts {
		if err := CheckLayout(l); err != nil {
			return nil, fmt.Errorf("layout %q in %q: %w", l.Key(), path, err)
		}
	}
	return doc.Layouts, nil
}
