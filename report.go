package xlkinetics

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Build stages reported through Report.Observe.
const (
	StageCells  = "cells"
	StageFormat = "format"
	// Gradient stages are reported as "gradient:" followed by the spec's columns.
	stageGradientPrefix = "gradient:"
)

const reportSheet = "Sheet1"

// Report builds one output workbook in memory. Cell values (rounded on the
// way in), number formats and color-scale rules are all applied before a
// single write.
type Report struct {
	table   *Table
	schema  []string
	specs   []GradientSpec
	observe func(stage string)
}

// NewReport prepares a report that writes table t with the given column
// order. Every schema column must exist in t.
func NewReport(t *Table, schema []string) (*Report, error) {
	blank := Record{Values: make([]float64, len(t.Numeric))}
	for _, col := range schema {
		if _, err := t.Value(blank, col); err != nil {
			return nil, err
		}
	}
	return &Report{table: t, schema: schema}, nil
}

// Gradient queues color-scale specs; they are applied in call order.
func (r *Report) Gradient(specs ...GradientSpec) *Report {
	r.specs = append(r.specs, specs...)
	return r
}

// Observe sets a callback run after each build stage.
func (r *Report) Observe(fn func(stage string)) *Report {
	r.observe = fn
	return r
}

func (r *Report) done(stage string) {
	if r.observe != nil {
		r.observe(stage)
	}
}

// Table returns the table the report writes.
func (r *Report) Table() *Table {
	return r.table
}

// Rules resolves the queued gradient specs against the report's own table.
func (r *Report) Rules() []GradientRule {
	var rules []GradientRule
	for _, spec := range r.specs {
		rules = append(rules, Rules(r.table, r.schema, r.table.Len(), spec)...)
	}
	return rules
}

// Build materializes the report as an excelize file. The caller owns the
// returned file and must close it.
func (r *Report) Build() (*excelize.File, error) {
	f := excelize.NewFile()
	if err := r.build(f); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

func (r *Report) build(f *excelize.File) error {
	header := make([]any, len(r.schema))
	for i, col := range r.schema {
		header[i] = col
	}
	if err := f.SetSheetRow(reportSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, rec := range r.table.Records {
		row := make([]any, len(r.schema))
		for j, col := range r.schema {
			v, err := r.table.Value(rec, col)
			if err != nil {
				return err
			}
			if x, ok := v.(float64); ok {
				v = Round(x)
			}
			row[j] = v
		}
		if err := f.SetSheetRow(reportSheet, NewCellRef(i+1, 0).String(), &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	r.done(StageCells)

	// Every numeric column, ID included, shows two decimals.
	if r.table.Len() > 0 {
		style, err := f.NewStyle(numberStyle())
		if err != nil {
			return fmt.Errorf("create number style: %w", err)
		}
		for col, name := range r.schema {
			if name != ColID && !r.table.IsNumeric(name) {
				continue
			}
			top, bottom := NewCellRef(1, col).String(), NewCellRef(r.table.Len(), col).String()
			if err := f.SetCellStyle(reportSheet, top, bottom, style); err != nil {
				return fmt.Errorf("format column %s: %w", name, err)
			}
		}
	}
	r.done(StageFormat)

	for _, spec := range r.specs {
		rules := Rules(r.table, r.schema, r.table.Len(), spec)
		if err := applyRules(f, reportSheet, rules); err != nil {
			return fmt.Errorf("apply %s gradient: %w", spec.Scale.Name, err)
		}
		r.done(stageGradientPrefix + fmt.Sprint(spec.Columns))
	}

	return nil
}

// SaveAs builds the report and writes it to path in one step.
func (r *Report) SaveAs(path string) error {
	f, err := r.Build()
	if err != nil {
		return err
	}
	defer f.Close()
	if err := f.SaveAs(path); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}
