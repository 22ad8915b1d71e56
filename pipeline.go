package xlkinetics

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"

	"github.com/google/uuid"
)

// Processor turns a plate-reader workbook into long-format reports.
type Processor struct {
	opts *Options
}

// NewProcessor creates a Processor with the given options.
func NewProcessor(opts ...Option) *Processor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Processor{opts: o}
}

// Run processes the workbook at path with the configured layout (intensity/v1
// when none is set) and returns the absolute paths of the reports written.
func Run(path string, opts ...Option) ([]string, error) {
	return NewProcessor(opts...).Run(path)
}

// RunIntensity processes a single-channel workbook. The intensity/v1 layout
// is used unless another intensity layout is given with WithLayout.
func RunIntensity(path string, opts ...Option) ([]string, error) {
	allOpts := append([]Option{WithLayout(IntensityLayout)}, opts...)
	return NewProcessor(allOpts...).run(path, ModeIntensity)
}

// RunRatio processes a dual-channel workbook. The ratio/v1 layout is used
// unless another ratio layout is given with WithLayout.
func RunRatio(path string, opts ...Option) ([]string, error) {
	allOpts := append([]Option{WithLayout(RatioLayout)}, opts...)
	return NewProcessor(allOpts...).run(path, ModeRatio)
}

// Run processes the workbook at path.
func (p *Processor) Run(path string) ([]string, error) {
	return p.run(path, "")
}

// layout resolves the configured layout.
func (p *Processor) layout() (Layout, error) {
	switch {
	case p.opts.layout != nil:
		return p.opts.layout.clone(), nil
	case p.opts.layoutName != "":
		return LookupLayout(p.opts.layoutName)
	default:
		return DefaultLayout(ModeIntensity)
	}
}

// output is one report waiting to be written under its file name.
type output struct {
	file   string
	report *Report
}

func (p *Processor) run(path string, want Mode) ([]string, error) {
	l, err := p.layout()
	if err != nil {
		return nil, err
	}
	if want != "" && l.Mode != want {
		return nil, fmt.Errorf("layout %q is a %s layout, %s required", l.Key(), l.Mode, want)
	}
	if err := CheckLayout(l); err != nil {
		return nil, err
	}

	src, err := filepath.Abs(path)
	if err != nil {
		return nil, &IOError{Op: "resolve", Path: path, Err: err}
	}
	runID := uuid.NewString()
	logger := p.opts.logger.With(
		slog.String("run_id", runID),
		slog.String("layout", l.Key()),
		slog.String("source", src),
	)

	grids, err := ReadWorkbook(src)
	if err != nil {
		return nil, err
	}
	enr := newEnricher(l)
	grids, err = filterSheets(grids, enr, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("read workbook", slog.Int("sheets", len(grids)))

	prog := &progress{
		runID:     runID,
		total:     EstimateSteps(l.Mode, len(grids)),
		listeners: p.opts.listeners,
		logger:    logger,
	}

	var outputs []output
	switch l.Mode {
	case ModeIntensity:
		outputs, err = intensityReports(grids, l, enr, prog)
	case ModeRatio:
		outputs, err = ratioReports(grids, l, enr, prog)
	default:
		err = fmt.Errorf("unsupported mode %q", l.Mode)
	}
	if err != nil {
		return nil, err
	}

	target := p.opts.outputDir
	if target == "" {
		target = filepath.Dir(src)
	}
	return persist(outputs, target, runID, prog, logger)
}

// filterSheets drops sheets rejected by the layout's sheet filter.
func filterSheets(grids []RawGrid, enr *enricher, logger *slog.Logger) ([]RawGrid, error) {
	kept := grids[:0:0]
	for _, g := range grids {
		ok, err := enr.includeSheet(g.Sheet)
		if err != nil {
			return nil, fmt.Errorf("sheet filter on %q: %w", g.Sheet, err)
		}
		if !ok {
			logger.Debug("sheet skipped by filter", slog.String("sheet", g.Sheet))
			continue
		}
		kept = append(kept, g)
	}
	return kept, nil
}

// persist writes every report into a staging directory and then moves them
// all beside each other in target. A failure leaves no report behind.
func persist(outputs []output, target, runID string, prog *progress, logger *slog.Logger) ([]string, error) {
	st, err := newStaging(target, runID)
	if err != nil {
		return nil, err
	}
	for _, out := range outputs {
		file := out.file
		out.report.Observe(func(stage string) { prog.tick(stage, file) })
		if err := out.report.SaveAs(st.path(file)); err != nil {
			st.discard()
			return nil, err
		}
		logger.Debug("report built", slog.String("file", file), slog.Int("rows", out.report.Table().Len()))
	}
	paths, err := st.commit()
	if err != nil {
		return nil, err
	}
	logger.Info("reports written", slog.Any("files", paths))
	return paths, nil
}

// numericColumns returns the numeric columns a window yields: T1..Tn, its
// label and AU.
func numericColumns(w Window) []string {
	return append(w.TimeColumns(), w.Label, ColAU)
}

// intensityReports builds the Kinetics table and the DR table derived from it.
func intensityReports(grids []RawGrid, l Layout, enr *enricher, prog *progress) ([]output, error) {
	w := l.Windows[0]
	asm := NewAssembler(w.File, numericColumns(w))
	for _, g := range grids {
		b, err := Extract(g, l, w)
		if err != nil {
			return nil, err
		}
		records, err := enr.enrich(b)
		if err != nil {
			return nil, err
		}
		if err := asm.Append(b, records); err != nil {
			return nil, err
		}
		prog.ticks(len(b.Columns), "extract", g.Sheet)
	}
	kinetics := asm.Table()

	kineticsSchema := append([]string{ColPlate, ColSample, ColSource, ColTreatment}, numericColumns(w)...)
	kineticsReport, err := NewReport(kinetics, kineticsSchema)
	if err != nil {
		return nil, err
	}
	kineticsReport.Gradient(
		GradientSpec{Columns: append(w.TimeColumns(), w.Label), Scale: ScaleShared, Domain: DomainShared},
		GradientSpec{Columns: []string{ColAU}, Scale: ScaleShared, Domain: DomainIndividual},
	)

	dr, err := kinetics.Project(l.SummaryFile, []string{w.Label, ColAU})
	if err != nil {
		return nil, err
	}
	drReport, err := NewReport(dr, []string{ColID, ColSample, ColPlate, ColSource, ColTreatment, w.Label, ColAU})
	if err != nil {
		return nil, err
	}
	drReport.Gradient(GradientSpec{Columns: []string{w.Label, ColAU}, Scale: ScaleShared, Domain: DomainIndividual})

	return []output{
		{file: w.File, report: kineticsReport},
		{file: l.SummaryFile, report: drReport},
	}, nil
}

// ratioReports builds one table per module window plus the summary table.
// Sheet names are all checked before anything is extracted.
func ratioReports(grids []RawGrid, l Layout, enr *enricher, prog *progress) ([]output, error) {
	for _, g := range grids {
		if _, _, err := ParseSheetName(g.Sheet, l.Delimiter, true); err != nil {
			return nil, err
		}
	}

	modules := make([]*Assembler, len(l.Windows))
	for i, w := range l.Windows {
		modules[i] = NewAssembler(w.File, numericColumns(w))
	}
	labels := make([]string, len(l.Windows))
	for i, w := range l.Windows {
		labels[i] = w.Label
	}
	summary := NewAssembler(l.SummaryFile, append(slices.Clone(labels), ColAU))

	for _, g := range grids {
		for i, w := range l.Windows {
			b, err := Extract(g, l, w)
			if err != nil {
				return nil, err
			}
			records, err := enr.enrich(b)
			if err != nil {
				return nil, err
			}
			if err := modules[i].Append(b, records); err != nil {
				return nil, err
			}
			prog.ticks(len(b.Columns), "extract", g.Sheet)
		}

		b, err := ExtractSummary(g, l)
		if err != nil {
			return nil, err
		}
		records, err := enr.enrich(b)
		if err != nil {
			return nil, err
		}
		if err := summary.Append(b, records); err != nil {
			return nil, err
		}
		prog.ticks(len(b.Columns)+1, "summary", g.Sheet)
	}

	var outputs []output
	for i, w := range l.Windows {
		schema := []string{ColID, ColPlate, ColSample, ColSource}
		schema = append(schema, numericColumns(w)...)
		schema = append(schema, ColTreatment)
		report, err := NewReport(modules[i].Table(), schema)
		if err != nil {
			return nil, err
		}
		report.Gradient(
			GradientSpec{Columns: []string{ColAU}, Scale: ScaleAU, Domain: DomainIndividual},
			GradientSpec{Columns: w.TimeColumns(), Scale: ScaleDiverging, Domain: DomainIndividual},
		)
		outputs = append(outputs, output{file: w.File, report: report})
	}

	schema := []string{ColID, ColPlate, ColSample, ColSource}
	schema = append(schema, labels...)
	schema = append(schema, ColAU, ColTreatment)
	report, err := NewReport(summary.Table(), schema)
	if err != nil {
		return nil, err
	}
	report.Gradient(
		GradientSpec{Columns: labels, Scale: ScaleDiverging, Domain: DomainIndividual},
		GradientSpec{Columns: []string{ColAU}, Scale: ScaleAU, Domain: DomainIndividual},
	)
	return append(outputs, output{file: l.SummaryFile, report: report}), nil
}
