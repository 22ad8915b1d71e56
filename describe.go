package xlkinetics

import (
	"errors"
	"fmt"
	"strings"
)

// DescribeLayout returns a human-readable tree of a layout's windows and
// the reports they produce.
func DescribeLayout(l Layout) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Layout: %s (%s)\n", l.Key(), l.Mode)
	fmt.Fprintf(&b, "  Wells: columns %s..%s (%d wells)\n", ColToName(l.ColStart), ColToName(l.ColEnd), l.WellCount())

	required := "optional"
	if l.Mode == ModeRatio {
		required = "required"
	}
	fmt.Fprintf(&b, "  Sheet names: <plate>%s<treatment> (delimiter %s)\n", l.Delimiter, required)
	fmt.Fprintf(&b, "  Sample label: %s\n", l.sampleLabel())
	if l.SheetFilter != "" {
		fmt.Fprintf(&b, "  Sheet filter: %s\n", l.SheetFilter)
	}

	b.WriteString("  Windows:\n")
	for _, w := range l.Windows {
		fmt.Fprintf(&b, "    %s -> %s\n", w.Label, w.File)
		fmt.Fprintf(&b, "      T1..T%d: rows %d..%d\n", w.TimePoints(), w.TimeStart+1, w.TimeEnd+1)
		fmt.Fprintf(&b, "      %s: row %d\n", w.Label, w.ValueRow+1)
		fmt.Fprintf(&b, "      %s: row %d\n", ColAU, w.AURow+1)
	}

	summary := make([]string, 0, len(l.Windows)+1)
	if l.Mode == ModeRatio {
		for _, w := range l.Windows {
			summary = append(summary, w.Label)
		}
	} else if len(l.Windows) > 0 {
		summary = append(summary, l.Windows[0].Label)
	}
	summary = append(summary, ColAU)
	fmt.Fprintf(&b, "  Summary -> %s: %s\n", l.SummaryFile, strings.Join(summary, ", "))
	return b.String()
}

// DescribeWorkbook reads a source workbook and reports, per sheet, the plate
// and treatment parsed from its name, the well count found, and whether each
// window of the layout can be extracted. Nothing is written.
func DescribeWorkbook(path string, l Layout) (string, error) {
	grids, err := ReadWorkbook(path)
	if err != nil {
		return "", err
	}
	enr := newEnricher(l)

	var b strings.Builder
	fmt.Fprintf(&b, "Workbook: %s (layout %s)\n", path, l.Key())
	for _, g := range grids {
		fmt.Fprintf(&b, "  %s: %d rows x %d columns\n", g.Sheet, len(g.Rows), g.width())

		ok, err := enr.includeSheet(g.Sheet)
		if err != nil {
			fmt.Fprintf(&b, "    filter: %v\n", err)
			continue
		}
		if !ok {
			b.WriteString("    skipped by sheet filter\n")
			continue
		}

		plate, treatment, err := ParseSheetName(g.Sheet, l.Delimiter, l.Mode == ModeRatio)
		if err != nil {
			fmt.Fprintf(&b, "    name: %v\n", err)
		} else {
			fmt.Fprintf(&b, "    plate %q treatment %q\n", plate, treatment)
		}

		for _, w := range l.Windows {
			blk, err := Extract(g, l, w)
			if err != nil {
				fmt.Fprintf(&b, "    %s: %s\n", w.Label, describeErr(err))
				continue
			}
			fmt.Fprintf(&b, "    %s: %d wells\n", w.Label, len(blk.Rows))
		}
	}
	return b.String(), nil
}

func describeErr(err error) string {
	var me *MalformedInputError
	if errors.As(err, &me) {
		return me.Reason
	}
	return err.Error()
}
