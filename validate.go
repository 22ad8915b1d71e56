package xlkinetics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/go-playground/validator/v10"
)

// maxWells is the number of wells on a plate, rows A..H by columns 01..12.
const maxWells = 96

// Severity indicates the severity of a validation issue.
type Severity int

const (
	SeverityError   Severity = iota // Layout cannot be used
	SeverityWarning                 // Layout works but may produce unexpected reports
)

// ValidationIssue is a single problem found in a layout.
type ValidationIssue struct {
	Severity Severity
	Field    string
	Message  string
}

// String formats the issue as "[ERROR] Windows[0].Label: message" or "[WARN] ...".
func (v ValidationIssue) String() string {
	sev := "ERROR"
	if v.Severity == SeverityWarning {
		sev = "WARN"
	}
	if v.Field == "" {
		return fmt.Sprintf("[%s] %s", sev, v.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", sev, v.Field, v.Message)
}

var structValidator = validator.New(validator.WithRequiredStructEnabled())

// ValidateLayout checks a layout for field and structural errors and returns
// every issue found.
func ValidateLayout(l Layout) []ValidationIssue {
	var issues []ValidationIssue
	issues = append(issues, validateFields(l)...)
	issues = append(issues, validateStructure(l)...)
	issues = append(issues, validateExpressions(l)...)
	return issues
}

// CheckLayout returns an error joining every error-severity issue of l.
func CheckLayout(l Layout) error {
	var errs []error
	for _, issue := range ValidateLayout(l) {
		if issue.Severity == SeverityError {
			errs = append(errs, errors.New(issue.String()))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid layout %q: %w", l.Key(), errors.Join(errs...))
}

// validateFields applies the struct tags on Layout and Window.
func validateFields(l Layout) []ValidationIssue {
	err := structValidator.Struct(l)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []ValidationIssue{{Severity: SeverityError, Message: err.Error()}}
	}
	issues := make([]ValidationIssue, 0, len(verrs))
	for _, fe := range verrs {
		msg := fmt.Sprintf("failed %q", fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("failed %q (%s)", fe.Tag(), fe.Param())
		}
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Field:    strings.TrimPrefix(fe.Namespace(), "Layout."),
			Message:  msg,
		})
	}
	return issues
}

// validateStructure checks constraints the struct tags cannot express.
func validateStructure(l Layout) []ValidationIssue {
	var issues []ValidationIssue
	if l.WellCount() > maxWells {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Field:    "ColEnd",
			Message:  fmt.Sprintf("columns %d..%d span %d wells, a plate has %d", l.ColStart, l.ColEnd, l.WellCount(), maxWells),
		})
	}
	if l.Mode == ModeIntensity && len(l.Windows) != 1 {
		issues = append(issues, ValidationIssue{
			Severity: SeverityError,
			Field:    "Windows",
			Message:  fmt.Sprintf("intensity layouts take exactly one window, got %d", len(l.Windows)),
		})
	}

	labels := make(map[string]bool)
	files := map[string]bool{l.SummaryFile: true}
	for i, w := range l.Windows {
		field := fmt.Sprintf("Windows[%d]", i)
		if labels[w.Label] {
			issues = append(issues, ValidationIssue{Severity: SeverityError, Field: field + ".Label",
				Message: fmt.Sprintf("duplicate label %q", w.Label)})
		}
		labels[w.Label] = true
		if isReservedColumn(w.Label) {
			issues = append(issues, ValidationIssue{Severity: SeverityError, Field: field + ".Label",
				Message: fmt.Sprintf("label %q collides with a report column", w.Label)})
		}
		if files[w.File] {
			issues = append(issues, ValidationIssue{Severity: SeverityError, Field: field + ".File",
				Message: fmt.Sprintf("output file %q is used twice", w.File)})
		}
		files[w.File] = true
		if i > 0 && l.Mode == ModeRatio && w.AURow != l.Windows[0].AURow {
			issues = append(issues, ValidationIssue{Severity: SeverityWarning, Field: field + ".AURow",
				Message: fmt.Sprintf("AU row %d differs from the first window's %d; the summary uses the first", w.AURow, l.Windows[0].AURow)})
		}
	}
	return issues
}

// validateExpressions compiles the sample label template and sheet filter.
func validateExpressions(l Layout) []ValidationIssue {
	var issues []ValidationIssue
	if err := checkSyntax(l.sampleLabel()); err != nil {
		issues = append(issues, ValidationIssue{Severity: SeverityError, Field: "SampleLabel", Message: err.Error()})
	}
	if l.SheetFilter != "" {
		if _, err := expr.Compile(l.SheetFilter, expr.AllowUndefinedVariables()); err != nil {
			issues = append(issues, ValidationIssue{Severity: SeverityError, Field: "SheetFilter",
				Message: fmt.Sprintf("invalid expression %q: %v", l.SheetFilter, err)})
		}
	}
	return issues
}

func isReservedColumn(name string) bool {
	switch name {
	case ColID, ColPlate, ColSample, ColSource, ColTreatment, ColAU:
		return true
	}
	return len(name) > 1 && name[0] == 'T' && strings.Trim(name[1:], "0123456789") == ""
}
