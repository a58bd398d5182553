package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Severity classifies how serious a diagnostic issue is.
type Severity int

const (
	SevInfo     Severity = iota // unusual but valid
	SevWarning                  // tolerated anomaly
	SevError                    // a stream or table is unreadable
	SevCritical                 // the container cannot be opened
)

func (s Severity) String() string {
	switch s {
	case SevInfo:
		return "info"
	case SevWarning:
		return "warning"
	case SevError:
		return "error"
	case SevCritical:
		return "critical"
	}
	return fmt.Sprintf("severity(%d)", int(s))
}

func (s Severity) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// DiagCategory classifies the type of issue found.
type DiagCategory int

const (
	DiagStructure   DiagCategory = iota // header, table or directory layout
	DiagData                            // stream content unreachable
	DiagIntegrity                       // chains shared or inconsistent with sizes
	DiagPerformance                     // wasted space
)

func (c DiagCategory) String() string {
	switch c {
	case DiagStructure:
		return "structure"
	case DiagData:
		return "data"
	case DiagIntegrity:
		return "integrity"
	case DiagPerformance:
		return "performance"
	}
	return fmt.Sprintf("category(%d)", int(c))
}

func (c DiagCategory) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Diagnostic is a single issue found in a container.
type Diagnostic struct {
	Severity  Severity     `json:"severity" yaml:"severity"`
	Category  DiagCategory `json:"category" yaml:"category"`
	Structure string       `json:"structure" yaml:"structure"` // fat, minifat, directory, stream
	Path      string       `json:"path,omitempty" yaml:"path,omitempty"`
	// Offset is the file offset of the sector involved, or -1.
	Offset int64  `json:"offset" yaml:"offset"`
	Issue  string `json:"issue" yaml:"issue"`
}

// DiagnosticReport collects all diagnostics found during a scan.
type DiagnosticReport struct {
	FilePath string        `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	ScanTime time.Duration `json:"scan_time" yaml:"scan_time"`

	Diagnostics []Diagnostic `json:"diagnostics" yaml:"diagnostics"`
	Summary     DiagSummary  `json:"summary" yaml:"summary"`

	bySeverity map[Severity][]Diagnostic
	byOffset   []Diagnostic
}

// DiagSummary counts diagnostics per severity.
type DiagSummary struct {
	Critical int `json:"critical" yaml:"critical"`
	Errors   int `json:"errors" yaml:"errors"`
	Warnings int `json:"warnings" yaml:"warnings"`
	Info     int `json:"info" yaml:"info"`
}

func NewDiagnosticReport() *DiagnosticReport {
	return &DiagnosticReport{bySeverity: make(map[Severity][]Diagnostic)}
}

// Add records d and updates the summary.
func (r *DiagnosticReport) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
	switch d.Severity {
	case SevCritical:
		r.Summary.Critical++
	case SevError:
		r.Summary.Errors++
	case SevWarning:
		r.Summary.Warnings++
	case SevInfo:
		r.Summary.Info++
	}
	r.bySeverity[d.Severity] = append(r.bySeverity[d.Severity], d)
}

// Finalize sorts diagnostics by offset for compact output.
func (r *DiagnosticReport) Finalize() {
	r.byOffset = make([]Diagnostic, len(r.Diagnostics))
	copy(r.byOffset, r.Diagnostics)
	sort.SliceStable(r.byOffset, func(i, j int) bool {
		return r.byOffset[i].Offset < r.byOffset[j].Offset
	})
}

// BySeverity returns the diagnostics of one severity in insertion order.
func (r *DiagnosticReport) BySeverity(s Severity) []Diagnostic { return r.bySeverity[s] }

func (r *DiagnosticReport) HasCriticalIssues() bool { return r.Summary.Critical > 0 }

// HasErrors reports whether any errors or critical issues were found.
func (r *DiagnosticReport) HasErrors() bool {
	return r.Summary.Critical > 0 || r.Summary.Errors > 0
}

func (r *DiagnosticReport) HasAnyIssues() bool { return len(r.Diagnostics) > 0 }

// FormatText returns a human-readable report.
func (r *DiagnosticReport) FormatText() string {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 79) + "\n")
	b.WriteString("Compound File Diagnostic Report\n")
	b.WriteString(strings.Repeat("=", 79) + "\n\n")

	if r.FilePath != "" {
		fmt.Fprintf(&b, "File:      %s\n", r.FilePath)
	}
	fmt.Fprintf(&b, "Scan time: %v\n\n", r.ScanTime)

	b.WriteString("SUMMARY\n")
	b.WriteString(strings.Repeat("-", 79) + "\n")
	fmt.Fprintf(&b, "  Critical: %d\n", r.Summary.Critical)
	fmt.Fprintf(&b, "  Errors:   %d\n", r.Summary.Errors)
	fmt.Fprintf(&b, "  Warnings: %d\n", r.Summary.Warnings)
	fmt.Fprintf(&b, "  Info:     %d\n\n", r.Summary.Info)

	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
		return b.String()
	}

	b.WriteString("DIAGNOSTICS\n")
	b.WriteString(strings.Repeat("-", 79) + "\n\n")
	for _, sev := range []Severity{SevCritical, SevError, SevWarning, SevInfo} {
		diags := r.bySeverity[sev]
		if len(diags) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s (%d)\n", sev, len(diags))
		b.WriteString(strings.Repeat("~", 79) + "\n")
		for i, d := range diags {
			fmt.Fprintf(&b, "\n%d. [%s/%s]", i+1, d.Structure, d.Category)
			if d.Offset >= 0 {
				fmt.Fprintf(&b, " at offset 0x%X", d.Offset)
			}
			fmt.Fprintf(&b, "\n   %s\n", d.Issue)
			if d.Path != "" {
				fmt.Fprintf(&b, "   Path:     %s\n", d.Path)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatTextCompact returns one line per issue, ordered by offset.
// Finalize must have been called.
func (r *DiagnosticReport) FormatTextCompact() string {
	var b strings.Builder
	for _, d := range r.byOffset {
		fmt.Fprintf(&b, "0x%08X [%s/%s/%s] %s", max(d.Offset, 0), d.Severity, d.Structure, d.Category, d.Issue)
		if d.Path != "" {
			fmt.Fprintf(&b, " (%s)", d.Path)
		}
		b.WriteString("\n")
	}
	if len(r.Diagnostics) == 0 {
		b.WriteString("No issues found.\n")
	}
	return b.String()
}
