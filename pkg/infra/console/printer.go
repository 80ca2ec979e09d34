package console

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/m-mizutani/upwatch/pkg/domain/interfaces"
	"github.com/m-mizutani/upwatch/pkg/domain/model"
)

var (
	updatedColor = color.New(color.FgGreen, color.Bold)
	manualColor  = color.New(color.FgYellow)
	failedColor  = color.New(color.FgRed)
	headerColor  = color.New(color.Bold)
	faintColor   = color.New(color.Faint)
)

// progress symbols, one per target
var symbols = map[model.Outcome]string{
	model.OutcomeUpdated: "!",
	model.OutcomeCurrent: ".",
	model.OutcomeManual:  "?",
	model.OutcomeFailed:  "x",
	model.OutcomeSkipped: "-",
}

// Printer writes scan progress and the final summary for an operator
type Printer struct {
	mu      sync.Mutex
	w       io.Writer
	printed int
}

var (
	_ interfaces.ProgressReporter = (*Printer)(nil)
	_ interfaces.ScanSink         = (*Printer)(nil)
)

func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Progress(target *model.Target, outcome model.Outcome) {
	symbol, ok := symbols[outcome]
	if !ok {
		symbol = "?"
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	switch outcome {
	case model.OutcomeUpdated:
		updatedColor.Fprint(p.w, symbol)
	case model.OutcomeManual:
		manualColor.Fprint(p.w, symbol)
	case model.OutcomeFailed:
		failedColor.Fprint(p.w, symbol)
	default:
		fmt.Fprint(p.w, symbol)
	}
	p.printed++
}

// PublishScan prints the summary of a finished scan
func (p *Printer) PublishScan(ctx context.Context, report *model.ScanReport) error {
	p.PrintReport(report)
	return nil
}

// PrintReport terminates the progress line and prints the grouped summary
func (p *Printer) PrintReport(report *model.ScanReport) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.printed > 0 {
		fmt.Fprintln(p.w)
		p.printed = 0
	}

	headerColor.Fprintf(p.w, "Updates found in %d of %d targets\n", report.UpdateCount, report.TargetCount)
	for _, entry := range report.Updated {
		fmt.Fprintf(p.w, "  %s  %s ", updatedColor.Sprint(entry.Name), entry.Location)
		faintColor.Fprintf(p.w, "(%s)\n", entry.VCS)
	}

	if len(report.Manual) > 0 {
		headerColor.Fprintf(p.w, "Needs manual check (%d)\n", len(report.Manual))
		for _, entry := range report.Manual {
			fmt.Fprintf(p.w, "  %s  %s ", manualColor.Sprint(entry.Name), entry.Location)
			faintColor.Fprintf(p.w, "(%s)\n", entry.VCS)
		}
	}

	if len(report.Failures) > 0 {
		headerColor.Fprintf(p.w, "Failed (%d)\n", len(report.Failures))
		for _, failure := range report.Failures {
			fmt.Fprintf(p.w, "  %s  %s\n", failedColor.Sprint(failure.Name), failure.Error)
		}
	}

	if report.Skipped > 0 {
		fmt.Fprintf(p.w, "Skipped: %d\n", report.Skipped)
	}

	faintColor.Fprintf(p.w, "Elapsed: %s\n", report.Duration().Round(time.Millisecond))
}
