package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Reporter is an append-only sink for findings. Report must accept every
// well-formed record; sinks that write to fallible destinations swallow
// write errors rather than failing the scan.
type Reporter interface {
	Report(r Record)
}

// Collector accumulates records in memory, preserving emission order.
// It backs tests and the serve command.
type Collector struct {
	records []Record
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// Report appends the record.
func (c *Collector) Report(r Record) {
	c.records = append(c.records, r)
}

// Records returns the collected records in emission order.
func (c *Collector) Records() []Record { return c.records }

// ByName returns the collected records with the given name.
func (c *Collector) ByName(name string) []Record {
	var out []Record
	for _, r := range c.records {
		if r.Name() == name {
			out = append(out, r)
		}
	}
	return out
}

// JSONReporter writes one JSON object per record, one per line.
type JSONReporter struct {
	enc *json.Encoder
}

// NewJSONReporter creates a reporter streaming JSON lines to w.
func NewJSONReporter(w io.Writer) *JSONReporter {
	return &JSONReporter{enc: json.NewEncoder(w)}
}

// Report encodes the record with its name folded into the object. Encoding
// errors are dropped: the sink contract is append-only and infallible.
func (j *JSONReporter) Report(r Record) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	var obj map[string]any
	if err := json.Unmarshal(data, &obj); err != nil {
		return
	}
	obj["name"] = r.Name()
	_ = j.enc.Encode(obj)
}

var (
	styleCPV    = lipgloss.NewStyle().Bold(true)
	styleRecord = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
)

// TextReporter writes one styled line per record.
type TextReporter struct {
	w io.Writer
}

// NewTextReporter creates a reporter writing human-readable lines to w.
func NewTextReporter(w io.Writer) *TextReporter {
	return &TextReporter{w: w}
}

// Report writes "cpv: Name: description". Write errors are dropped per the
// sink contract.
func (t *TextReporter) Report(r Record) {
	_, _ = fmt.Fprintf(t.w, "%s: %s: %s\n",
		styleCPV.Render(r.CPV()), styleRecord.Render(r.Name()), r.String())
}

// Tee duplicates records to several reporters.
type Tee []Reporter

// Report forwards the record to every reporter in order.
func (t Tee) Report(r Record) {
	for _, rep := range t {
		rep.Report(r)
	}
}
