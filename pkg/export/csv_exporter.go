package export

import (
	"bytes"
	"fmt"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// CSVExporter renders Dataset records into comma separated text. Values are
// never quoted: embedded commas become semicolons and line breaks become
// spaces so every record stays on one line with a fixed column count.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

var cellReplacer = strings.NewReplacer(",", ";", "\r\n", " ", "\n", " ", "\r", " ")

// Render produces CSV encoded bytes for the dataset: one header line followed
// by exactly one line per row.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writeLine(buf, data.Headers)
	record := make([]string, len(data.Headers))
	for _, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		writeLine(buf, record)
	}
	return buf.Bytes(), nil
}

func writeLine(buf *bytes.Buffer, values []string) {
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(cellReplacer.Replace(v))
	}
	buf.WriteByte('\n')
}
