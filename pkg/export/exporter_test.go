package export

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterSubstitutesCommas(t *testing.T) {
	data := Dataset{
		Headers: []string{"code", "title", "room"},
		Rows: []map[string]string{
			{"code": "CS101", "title": "Intro, Programming", "room": "B2"},
			{"code": "CS102", "title": "Data\nStructures", "room": ""},
			{"code": "CS103", "title": "Algorithms"},
		},
	}

	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSuffix(string(out), "\n"), "\n")
	require.Len(t, lines, len(data.Rows)+1)
	assert.Equal(t, "code,title,room", lines[0])
	assert.Equal(t, "CS101,Intro; Programming,B2", lines[1])
	assert.Equal(t, "CS102,Data Structures,", lines[2])
	for _, line := range lines {
		assert.Len(t, strings.Split(line, ","), len(data.Headers))
	}
}

func TestCSVExporterHeaderOnly(t *testing.T) {
	out, err := NewCSVExporter().Render(Dataset{Headers: []string{"a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(out))
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRendersDocument(t *testing.T) {
	data := Dataset{
		Headers: []string{"course", "responses"},
		Rows:    []map[string]string{{"course": "CS101", "responses": "12"}},
	}
	out, err := NewPDFExporter().Render(data, "evaluations")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), "%PDF"))
}

func TestPDFExporterWideDatasetUsesLandscape(t *testing.T) {
	headers := []string{"a", "b", "c", "d", "e", "f", "g"}
	row := map[string]string{}
	for _, h := range headers {
		row[h] = strings.Repeat("x", 80)
	}
	exporter := NewPDFExporter()
	exporter.now = func() time.Time { return time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC) }

	out, err := exporter.Render(Dataset{Headers: headers, Rows: []map[string]string{row}}, "")
	require.NoError(t, err)
	assert.Contains(t, string(out), "/MediaBox [0 0 841.89 595.28]")
}

func TestPDFExporterPaginatesLongTables(t *testing.T) {
	rows := make([]map[string]string, 0, 120)
	for i := 0; i < 120; i++ {
		rows = append(rows, map[string]string{"student": fmt.Sprintf("S%03d", i), "status": "present"})
	}
	out, err := NewPDFExporter().Render(Dataset{Headers: []string{"student", "status"}, Rows: rows}, "attendance")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, strings.Count(string(out), "/Type /Page\n"), 2)
}

func TestPDFExporterRequiresHeaders(t *testing.T) {
	_, err := NewPDFExporter().Render(Dataset{}, "empty")
	assert.Error(t, err)
}
