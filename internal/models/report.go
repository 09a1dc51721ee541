package models

import "time"

// ChartType enumerates the aggregated report series.
type ChartType string

const (
	ChartAttendance   ChartType = "attendance"
	ChartEnrollments  ChartType = "enrollments"
	ChartSubmissions  ChartType = "submissions"
	ChartComplaints   ChartType = "complaints"
	ChartScholarships ChartType = "scholarships"
	ChartActivity     ChartType = "activity"
)

// ChartTypes lists every chart the reports endpoint serves.
var ChartTypes = []ChartType{ChartAttendance, ChartEnrollments, ChartSubmissions, ChartComplaints, ChartScholarships, ChartActivity}

// Valid reports whether t is a known chart.
func (t ChartType) Valid() bool {
	for _, known := range ChartTypes {
		if known == t {
			return true
		}
	}
	return false
}

// ChartFilter scopes a report aggregation.
type ChartFilter struct {
	CourseID string
	From     *time.Time
	To       *time.Time
}

// ChartDataset is one plotted series.
type ChartDataset struct {
	Label string    `json:"label"`
	Data  []float64 `json:"data"`
}

// ChartSeries is chart-ready output: labels on the x axis, one or more datasets.
type ChartSeries struct {
	Type     ChartType      `json:"type"`
	Labels   []string       `json:"labels"`
	Datasets []ChartDataset `json:"datasets"`
}

// ChartBucket is a raw grouped count read from the database.
type ChartBucket struct {
	Label  string  `db:"label"`
	Series string  `db:"series"`
	Value  float64 `db:"value"`
}
