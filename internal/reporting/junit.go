package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"

	"github.com/oolongbench/oolong-pairs/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one benchmark run.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one benchmark task.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure represents a task whose answer did not match.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents an execution error on a task.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a benchmark run to JUnit XML. A task counts as a
// failure when it produced a score of zero without an execution error, and
// as an error when execution failed outright.
func ConvertToJUnit(run *models.BenchmarkRun, results []*models.Result) *JUnitTestSuites {
	var failures, errs int
	var totalMs float64

	suite := JUnitTestSuite{
		Name:      run.ID,
		Tests:     len(results),
		Timestamp: run.Timestamp.Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "strategy", Value: string(run.Strategy)},
			{Name: "mode", Value: string(run.Mode)},
			{Name: "avg_score", Value: fmt.Sprintf("%.4f", run.AvgScore)},
		},
	}

	for _, res := range results {
		tc := JUnitTestCase{
			Name:      res.TaskID,
			Classname: string(run.Strategy),
			Time:      res.LatencyMS / 1000.0,
		}
		totalMs += res.LatencyMS

		switch {
		case res.Failed():
			errs++
			tc.Error = &JUnitError{
				Message: res.Error,
				Type:    "ExecutionError",
			}
		case res.Score == 0:
			failures++
			tc.Failure = &JUnitFailure{
				Message: fmt.Sprintf("%s: score=%.2f", res.TaskID, res.Score),
				Type:    "AnswerMismatch",
				Body:    fmt.Sprintf("expected %q, got %q", res.ExpectedAnswer, res.ActualAnswer),
			}
		}

		suite.TestCases = append(suite.TestCases, tc)
	}

	suite.Failures = failures
	suite.Errors = errs
	suite.Time = totalMs / 1000.0

	return &JUnitTestSuites{
		Tests:      len(results),
		Failures:   failures,
		Errors:     errs,
		Time:       suite.Time,
		TestSuites: []JUnitTestSuite{suite},
	}
}

// WriteJUnitXML writes JUnit XML for a run to the specified file path.
func WriteJUnitXML(run *models.BenchmarkRun, results []*models.Result, path string) error {
	suites := ConvertToJUnit(run, results)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
