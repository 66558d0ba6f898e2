package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)

	err := rootCmd.Execute()
	return buf.String(), err
}

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-01", true},
		{"2024-01-01 09:30:00", true},
		{"2024-01-01T09:30:00Z", true},
		{"last week", false},
		{"01/15/2024", false},
		{"", false},
	}

	for _, tc := range cases {
		_, err := parseDate(tc.in)
		if tc.ok {
			assert.NoError(t, err, "input: %q", tc.in)
		} else {
			assert.Error(t, err, "input: %q", tc.in)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	since, before, err := parseDateRange("2024-01-01", "2024-01-31")
	require.NoError(t, err)
	assert.True(t, since.Before(before))

	_, _, err = parseDateRange("2024-01-31", "2024-01-01")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "before end date")

	_, _, err = parseDateRange("2024-01-01", "2024-01-01")
	require.Error(t, err)

	_, _, err = parseDateRange("notadate", "2024-01-31")
	require.Error(t, err)
}

func TestRootRejectsInvalidDates(t *testing.T) {
	_, err := executeCommand(t,
		"--start", "notadate",
		"--end", "2024-01-31",
		"--config", filepath.Join(t.TempDir(), "config.yaml"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestDemoJSON(t *testing.T) {
	out, err := executeCommand(t, "demo",
		"--format", "json",
		"--output", "",
		"--config", filepath.Join(t.TempDir(), "config.yaml"),
	)
	require.NoError(t, err)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	require.Len(t, decoded, 2)

	assert.Equal(t, "101", decoded[0]["email_id"])
	section, ok := decoded[0]["eod_section"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "EOD", section["section_header"])
	tasks, ok := section["tasks"].([]any)
	require.True(t, ok)
	assert.Len(t, tasks, 4)

	section2, ok := decoded[1]["eod_section"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "End of Day Summary", section2["section_header"])
}

func TestDemoCSV(t *testing.T) {
	out, err := executeCommand(t, "demo",
		"--format", "csv",
		"--output", "",
		"--config", filepath.Join(t.TempDir(), "config.yaml"),
	)
	require.NoError(t, err)

	rows, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 9) // header + 4 tasks per sample email

	for _, row := range rows[1:5] {
		assert.Equal(t, "101", row[4])
		assert.Equal(t, "Daily Status Update - 2024-01-15", row[1])
	}
	for _, row := range rows[5:] {
		assert.Equal(t, "102", row[4])
	}
}

func TestDemoText(t *testing.T) {
	out, err := executeCommand(t, "demo",
		"--format", "text",
		"--output", "",
		"--config", filepath.Join(t.TempDir(), "config.yaml"),
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Subject: Daily Status Update - 2024-01-15")
	assert.Contains(t, out, "• Checking tracker and tickets - 20 min")
	assert.Contains(t, out, "EOD Section: End of Day Summary")
}

func TestDemoRejectsUnknownFormat(t *testing.T) {
	_, err := executeCommand(t, "demo",
		"--format", "xml",
		"--output", "",
		"--config", filepath.Join(t.TempDir(), "config.yaml"),
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	out, err := executeCommand(t, "config", "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	// A second init must refuse to overwrite.
	_, err = executeCommand(t, "config", "init", "--config", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}
