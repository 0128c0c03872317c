package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeddiff/internal/config"
)

func setupCSVWriter(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	reportsDir := filepath.Join(t.TempDir(), "reports")
	return NewCSVWriter(&config.Paths{ReportsDir: reportsDir}, nil), reportsDir
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	writer, reportsDir := setupCSVWriter(t)

	tests := []struct {
		name     string
		filePath string
		options  WriteOptions
		validate func(t *testing.T, content []byte)
	}{
		{
			name:     "headers and records",
			filePath: "basic.csv",
			options: WriteOptions{
				Headers: Headers,
				Records: [][]string{{"Diff", "A", "0", "x", "y"}},
			},
			validate: func(t *testing.T, content []byte) {
				lines := strings.Split(strings.TrimSpace(string(content)), "\n")
				require.Len(t, lines, 2)
				assert.Equal(t, "Type,Asset ID,Index,Feed1,Feed2", lines[0])
				assert.Equal(t, "Diff,A,0,x,y", lines[1])
			},
		},
		{
			name:     "BOM prefix",
			filePath: "bom.csv",
			options: WriteOptions{
				Headers:   Headers,
				BOMPrefix: true,
			},
			validate: func(t *testing.T, content []byte) {
				assert.True(t, bytes.HasPrefix(content, utf8BOM))
				assert.Equal(t, "Type,Asset ID,Index,Feed1,Feed2\n", string(content[3:]))
			},
		},
		{
			name:     "nested path is created",
			filePath: filepath.Join("runs", "2024", "nested.csv"),
			options: WriteOptions{
				Records: [][]string{{"a", "b"}},
			},
			validate: func(t *testing.T, content []byte) {
				assert.Equal(t, "a,b\n", string(content))
			},
		},
		{
			name:     "cells with separators are quoted",
			filePath: "quoted.csv",
			options: WriteOptions{
				Records: [][]string{{"Diff", "A,B", "1", "d;1", "say \"hi\""}},
			},
			validate: func(t *testing.T, content []byte) {
				assert.Equal(t, "Diff,\"A,B\",1,d;1,\"say \"\"hi\"\"\"\n", string(content))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			assert.Equal(t, filepath.Join(reportsDir, tt.filePath), path)

			content, err := os.ReadFile(path)
			require.NoError(t, err)
			tt.validate(t, content)
		})
	}
}

func TestCSVWriter_Overwrites(t *testing.T) {
	writer, _ := setupCSVWriter(t)

	_, err := writer.WriteCSV("again.csv", WriteOptions{Headers: []string{"h"}, Records: [][]string{{"1"}, {"2"}}})
	require.NoError(t, err)
	path, err := writer.WriteCSV("again.csv", WriteOptions{Headers: []string{"h"}, Records: [][]string{{"3"}}})
	require.NoError(t, err)

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "h\n3\n", string(content))
}

func TestCSVWriter_AbsolutePath(t *testing.T) {
	writer, _ := setupCSVWriter(t)
	abs := filepath.Join(t.TempDir(), "abs.csv")

	path, err := writer.WriteCSV(abs, WriteOptions{Records: [][]string{{"x"}}})
	require.NoError(t, err)
	assert.Equal(t, abs, path)
}

func TestStreamWriter(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		var buf bytes.Buffer
		sw, err := NewStreamWriter(&buf, Headers, false)
		require.NoError(t, err)
		for i := 0; i < 3; i++ {
			require.NoError(t, sw.WriteRecord([]string{"Diff", "A", "0", "x", "y"}))
		}
		require.NoError(t, sw.Close())

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, 4)
		assert.Empty(t, sw.Path)
	})

	t.Run("file", func(t *testing.T) {
		writer, reportsDir := setupCSVWriter(t)
		sw, err := writer.CreateStreamWriter("stream.csv", Headers, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(reportsDir, "stream.csv"), sw.Path)
		require.NoError(t, sw.WriteRecord([]string{"Diff", "A", "0", "x", "y"}))
		require.NoError(t, sw.Close())

		content, err := os.ReadFile(sw.Path)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(content, utf8BOM))
		assert.Contains(t, string(content), "Diff,A,0,x,y")
	})
}
