// Package shared holds code used across packages that belongs to no single
// layer. Today that is the testutil subpackage: a buffered slog handler with
// log assertions, and writers for CSV and XLSX feed fixtures.
package shared
