// Package report provides the generate_report action: it renders an
// explicit data parameter, or the full execution context variables, as a
// JSON, CSV, or text document, optionally writing it to a file.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flowmate/flowmate/pkg/models"
	"github.com/flowmate/flowmate/pkg/template"
)

// Supported report formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
	FormatText = "text"
)

const (
	reportDirPerm  = 0750
	reportFilePerm = 0600
)

// ErrUnsupportedFormat is returned when the 'format' parameter names an unknown format.
var ErrUnsupportedFormat = errors.New("unsupported report format")

// Action renders a report document.
type Action struct {
	Format     string
	Data       any
	Template   string
	OutputPath string

	hasData bool
}

// NewAction creates a generate_report action from step parameters.
func NewAction(config map[string]any) (*Action, error) {
	format, _ := config["format"].(string)
	if format == "" {
		format = FormatJSON
	}

	format = strings.ToLower(format)

	switch format {
	case FormatJSON, FormatCSV, FormatText:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	data, hasData := config["data"]
	templateStr, _ := config["template"].(string)
	outputPath, _ := config["outputPath"].(string)

	return &Action{
		Format:     format,
		Data:       data,
		Template:   templateStr,
		OutputPath: outputPath,
		hasData:    hasData,
	}, nil
}

// Execute renders the report and returns its content and metadata. Without
// a 'data' parameter the full context variable map is rendered.
func (a *Action) Execute(ctx context.Context, executionCtx models.ExecutionContext, logger *slog.Logger) (any, error) {
	logger = logger.With("module", "generate_report_action")

	input := a.Data
	if !a.hasData {
		input = variablesOf(executionCtx)
	}

	var (
		content string
		err     error
	)

	switch a.Format {
	case FormatJSON:
		content, err = renderJSON(input)
	case FormatCSV:
		content, err = renderCSV(input)
	case FormatText:
		content = a.renderText(input)
	default:
		err = fmt.Errorf("%w: %s", ErrUnsupportedFormat, a.Format)
	}

	if err != nil {
		return nil, err
	}

	result := map[string]any{
		"format":  a.Format,
		"content": content,
		"length":  len(content),
	}

	if a.OutputPath != "" {
		err := writeReport(a.OutputPath, content)
		if err != nil {
			return nil, err
		}

		result["path"] = a.OutputPath
	}

	logger.InfoContext(ctx, "Report generated", "format", a.Format, "length", len(content), "path", a.OutputPath)

	return result, nil
}

func variablesOf(executionCtx models.ExecutionContext) map[string]any {
	if executionCtx.Variables == nil {
		return map[string]any{}
	}

	return executionCtx.Variables
}

func renderJSON(input any) (string, error) {
	encoded, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report data as json: %w", err)
	}

	return string(encoded), nil
}

// renderCSV renders an array of flat objects as CSV with a header row built
// from the sorted union of keys. Any other input shape yields an empty
// document, an empty array included.
func renderCSV(input any) (string, error) {
	rows, ok := objectRows(input)
	if !ok || len(rows) == 0 {
		return "", nil
	}

	headers := make([]string, 0)
	seen := make(map[string]struct{})

	for _, row := range rows {
		for key := range row {
			if _, dup := seen[key]; !dup {
				seen[key] = struct{}{}

				headers = append(headers, key)
			}
		}
	}

	sort.Strings(headers)

	var buf strings.Builder

	writer := csv.NewWriter(&buf)

	err := writer.Write(headers)
	if err != nil {
		return "", fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(headers))

	for _, row := range rows {
		for i, key := range headers {
			record[i] = formatCell(row[key])
		}

		err := writer.Write(record)
		if err != nil {
			return "", fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	writer.Flush()

	err = writer.Error()
	if err != nil {
		return "", fmt.Errorf("failed to flush csv: %w", err)
	}

	return buf.String(), nil
}

func (a *Action) renderText(input any) string {
	object, isObject := input.(map[string]any)

	if a.Template != "" {
		data := object
		if !isObject {
			data = map[string]any{"data": input}
		}

		return template.Render(a.Template, data)
	}

	if !isObject {
		return fmt.Sprintf("%v", input)
	}

	keys := make([]string, 0, len(object))
	for key := range object {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	var buf strings.Builder

	for _, key := range keys {
		fmt.Fprintf(&buf, "%s: %s\n", key, formatCell(object[key]))
	}

	return buf.String()
}

func objectRows(input any) ([]map[string]any, bool) {
	switch rows := input.(type) {
	case []map[string]any:
		return rows, true
	case []any:
		converted := make([]map[string]any, 0, len(rows))

		for _, item := range rows {
			row, ok := item.(map[string]any)
			if !ok {
				return nil, false
			}

			converted = append(converted, row)
		}

		return converted, true
	default:
		return nil, false
	}
}

func formatCell(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}

		return string(encoded)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func writeReport(path, content string) error {
	dir := filepath.Dir(path)
	if dir != "." {
		err := os.MkdirAll(dir, reportDirPerm)
		if err != nil {
			return fmt.Errorf("failed to create report directory %s: %w", dir, err)
		}
	}

	err := os.WriteFile(path, []byte(content), reportFilePerm)
	if err != nil {
		return fmt.Errorf("failed to write report to %s: %w", path, err)
	}

	return nil
}
