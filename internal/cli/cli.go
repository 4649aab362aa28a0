package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Laisky/errors/v2"
	"github.com/studiowebux/apitest/internal/filter"
	"github.com/studiowebux/apitest/internal/parser"
	"github.com/studiowebux/apitest/internal/runner"
	"github.com/studiowebux/apitest/internal/types"
	"gopkg.in/yaml.v3"
)

// ErrTestFailed is returned in strict mode when the result is not a success
var ErrTestFailed = errors.New("api test failed")

// Output formats
const (
	OutputJSON = "json"
	OutputYAML = "yaml"
	OutputText = "text"
)

// RunOptions contains options for running a test in CLI mode
type RunOptions struct {
	SpecPath     string // spec file, or "-" for stdin
	InlineSpec   string // spec JSON given on the command line
	OutputFormat string // json, yaml, text
	Filter       string // JMESPath filter expression over the result
	Query        string // JMESPath query over the result
	Strict       bool   // fail when the result is not a success
}

// Run executes one API test and prints its result to stdout.
// Malformed spec files are reported through the result, like any other input error;
// only a spec that cannot be read at all, or unusable flags, return an error.
func Run(ctx context.Context, r *runner.Runner, opts RunOptions, stdin io.Reader, stdout io.Writer) (*types.APITestResult, error) {
	outputFormat := strings.ToLower(opts.OutputFormat)
	if outputFormat == "" {
		outputFormat = OutputJSON
	}
	switch outputFormat {
	case OutputJSON, OutputYAML, OutputText:
	default:
		return nil, errors.Errorf("unsupported output format: %s (use json, yaml, or text)", opts.OutputFormat)
	}

	for _, expr := range []string{opts.Filter, opts.Query} {
		if expr != "" && !filter.IsValidJMESPath(expr) {
			return nil, errors.Errorf("invalid JMESPath expression: %s", expr)
		}
	}

	result, err := runSpec(ctx, r, opts, stdin)
	if err != nil {
		return nil, err
	}

	output, err := formatOutput(result, outputFormat, opts.Filter, opts.Query)
	if err != nil {
		return result, errors.Wrap(err, "failed to format output")
	}
	if _, err := fmt.Fprintln(stdout, output); err != nil {
		return result, errors.Wrap(err, "failed to write output")
	}

	if opts.Strict && !result.Success {
		return result, ErrTestFailed
	}
	return result, nil
}

// runSpec loads the spec from wherever the options point and runs it
func runSpec(ctx context.Context, r *runner.Runner, opts RunOptions, stdin io.Reader) (*types.APITestResult, error) {
	switch {
	case opts.InlineSpec != "":
		return r.Run(ctx, opts.InlineSpec), nil

	case opts.SpecPath == "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read spec from stdin")
		}
		return r.Run(ctx, data), nil

	case opts.SpecPath != "":
		filePath, err := resolveFilePath(opts.SpecPath)
		if err != nil {
			return nil, err
		}
		data, err := parser.LoadFile(filePath)
		if err != nil {
			var parseErr *parser.ParseError
			if errors.As(err, &parseErr) {
				return r.Fail(err), nil
			}
			return nil, err
		}
		return r.Run(ctx, data), nil

	default:
		return nil, errors.New("no spec given (pass a file, '-' for stdin, or --spec)")
	}
}

// formatOutput formats the result based on the output format.
// Filter and query apply to the JSON form of the result; their output is then
// rendered in the requested format (text falls back to JSON).
func formatOutput(result *types.APITestResult, format, filterExpr, queryExpr string) (string, error) {
	if filterExpr != "" || queryExpr != "" {
		selected, err := filter.Apply(runner.Marshal(result), filterExpr, queryExpr)
		if err != nil {
			return "", err
		}
		if format != OutputYAML {
			return selected, nil
		}
		var doc any
		if err := yaml.Unmarshal([]byte(selected), &doc); err != nil {
			return "", errors.Wrap(err, "failed to convert query result")
		}
		return marshalYAML(doc)
	}

	switch format {
	case OutputYAML:
		return marshalYAML(result)
	case OutputText:
		return formatText(result), nil
	default:
		return runner.Marshal(result), nil
	}
}

func marshalYAML(v any) (string, error) {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// formatText renders a short human summary
func formatText(result *types.APITestResult) string {
	var sb strings.Builder

	verdict, color := "PASS", colorGreen
	if !result.Success {
		verdict, color = "FAIL", colorRed
	}
	sb.WriteString(fmt.Sprintf("%s%s%s", color, verdict, colorReset))
	if result.StatusCode > 0 {
		sb.WriteString(fmt.Sprintf(" %s%d%s (%.2fms)",
			getStatusColor(result.StatusCode), result.StatusCode, colorReset, result.ResponseTimeMs))
	}

	for _, line := range result.Validations {
		sb.WriteString("\n  ")
		sb.WriteString(line)
	}

	if result.Error != "" {
		sb.WriteString(fmt.Sprintf("\n%sError: %s%s", colorRed, result.Error, colorReset))
	}

	return sb.String()
}

// ANSI color codes
const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
)

func getStatusColor(status int) string {
	if status >= 200 && status < 300 {
		return colorGreen
	} else if status >= 400 {
		return colorRed
	}
	return colorYellow
}

// resolveFilePath attempts to find the actual file path, trying the spec
// extensions if the exact path doesn't exist
func resolveFilePath(basePath string) (string, error) {
	extensions := []string{"", ".json", ".jsonc", ".yaml", ".yml"}

	for _, ext := range extensions {
		candidate := basePath + ext
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", errors.Errorf("file not found: %s (tried .json, .jsonc, .yaml, .yml extensions)", basePath)
}
