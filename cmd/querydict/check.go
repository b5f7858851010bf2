package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"querydict-hq/querydict/pkg/cli"
	"querydict-hq/querydict/pkg/query/engine"
	qerrors "querydict-hq/querydict/pkg/query/errors"
)

var checkFlags struct {
	engine engineFlags
	format string
}

// errInvalidQuery is returned by check when the query has problems.
var errInvalidQuery = errors.New("query is invalid")

var checkCmd = &cobra.Command{
	Use:   "check QUERY",
	Short: "Validate a query",
	Long: `Parse and validate a query, reporting every problem rather than only the
first. Each problem is shown with a caret under the offending column.

Examples:
  # Check a query
  querydict check 'domain:example.com AND status:active'

  # Reject implicit juxtaposition
  querydict check 'a:x b:y' --ambiguous Reject

  # JSON output for CI/CD
  querydict check 'price:[0 TO 10]' --format json`,
	Args: cobra.ExactArgs(1),
	RunE: checkQuery,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkFlags.engine.register(checkCmd)
	checkCmd.Flags().StringVar(&checkFlags.format, "format", "text", "output format: text, json")
}

// CheckResult is the outcome of checking one query.
type CheckResult struct {
	Query  string       `json:"query"`
	Valid  bool         `json:"valid"`
	Errors []CheckError `json:"errors,omitempty"`
}

// CheckError is one problem found in a query.
type CheckError struct {
	Line       int    `json:"line,omitempty"`
	Column     int    `json:"column,omitempty"`
	Type       string `json:"type"`
	Message    string `json:"message"`
	Context    string `json:"context,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func checkQuery(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one query is required")
	}
	format, err := cli.ParseFormat(checkFlags.format)
	if err != nil || format == cli.FormatCSV {
		return cli.NewConfigError("format", fmt.Sprintf("unsupported format %q (valid: text, json)", checkFlags.format))
	}

	_, ecfg, err := checkFlags.engine.engineConfig(cmd)
	if err != nil {
		return err
	}

	result := lintQuery(args[0], ecfg)

	w := stdout(cmd)
	if format == cli.FormatJSON {
		if err := cli.NewFormatter(format).FormatTo(w, result); err != nil {
			return err
		}
	} else {
		writeCheckText(w, result)
	}

	if !result.Valid {
		return cli.NewCommandError("check", errInvalidQuery)
	}
	return nil
}

func lintQuery(query string, cfg *engine.Config) CheckResult {
	result := CheckResult{Query: query, Valid: true}

	err := engine.Lint(query, cfg)
	if err == nil {
		return result
	}
	result.Valid = false

	var list *qerrors.ErrorList
	var qe *qerrors.Error
	switch {
	case errors.As(err, &list):
		for _, e := range list.Errors {
			result.Errors = append(result.Errors, checkError(e))
		}
	case errors.As(err, &qe):
		result.Errors = append(result.Errors, checkError(qe))
	default:
		result.Errors = append(result.Errors, CheckError{Type: "error", Message: err.Error()})
	}
	return result
}

func checkError(e *qerrors.Error) CheckError {
	return CheckError{
		Line:       e.Position.Line,
		Column:     e.Position.Column,
		Type:       string(e.Type),
		Message:    e.Message,
		Context:    e.Context,
		Suggestion: e.Suggestion,
	}
}

func writeCheckText(w io.Writer, result CheckResult) {
	if result.Valid {
		fmt.Fprintln(w, "✓ Query valid")
		return
	}

	for _, e := range result.Errors {
		fmt.Fprintf(w, "✗ %s error: %s", e.Type, e.Message)
		if e.Line > 0 {
			fmt.Fprintf(w, " (line %d, col %d)", e.Line, e.Column)
		}
		fmt.Fprintln(w)
		if e.Context != "" {
			for _, line := range strings.Split(strings.TrimRight(e.Context, "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
		if e.Suggestion != "" {
			fmt.Fprintf(w, "  Suggestion: %s\n", e.Suggestion)
		}
	}

	fmt.Fprintf(w, "\n%d problem(s) found\n", len(result.Errors))
}
