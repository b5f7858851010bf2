package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"querydict-hq/querydict/pkg/cli"
	"querydict-hq/querydict/pkg/query/engine"
)

var matchFlags struct {
	engine       engineFlags
	record       string
	input        string
	defaultField string
	explain      bool
	format       string
}

var matchCmd = &cobra.Command{
	Use:   "match QUERY",
	Short: "Match a query against JSON records",
	Long: `Evaluate a query against a JSON record, or against every line of a
JSON-lines file with --input ndjson.

The exit status is 0 when a record matched, 1 when none did and 2 on error.

Examples:
  # Match a record from stdin
  echo '{"domain":"example.com"}' | querydict match 'domain:example.com'

  # Match a file and show how the query was evaluated
  querydict match 'a:x OR b:y' --record record.json --explain

  # Match every line of a JSON-lines file
  querydict match 'country:England' --record records.ndjson --input ndjson --format json`,
	Args: cobra.ExactArgs(1),
	RunE: matchRecords,
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchFlags.engine.register(matchCmd)
	matchCmd.Flags().StringVarP(&matchFlags.record, "record", "r", "-", "record file, - for stdin")
	matchCmd.Flags().StringVar(&matchFlags.input, "input", "json", "input format: json, ndjson")
	matchCmd.Flags().StringVar(&matchFlags.defaultField, "default-field", "", "field matched by unqualified terms")
	matchCmd.Flags().BoolVar(&matchFlags.explain, "explain", false, "print the evaluation trace")
	matchCmd.Flags().StringVar(&matchFlags.format, "format", "text", "output format: text, json")
}

// MatchResult is the outcome of matching one record.
type MatchResult struct {
	// Line is the 1-based input line for ndjson input.
	Line    int           `json:"line,omitempty"`
	Matched bool          `json:"matched"`
	Error   string        `json:"error,omitempty"`
	Trace   *engine.Trace `json:"trace,omitempty"`
}

func matchRecords(cmd *cobra.Command, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("exactly one query is required")
	}
	format, err := cli.ParseFormat(matchFlags.format)
	if err != nil || format == cli.FormatCSV {
		return cli.NewConfigError("format", fmt.Sprintf("unsupported format %q (valid: text, json)", matchFlags.format))
	}
	if matchFlags.input != "json" && matchFlags.input != "ndjson" {
		return cli.NewConfigError("input", fmt.Sprintf("unsupported input %q (valid: json, ndjson)", matchFlags.input))
	}

	cfg, ecfg, err := matchFlags.engine.engineConfig(cmd)
	if err != nil {
		return err
	}
	eng, err := engine.New(args[0], ecfg)
	if err != nil {
		return cli.NewCommandError("match", err)
	}

	defaultField := matchFlags.defaultField
	if defaultField == "" {
		defaultField = cfg.Engine.DefaultField
	}

	in, closeInput, err := openInput(cmd, matchFlags.record)
	if err != nil {
		return err
	}
	defer closeInput()

	var results []MatchResult
	if matchFlags.input == "ndjson" {
		err = forEachLine(in, func(line int, data []byte) error {
			result := matchOne(eng, data, defaultField)
			result.Line = line
			results = append(results, result)
			return nil
		})
	} else {
		var data []byte
		data, err = io.ReadAll(in)
		if err == nil {
			results = append(results, matchOne(eng, bytes.TrimSpace(data), defaultField))
		}
	}
	if err != nil {
		return cli.NewCommandError("match", err)
	}

	if err := writeMatchResults(stdout(cmd), format, results); err != nil {
		return err
	}

	for _, r := range results {
		if r.Error != "" {
			return cli.NewCommandError("match", fmt.Errorf("evaluation failed: %s", r.Error))
		}
	}
	for _, r := range results {
		if r.Matched {
			return nil
		}
	}
	return cli.ErrNoMatch
}

func matchOne(eng *engine.Engine, data []byte, defaultField string) MatchResult {
	opt := engine.WithDefaultField(defaultField)
	if matchFlags.explain {
		trace, err := eng.ExplainJSON(data, opt)
		result := MatchResult{Trace: trace}
		if err != nil {
			result.Error = err.Error()
			return result
		}
		result.Matched = trace.Matched
		return result
	}

	matched, err := eng.MatchJSON(data, opt)
	if err != nil {
		return MatchResult{Error: err.Error()}
	}
	return MatchResult{Matched: matched}
}

func writeMatchResults(w io.Writer, format cli.OutputFormat, results []MatchResult) error {
	if format == cli.FormatJSON {
		f := &cli.JSONFormatter{}
		for _, r := range results {
			if err := f.FormatTo(w, r); err != nil {
				return err
			}
		}
		return nil
	}

	for _, r := range results {
		prefix := ""
		if r.Line > 0 {
			prefix = fmt.Sprintf("%d: ", r.Line)
		}
		switch {
		case r.Error != "":
			fmt.Fprintf(w, "%serror: %s\n", prefix, r.Error)
		case r.Matched:
			fmt.Fprintf(w, "%smatched\n", prefix)
		default:
			fmt.Fprintf(w, "%snot matched\n", prefix)
		}
		if r.Trace != nil {
			fmt.Fprint(w, r.Trace.String())
		}
	}
	return nil
}

// openInput opens path for reading, or stdin for "-" and "".
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "" || path == "-" {
		return stdin(cmd), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

// forEachLine calls fn with every non-blank line of r.
func forEachLine(r io.Reader, fn func(line int, data []byte) error) error {
	br := bufio.NewReader(r)
	for line := 1; ; line++ {
		data, err := br.ReadBytes('\n')
		if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 {
			if ferr := fn(line, trimmed); ferr != nil {
				return ferr
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
