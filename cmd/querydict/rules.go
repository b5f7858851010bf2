package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"querydict-hq/querydict/pkg/cli"
	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/ruleset"
)

var rulesFlags struct {
	file            string
	records         string
	format          string
	progress        bool
	recordDecisions bool
	validate        bool
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Evaluate a rule set against JSON-lines records",
	Long: `Load a rule file (or a directory of rule files) and evaluate every record
of a JSON-lines input against it, printing the matching rules per record.

The exit status is 0 when any record matched a rule, 1 when none did and 2
on error.

Examples:
  # Evaluate records from stdin
  cat records.ndjson | querydict rules --file rules.yaml

  # CSV report with a progress bar
  querydict rules --file rules/ --records records.ndjson --format csv --progress

  # Validate rule files without evaluating anything
  querydict rules --file rules/ --validate

  # Store a decision per record in the configured decision store
  querydict rules --file rules.yaml --records records.ndjson --record-decisions`,
	RunE: evaluateRules,
}

func init() {
	rootCmd.AddCommand(rulesCmd)

	rulesCmd.Flags().StringVarP(&rulesFlags.file, "file", "f", "", "rule file or directory (rules.path from config when empty)")
	rulesCmd.Flags().StringVarP(&rulesFlags.records, "records", "r", "-", "JSON-lines records file, - for stdin")
	rulesCmd.Flags().StringVar(&rulesFlags.format, "format", "text", "output format: text, json, csv")
	rulesCmd.Flags().BoolVar(&rulesFlags.progress, "progress", false, "show progress on stderr (file input only)")
	rulesCmd.Flags().BoolVar(&rulesFlags.recordDecisions, "record-decisions", false, "record a decision per record")
	rulesCmd.Flags().BoolVar(&rulesFlags.validate, "validate", false, "only load and compile the rules")
}

// RuleEvaluation is the outcome of evaluating one record.
type RuleEvaluation struct {
	Line         int                 `json:"line"`
	EvaluationID string              `json:"evaluation_id"`
	Matched      []string            `json:"matched"`
	Errors       []ruleset.RuleError `json:"errors,omitempty"`
	DecisionID   string              `json:"decision_id,omitempty"`
}

// RulesReport is the outcome of a rules run.
type RulesReport struct {
	RuleSetVersion string           `json:"ruleset_version"`
	Rules          int              `json:"rules"`
	Evaluations    []RuleEvaluation `json:"evaluations"`
}

// String renders the report as text.
func (r *RulesReport) String() string {
	var sb strings.Builder
	for _, e := range r.Evaluations {
		matched := "-"
		if len(e.Matched) > 0 {
			matched = strings.Join(e.Matched, ", ")
		}
		fmt.Fprintf(&sb, "%d: %s\n", e.Line, matched)
		for _, re := range e.Errors {
			fmt.Fprintf(&sb, "   ✗ %s: %s\n", re.Rule, re.Message)
		}
	}
	fmt.Fprintf(&sb, "\n%d record(s), %d matched, %d rule(s)\n", len(r.Evaluations), r.matchedRecords(), r.Rules)
	return sb.String()
}

// Header implements cli.Table.
func (r *RulesReport) Header() []string {
	return []string{"line", "evaluation_id", "matched", "errors", "decision_id"}
}

// Rows implements cli.Table.
func (r *RulesReport) Rows() [][]string {
	rows := make([][]string, 0, len(r.Evaluations))
	for _, e := range r.Evaluations {
		rows = append(rows, []string{
			strconv.Itoa(e.Line),
			e.EvaluationID,
			strings.Join(e.Matched, ";"),
			strconv.Itoa(len(e.Errors)),
			e.DecisionID,
		})
	}
	return rows
}

func (r *RulesReport) matchedRecords() int {
	n := 0
	for _, e := range r.Evaluations {
		if len(e.Matched) > 0 {
			n++
		}
	}
	return n
}

func evaluateRules(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(rulesFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := rulesFlags.file
	if path == "" {
		path = cfg.Rules.Path
	}
	if path == "" {
		return fmt.Errorf("--file must be specified when rules.path is not configured")
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	rsCfg := cfg.Manager(logger, nil, nil)
	rsCfg.Path = path
	sources, err := ruleset.NewLoader(rsCfg.Loader).Load(path)
	if err != nil {
		return cli.NewCommandError("rules", err)
	}
	rs, err := ruleset.Compile(sources, rsCfg)
	if err != nil {
		return cli.NewCommandError("rules", err)
	}

	if rulesFlags.validate {
		fmt.Fprintf(stdout(cmd), "✓ %d rule(s) valid in %d file(s)\n", len(rs.Rules()), len(sources))
		return nil
	}

	var recorder *decision.Recorder
	if rulesFlags.recordDecisions {
		store, err := openStore(&cfg.Decisions)
		if err != nil {
			return cli.NewCommandError("rules", err)
		}
		defer store.Close()
		recorder = decision.NewRecorder(store, recorderConfig(&cfg.Decisions))
		// Closed before the store so queued decisions are written.
		defer recorder.Close()
	}

	in, closeInput, err := openInput(cmd, rulesFlags.records)
	if err != nil {
		return err
	}
	defer closeInput()

	var progress cli.ProgressReporter
	if rulesFlags.progress && rulesFlags.records != "-" && rulesFlags.records != "" {
		total, err := countLines(rulesFlags.records)
		if err != nil {
			return err
		}
		progress = cli.NewProgressReporter(os.Stderr, "records")
		progress.Start(total)
	}

	ctx := context.Background()
	report := &RulesReport{
		RuleSetVersion: rs.Version(),
		Rules:          len(rs.Rules()),
		Evaluations:    []RuleEvaluation{},
	}
	err = forEachLine(in, func(line int, data []byte) error {
		if !gjson.ValidBytes(data) {
			return fmt.Errorf("line %d: record is not valid JSON", line)
		}
		result, err := rs.EvaluateJSON(ctx, data)
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}

		eval := RuleEvaluation{
			Line:         line,
			EvaluationID: result.EvaluationID,
			Matched:      result.Matched,
			Errors:       result.Errors,
		}
		if recorder != nil {
			d, err := recorder.Record(ctx, result, data)
			if err != nil {
				logger.Warn("failed to record decision", "line", line, "error", err)
			} else if d != nil {
				eval.DecisionID = d.ID
			}
		}
		report.Evaluations = append(report.Evaluations, eval)

		if progress != nil {
			progress.Update(int64(len(report.Evaluations)))
		}
		return nil
	})
	if err != nil {
		if progress != nil {
			progress.Error(err)
		}
		return cli.NewCommandError("rules", err)
	}
	if progress != nil {
		progress.Finish()
	}

	if err := cli.NewFormatter(format).FormatTo(stdout(cmd), report); err != nil {
		return err
	}

	if report.matchedRecords() == 0 {
		return cli.ErrNoMatch
	}
	return nil
}

// countLines counts the non-blank lines of the file at path.
func countLines(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var n int64
	err = forEachLine(f, func(int, []byte) error {
		n++
		return nil
	})
	return n, err
}
