package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
	"github.com/spf13/cobra"

	"querydict-hq/querydict/pkg/cli"
	"querydict-hq/querydict/pkg/decision"
	"querydict-hq/querydict/pkg/decision/retention"
)

var decisionsFlags struct {
	since   string
	until   string
	version string
	rule    string
	matched string
	limit   int
	offset  int
	sort    string
	format  string
}

var decisionsCmd = &cobra.Command{
	Use:   "decisions",
	Short: "Inspect and prune recorded decisions",
	Long: `Inspect and prune the decision store configured in the decisions section.

Examples:
  # Decisions from the last day in which the "england" rule matched
  querydict decisions list --since 24h --rule england

  # Export unmatched decisions as CSV
  querydict decisions list --matched false --format csv --limit 1000

  # Apply the retention policy now
  querydict decisions prune`,
}

var decisionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded decisions, newest first",
	RunE:  listDecisions,
}

var decisionsPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete decisions outside the retention policy",
	RunE:  pruneDecisions,
}

func init() {
	rootCmd.AddCommand(decisionsCmd)
	decisionsCmd.AddCommand(decisionsListCmd)
	decisionsCmd.AddCommand(decisionsPruneCmd)

	f := decisionsListCmd.Flags()
	f.StringVar(&decisionsFlags.since, "since", "", "start time, RFC 3339 or a duration ago such as 24h")
	f.StringVar(&decisionsFlags.until, "until", "", "end time, RFC 3339 or a duration ago")
	f.StringVar(&decisionsFlags.version, "ruleset-version", "", "only decisions from this rule set version")
	f.StringVar(&decisionsFlags.rule, "rule", "", "only decisions in which this rule matched")
	f.StringVar(&decisionsFlags.matched, "matched", "", "only matched (true) or unmatched (false) decisions")
	f.IntVar(&decisionsFlags.limit, "limit", decision.DefaultQueryLimit, "maximum number of decisions")
	f.IntVar(&decisionsFlags.offset, "offset", 0, "number of decisions to skip")
	f.StringVar(&decisionsFlags.sort, "sort", "desc", "sort order by time: asc, desc")
	f.StringVar(&decisionsFlags.format, "format", "text", "output format: text, json, csv")
}

// DecisionList is the output of decisions list.
type DecisionList struct {
	Decisions []*decision.Decision `json:"decisions"`
	Total     int64                `json:"total"`
}

// String renders the list as text.
func (l *DecisionList) String() string {
	var sb strings.Builder
	for _, d := range l.Decisions {
		matched := "-"
		if d.Matched() {
			matched = strings.Join(d.MatchedRules, ", ")
		}
		fmt.Fprintf(&sb, "%s  %s  %s  %s\n", d.Timestamp.Format(time.RFC3339), d.ID, d.RuleSetVersion, matched)
	}
	fmt.Fprintf(&sb, "\nShowing %d of %d decision(s)\n", len(l.Decisions), l.Total)
	return sb.String()
}

// Header implements cli.Table.
func (l *DecisionList) Header() []string {
	return []string{"id", "timestamp", "evaluation_id", "ruleset_version", "record_hash", "matched_rules", "errors", "duration_ns"}
}

// Rows implements cli.Table.
func (l *DecisionList) Rows() [][]string {
	rows := make([][]string, 0, len(l.Decisions))
	for _, d := range l.Decisions {
		rows = append(rows, []string{
			d.ID,
			d.Timestamp.Format(time.RFC3339Nano),
			d.EvaluationID,
			d.RuleSetVersion,
			d.RecordHash,
			strings.Join(d.MatchedRules, ";"),
			strconv.Itoa(len(d.Errors)),
			strconv.FormatInt(int64(d.Duration), 10),
		})
	}
	return rows
}

func listDecisions(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseFormat(decisionsFlags.format)
	if err != nil {
		return cli.NewConfigError("format", err.Error())
	}
	q, err := decisionQuery(time.Now())
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(&cfg.Decisions)
	if err != nil {
		return cli.NewCommandError("decisions list", err)
	}
	defer store.Close()

	ctx := context.Background()
	decisions, err := store.Query(ctx, q)
	if err != nil {
		return cli.NewCommandError("decisions list", err)
	}
	total, err := store.Count(ctx, q)
	if err != nil {
		return cli.NewCommandError("decisions list", err)
	}
	if decisions == nil {
		decisions = []*decision.Decision{}
	}

	return cli.NewFormatter(format).FormatTo(stdout(cmd), &DecisionList{Decisions: decisions, Total: total})
}

func pruneDecisions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(&cfg.Decisions)
	if err != nil {
		return cli.NewCommandError("decisions prune", err)
	}
	defer store.Close()

	pruner := retention.NewPruner(store, retentionConfig(&cfg.Decisions), nil)
	deleted, err := pruner.Prune(context.Background())
	if err != nil {
		return cli.NewCommandError("decisions prune", err)
	}

	fmt.Fprintf(stdout(cmd), "✓ Pruned %d decision(s)\n", deleted)
	return nil
}

// decisionQuery builds the store query from the list flags. Relative times
// are subtracted from now.
func decisionQuery(now time.Time) (*decision.Query, error) {
	q := &decision.Query{
		RuleSetVersion: decisionsFlags.version,
		MatchedRule:    decisionsFlags.rule,
		Limit:          decisionsFlags.limit,
		Offset:         decisionsFlags.offset,
	}

	switch s := strings.ToLower(decisionsFlags.sort); s {
	case "asc", "desc":
		q.SortOrder = s
	default:
		return nil, cli.NewConfigError("sort", fmt.Sprintf("invalid sort order %q (valid: asc, desc)", decisionsFlags.sort))
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, cli.NewConfigError("limit", "limit and offset must not be negative")
	}

	if decisionsFlags.since != "" {
		t, err := parseTimeFlag(decisionsFlags.since, now)
		if err != nil {
			return nil, cli.NewConfigError("since", err.Error())
		}
		q.StartTime = &t
	}
	if decisionsFlags.until != "" {
		t, err := parseTimeFlag(decisionsFlags.until, now)
		if err != nil {
			return nil, cli.NewConfigError("until", err.Error())
		}
		q.EndTime = &t
	}
	if decisionsFlags.matched != "" {
		b, err := cast.ToBoolE(decisionsFlags.matched)
		if err != nil {
			return nil, cli.NewConfigError("matched", err.Error())
		}
		q.Matched = &b
	}
	return q, nil
}

// parseTimeFlag accepts an absolute time or a duration before now.
func parseTimeFlag(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(-d), nil
	}
	t, err := cast.ToTimeE(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q: expected RFC 3339 or a duration such as 24h", s)
	}
	return t, nil
}
