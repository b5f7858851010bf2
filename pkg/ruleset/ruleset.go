package ruleset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"querydict-hq/querydict/pkg/query/engine"
	qerrors "querydict-hq/querydict/pkg/query/errors"
)

// Observer receives rule evaluation and reload outcomes.
// Implementations must be safe for concurrent use.
type Observer interface {
	ObserveRule(rule string, matched bool, err error)
	ObserveReload(err error)
}

// Config contains configuration shared by compilation and the Manager.
type Config struct {
	// Path is the rule file or directory loaded by the Manager.
	Path string

	// Defaults are the engine settings applied beneath each file's defaults.
	Defaults RuleSettings

	// Loader configures file reading. Default: DefaultLoaderConfig().
	Loader *LoaderConfig

	// DebounceInterval is the quiet period before a watched change is
	// reloaded. Default: 100ms.
	DebounceInterval time.Duration

	// Logger receives lifecycle and evaluation logs. Default: slog.Default().
	Logger *slog.Logger

	// Parser parses every rule query. Default: the engine's default parser.
	Parser engine.Parser

	// EngineObserver is passed to every compiled engine. Optional.
	EngineObserver engine.Observer

	// Observer is notified of rule outcomes and reloads. Optional.
	Observer Observer
}

// DefaultConfig returns the default rule set configuration.
func DefaultConfig() *Config {
	return &Config{
		Loader:           DefaultLoaderConfig(),
		DebounceInterval: 100 * time.Millisecond,
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// RuleSet is an immutable, compiled collection of rules.
type RuleSet struct {
	version  string
	mode     Mode
	rules    []*Rule
	loadedAt time.Time

	logger   *slog.Logger
	observer Observer
}

// Compile validates sources and compiles every rule into an engine. All
// problems across all sources are reported together.
func Compile(sources []*Source, cfg *Config) (*RuleSet, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	rs := &RuleSet{
		version:  uuid.NewString(),
		mode:     ModeAll,
		loadedAt: time.Now(),
		logger:   cfg.logger().With("component", "ruleset"),
		observer: cfg.Observer,
	}

	errs := &MultiError{}
	seen := make(map[string]string)
	modeSource := ""

	for _, src := range sources {
		f := &src.File

		if f.Version != "" && f.Version != FormatVersion {
			errs.Errors = append(errs.Errors, &ValidationError{
				FilePath: src.Path,
				Field:    "version",
				Message:  fmt.Sprintf("unsupported version %q, expected %q", f.Version, FormatVersion),
			})
		}

		if f.Mode != "" {
			switch {
			case !f.Mode.IsValid():
				errs.Errors = append(errs.Errors, &ValidationError{
					FilePath: src.Path,
					Field:    "mode",
					Message:  fmt.Sprintf("unknown mode %q, expected %q or %q", f.Mode, ModeAll, ModeFirst),
				})
			case modeSource != "" && f.Mode != rs.mode:
				errs.Errors = append(errs.Errors, &ValidationError{
					FilePath: src.Path,
					Field:    "mode",
					Message:  fmt.Sprintf("mode %q conflicts with mode %q set in %q", f.Mode, rs.mode, modeSource),
				})
			default:
				rs.mode = f.Mode
				modeSource = src.Path
			}
		}

		defaults := f.Defaults.merge(cfg.Defaults)

		for i := range f.Rules {
			spec := &f.Rules[i]
			label := spec.Name
			if label == "" {
				label = fmt.Sprintf("rules[%d]", i)
			}

			fail := func(field, message string, cause error) {
				errs.Errors = append(errs.Errors, &ValidationError{
					FilePath: src.Path,
					Line:     src.ruleLine(i),
					Rule:     label,
					Field:    field,
					Message:  message,
					Cause:    cause,
				})
			}

			if spec.Name == "" {
				fail("name", "rule name is required", nil)
				continue
			}
			if prev, ok := seen[spec.Name]; ok {
				fail("name", fmt.Sprintf("duplicate rule name, first defined in %q", prev), nil)
				continue
			}
			seen[spec.Name] = src.Path

			rule, err := compileRule(spec, spec.RuleSettings.merge(defaults), cfg)
			if err != nil {
				fail("query", "invalid query", err)
				continue
			}
			rule.Source = src.Path
			rs.rules = append(rs.rules, rule)
		}
	}

	if err := errs.errorOrNil(); err != nil {
		return nil, err
	}
	return rs, nil
}

func compileRule(spec *RuleSpec, settings RuleSettings, cfg *Config) (*Rule, error) {
	engCfg := engine.DefaultConfig().
		WithLogger(cfg.logger()).
		WithObserver(cfg.EngineObserver)
	if cfg.Parser != nil {
		engCfg.WithParser(cfg.Parser)
	}

	if settings.ShortCircuit != nil {
		engCfg.WithShortCircuit(*settings.ShortCircuit)
	}
	if settings.AmbiguousResolution != nil {
		res, err := engine.ParseAmbiguousResolution(*settings.AmbiguousResolution)
		if err != nil {
			return nil, err
		}
		engCfg.WithAmbiguousResolution(res)
	}
	if settings.AllowBareField != nil {
		engCfg.WithAllowBareField(*settings.AllowBareField)
	}
	if settings.MaxDepth != nil {
		engCfg.WithMaxDepth(*settings.MaxDepth)
	}

	eng, err := engine.New(spec.Query, engCfg)
	if err != nil {
		return nil, err
	}

	rule := &Rule{
		Name:        spec.Name,
		Description: spec.Description,
		Query:       spec.Query,
		Tags:        spec.Tags,
		Enabled:     spec.IsEnabled(),
		engine:      eng,
	}
	if settings.DefaultField != nil {
		rule.DefaultField = *settings.DefaultField
	}
	return rule, nil
}

// Version returns the identifier assigned when the rule set was compiled.
func (rs *RuleSet) Version() string {
	return rs.version
}

// Mode returns the evaluation mode.
func (rs *RuleSet) Mode() Mode {
	return rs.mode
}

// LoadedAt returns when the rule set was compiled.
func (rs *RuleSet) LoadedAt() time.Time {
	return rs.loadedAt
}

// Rules returns the rules in file order, including disabled ones.
func (rs *RuleSet) Rules() []*Rule {
	out := make([]*Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Rule returns the rule with the given name.
func (rs *RuleSet) Rule(name string) (*Rule, bool) {
	for _, r := range rs.rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// Evaluate matches record against every enabled rule. A rule that fails to
// evaluate is reported in Result.Errors and counts as not matched. The only
// error returned is the context's.
func (rs *RuleSet) Evaluate(ctx context.Context, record interface{}) (*Result, error) {
	return rs.evaluate(ctx, func(r *Rule, opts []engine.MatchOption) (bool, error) {
		return r.engine.Match(record, opts...)
	})
}

// EvaluateJSON is Evaluate for a raw JSON document.
func (rs *RuleSet) EvaluateJSON(ctx context.Context, data []byte) (*Result, error) {
	return rs.evaluate(ctx, func(r *Rule, opts []engine.MatchOption) (bool, error) {
		return r.engine.MatchJSON(data, opts...)
	})
}

func (rs *RuleSet) evaluate(ctx context.Context, match func(*Rule, []engine.MatchOption) (bool, error)) (*Result, error) {
	start := time.Now()
	result := &Result{
		EvaluationID:   uuid.NewString(),
		RuleSetVersion: rs.version,
		Matched:        []string{},
		Timestamp:      start,
	}

	for _, rule := range rs.rules {
		if !rule.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var opts []engine.MatchOption
		if rule.DefaultField != "" {
			opts = append(opts, engine.WithDefaultField(rule.DefaultField))
		}

		matched, err := match(rule, opts)
		result.Evaluated++
		if rs.observer != nil {
			rs.observer.ObserveRule(rule.Name, matched, err)
		}

		if err != nil {
			result.Errors = append(result.Errors, ruleError(rule.Name, err))
			rs.logger.Debug("rule evaluation failed", "rule", rule.Name, "error", err)
			continue
		}
		if !matched {
			continue
		}

		result.Matched = append(result.Matched, rule.Name)
		if rs.mode == ModeFirst {
			break
		}
	}

	result.Duration = time.Since(start)
	rs.logger.Debug("rule set evaluated",
		"evaluation_id", result.EvaluationID,
		"version", rs.version,
		"matched", result.Matched,
		"errors", len(result.Errors),
		"duration", result.Duration,
	)

	return result, nil
}

func ruleError(name string, err error) RuleError {
	re := RuleError{Rule: name, Type: string(qerrors.ErrorTypeInternal), Message: err.Error(), Err: err}

	var qe *qerrors.Error
	if errors.As(err, &qe) {
		re.Type = string(qe.Type)
		re.Message = qe.Message
	}
	return re
}
