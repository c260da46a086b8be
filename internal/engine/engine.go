package engine

import (
	"fmt"
	"strings"

	"github.com/wardenhq/warden/internal/audit"
	"github.com/wardenhq/warden/internal/config"
	"github.com/wardenhq/warden/internal/guard"
	"github.com/wardenhq/warden/internal/hooks"
	"github.com/wardenhq/warden/internal/logger"
)

// guardRef pairs a resolved guard function with the ID it came from, so
// decisions can name the guard that produced them.
type guardRef struct {
	id guard.ID
	fn guard.Func
}

// compiledMatcher is one config matcher with its guard list resolved.
type compiledMatcher struct {
	name    string
	pattern string
	guards  []guardRef
}

// Engine evaluates hook events against the configured policy. It is built
// once per process from config and a guard registry; evaluation is a single
// deterministic pass with no timeouts and no re-entry.
type Engine struct {
	cfg      *config.Config
	matcher  *Matcher
	recorder *audit.Recorder
	byEvent  map[hooks.EventType][]compiledMatcher
}

// New builds an Engine, resolving every guard ID referenced by cfg. A
// reference to an unknown guard fails the build rather than surfacing at
// evaluation time.
func New(cfg *config.Config, registry *guard.Registry, recorder *audit.Recorder) (*Engine, error) {
	e := &Engine{
		cfg:      cfg,
		matcher:  NewMatcher(),
		recorder: recorder,
		byEvent:  make(map[hooks.EventType][]compiledMatcher),
	}

	for _, eventType := range hooks.ValidEventTypes {
		matchers := cfg.Hooks.ForEvent(eventType)
		compiled := make([]compiledMatcher, 0, len(matchers))
		for _, m := range matchers {
			cm := compiledMatcher{name: m.Name, pattern: m.Pattern}
			for _, id := range m.Guards {
				fn, err := registry.Resolve(id)
				if err != nil {
					return nil, fmt.Errorf("matcher %q: %w", m.Name, err)
				}
				cm.guards = append(cm.guards, guardRef{id: id, fn: fn})
			}
			compiled = append(compiled, cm)
		}
		e.byEvent[eventType] = compiled
	}

	return e, nil
}

// Evaluate runs the policy for one event. The raw payload is the JSON the
// driver supplied on stdin. The first deny from any guard is final; modify
// results replace the working tool input for later guards; if every guard
// continues, the result is continue (or modify, when a modified input
// survived to the end).
func (e *Engine) Evaluate(eventType hooks.EventType, ctx *hooks.Context, raw []byte) (*hooks.Result, error) {
	ev, err := hooks.Parse(eventType, raw)
	if err != nil {
		return nil, err
	}

	// The payload carries the session id; surface it to guards through the
	// context unless the caller already set one.
	if ctx.SessionID == "" {
		ctx.SessionID = ev.SessionID
	}

	logger.Debug().
		Str("event", string(eventType)).
		Str("tool", ev.ToolName).
		Msg("Evaluating hook event")

	if eventType.ToolScoped() {
		if res := e.checkAllowlist(ev); res != nil {
			e.record(ev, res, "allowlist")
			return res, nil
		}
	}

	var (
		injected      []string
		modifiedInput map[string]any
		modifyReason  string
	)

	for _, cm := range e.byEvent[eventType] {
		if eventType.ToolScoped() {
			matched, err := e.matcher.MatchToolName(cm.pattern, ev.ToolName)
			if err != nil {
				logger.Warn().Err(err).Str("matcher", cm.name).Msg("Skipping matcher with invalid pattern")
				continue
			}
			if !matched {
				continue
			}
		}

		for _, g := range cm.guards {
			res := g.fn(ctx, ev)
			if res == nil {
				continue
			}

			switch res.Action {
			case hooks.ActionDeny:
				logger.Info().
					Str("guard", string(g.id)).
					Str("matcher", cm.name).
					Str("reason", res.Reason).
					Msg("Guard denied tool use")
				e.record(ev, res, string(g.id))
				return res, nil

			case hooks.ActionAllow:
				e.record(ev, res, string(g.id))
				return res, nil

			case hooks.ActionModify:
				if res.ModifiedInput != nil {
					ev.ToolInput = res.ModifiedInput
					modifiedInput = res.ModifiedInput
					modifyReason = res.Reason
					logger.Debug().
						Str("guard", string(g.id)).
						Msg("Guard modified tool input")
				}
				if res.InjectMessage != "" {
					injected = append(injected, res.InjectMessage)
				}

			default:
				if res.InjectMessage != "" {
					injected = append(injected, res.InjectMessage)
				}
			}
		}
	}

	final := hooks.Continue()
	if modifiedInput != nil {
		final = hooks.Modify(modifyReason, modifiedInput)
	}
	if len(injected) > 0 {
		final.InjectMessage = strings.Join(injected, "\n")
	}

	e.record(ev, final, "")
	return final, nil
}

// checkAllowlist returns an allow result when an allowlist rule matches the
// event, or nil to proceed with guard evaluation.
func (e *Engine) checkAllowlist(ev *hooks.Event) *hooks.Result {
	for _, rule := range e.cfg.Allowlist {
		matched, err := e.matcher.MatchToolName(rule.Pattern, ev.ToolName)
		if err != nil {
			logger.Warn().Err(err).Str("rule", rule.Name).Msg("Skipping allowlist rule with invalid pattern")
			continue
		}
		if !matched {
			continue
		}

		if len(rule.InputPatterns) > 0 {
			inputMatched, err := e.matcher.MatchInputFields(rule.InputPatterns, ev.ToolInput)
			if err != nil {
				logger.Warn().Err(err).Str("rule", rule.Name).Msg("Skipping allowlist rule with invalid input pattern")
				continue
			}
			if !inputMatched {
				continue
			}
		}

		logger.Debug().Str("rule", rule.Name).Msg("Allowlist rule matched")
		return hooks.Allow("Allowlisted: " + rule.Name)
	}

	return nil
}

// record mirrors the final decision into the audit store. Failures there
// never affect the returned result.
func (e *Engine) record(ev *hooks.Event, res *hooks.Result, guardName string) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordDecision(&audit.Decision{
		SessionID: ev.SessionID,
		EventType: string(ev.Type),
		ToolName:  ev.ToolName,
		ToolInput: ev.ToolInput,
		Action:    string(res.Action),
		Reason:    res.Reason,
		Guard:     guardName,
		Timestamp: ev.Timestamp,
	})
}
