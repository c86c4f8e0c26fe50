package pipeline

import (
	"context"
	"errors"
	"strconv"

	"mermaidlive/internal/diagram"
	"mermaidlive/internal/diagtype"
	"mermaidlive/internal/engine"
	"mermaidlive/internal/observ"
	"mermaidlive/internal/repair"
)

// Attempter renders one candidate text.
type Attempter interface {
	Attempt(ctx context.Context, text string, theme diagram.Theme) (diagram.Artifact, error)
}

// Cache maps input identities to successful outcomes.
type Cache interface {
	Get(id diagram.Identity) (diagram.Outcome, bool)
	Put(id diagram.Identity, o diagram.Outcome)
}

// Step is consulted before every observable transition. Returning false
// abandons the run without further side effects.
type Step func(next Phase) bool

// Always is the Step for callers that own their input exclusively.
func Always(Phase) bool { return true }

// Run validates in, renders the original text and, when that fails, the
// repaired text. ok is false when step vetoed a transition or ctx was
// cancelled mid-way; the returned outcome is then meaningless.
func Run(ctx context.Context, att Attempter, cache Cache, in diagram.Input, step Step) (out diagram.Outcome, ok bool) {
	timer := observ.NewTimer()
	text := in.Trimmed()
	finish := func(o diagram.Outcome) (diagram.Outcome, bool) {
		o.Timing = timer.Report()
		return o, true
	}

	if text == "" {
		return finish(diagram.Failed(diagram.EmptyInput))
	}

	if !step(PhaseValidating) {
		return diagram.Outcome{}, false
	}
	idx := timer.Begin("validate")
	kw, recognized := diagtype.Detect(text)
	timer.End(idx, string(kw))
	if !recognized {
		return finish(withRepairCandidate(diagram.Failed(diagram.InvalidType), text, false))
	}

	if cache != nil {
		idx = timer.Begin("cache")
		cached, hit := cache.Get(in.Identity())
		timer.End(idx, strconv.FormatBool(hit))
		if hit && cached.Status == diagram.StatusSuccess {
			cached.Keyword = string(kw)
			return finish(cached)
		}
	}

	if !step(PhaseRenderingOriginal) {
		return diagram.Outcome{}, false
	}
	idx = timer.Begin("render-original")
	art, err := att.Attempt(ctx, text, in.Theme)
	if err == nil {
		timer.End(idx, "ok")
		o := diagram.Succeeded(art, false, text)
		o.Keyword = string(kw)
		return finish(o)
	}
	timer.End(idx, "error")
	if ctx.Err() != nil {
		return diagram.Outcome{}, false
	}
	if errors.Is(err, engine.ErrUnusableArtifact) {
		o := withRepairCandidate(diagram.Failed(diagram.EngineUnexpected), text, false)
		o.Keyword = string(kw)
		o.EngineMessage = engine.Detail(err)
		return finish(o)
	}

	if !step(PhaseRenderingRepaired) {
		return diagram.Outcome{}, false
	}
	idx = timer.Begin("repair")
	fixed := repair.Apply(text)
	timer.End(idx, strconv.Itoa(len(fixed.Applied))+" rules")
	if !fixed.Changed() {
		o := diagram.Failed(diagram.UnrepairableSyntax)
		o.Keyword = string(kw)
		o.EngineMessage = engine.Detail(err)
		return finish(o)
	}

	idx = timer.Begin("render-repaired")
	art, rerr := att.Attempt(ctx, fixed.Output, in.Theme)
	if rerr == nil {
		timer.End(idx, "ok")
		o := diagram.Succeeded(art, true, fixed.Output)
		o.Keyword = string(kw)
		o.RepairRules = ruleIDs(fixed)
		return finish(o)
	}
	timer.End(idx, "error")
	if ctx.Err() != nil {
		return diagram.Outcome{}, false
	}

	reason := diagram.RepairAttemptFailed
	if errors.Is(rerr, engine.ErrUnusableArtifact) {
		reason = diagram.EngineUnexpected
	}
	o := diagram.Failed(reason).WithRepair(fixed.Output, true)
	o.Keyword = string(kw)
	o.RepairRules = ruleIDs(fixed)
	o.EngineMessage = engine.Detail(rerr)
	return finish(o)
}

// Remember stores a successful outcome for in. Failures are never cached.
func Remember(cache Cache, in diagram.Input, o diagram.Outcome) {
	if cache == nil || o.Status != diagram.StatusSuccess {
		return
	}
	cache.Put(in.Identity(), o)
}

func withRepairCandidate(o diagram.Outcome, text string, tried bool) diagram.Outcome {
	if fixed := repair.Repair(text); fixed != text {
		return o.WithRepair(fixed, tried)
	}
	return o
}

func ruleIDs(res repair.Result) []string {
	ids := make([]string, len(res.Applied))
	for i, a := range res.Applied {
		ids[i] = a.ID
	}
	return ids
}
