package rewrite

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgallion1/noteloop/internal/classify"
	"github.com/dgallion1/noteloop/internal/notes"
	"github.com/dgallion1/noteloop/internal/synth"
)

// fakeSynth returns canned results and records the requests it saw.
type fakeSynth struct {
	result synth.Result
	err    error
	mode   synth.Mode
	req    synth.Request
}

func (f *fakeSynth) Synthesize(_ context.Context, mode synth.Mode, req synth.Request) (synth.Result, error) {
	f.mode = mode
	f.req = req
	if f.err != nil {
		return synth.Result{}, f.err
	}
	res := f.result
	if res.Heading == "" && mode == synth.ModeUpdate {
		res.Heading = req.Heading
	}
	return res, nil
}

func newRewriter(fs *fakeSynth) *Rewriter {
	return New(fs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const multiDoc = `# Demo

Intro.

## Marketing

- Plan to use ads

## Engineering

- Ship the beta

## Budget

- $10k total
`

func TestApply_UpdateLeavesOtherSectionsByteIdentical(t *testing.T) {
	fs := &fakeSynth{result: synth.Result{Body: "- Target Instagram Reels with a $500 budget"}}
	out, err := newRewriter(fs).Apply(context.Background(), "Demo", multiDoc,
		classify.Decision{Kind: classify.KindUpdate, Heading: "Marketing"},
		"Let's target Instagram Reels with a $500 budget", "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Action != "update" || out.ChangedHeading != "Marketing" {
		t.Errorf("unexpected outcome: action=%q changed=%q", out.Action, out.ChangedHeading)
	}

	oldSections := notes.Index(multiDoc)
	newSections := notes.Index(out.Content)
	if len(newSections) != len(oldSections) {
		t.Fatalf("expected %d sections, got %d", len(oldSections), len(newSections))
	}
	for i, os := range oldSections {
		if os.Heading == "Marketing" || os.Heading == "Demo" {
			// Demo is the level-1 section whose span contains Marketing.
			continue
		}
		if got := newSections[i].Text(out.Content); got != os.Text(multiDoc) {
			t.Errorf("section %q changed:\nold: %q\nnew: %q", os.Heading, os.Text(multiDoc), got)
		}
	}
	if !strings.Contains(out.Content, "$500") {
		t.Error("expected new body in output")
	}
	if strings.Contains(out.Content, "Plan to use ads") {
		t.Error("expected old Marketing body to be replaced")
	}
}

func TestApply_UpdatePassesSectionBodyToSynthesizer(t *testing.T) {
	fs := &fakeSynth{result: synth.Result{Body: "- x"}}
	_, err := newRewriter(fs).Apply(context.Background(), "Demo", multiDoc,
		classify.Decision{Kind: classify.KindUpdate, Heading: "Engineering"}, "chunk", "ctx")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if fs.mode != synth.ModeUpdate {
		t.Errorf("expected update mode, got %s", fs.mode)
	}
	if !strings.Contains(fs.req.SectionBody, "Ship the beta") {
		t.Errorf("expected current body to be passed, got %q", fs.req.SectionBody)
	}
	if fs.req.Context != "ctx" {
		t.Errorf("expected transcript context to be passed, got %q", fs.req.Context)
	}
}

func TestApply_CreateAppendsAtEnd(t *testing.T) {
	fs := &fakeSynth{result: synth.Result{Heading: "Launch Party", Body: "- book a venue"}}
	out, err := newRewriter(fs).Apply(context.Background(), "Demo", multiDoc,
		classify.Decision{Kind: classify.KindCreate}, "book a venue", "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Action != "create" || out.ChangedHeading != "Launch Party" {
		t.Errorf("unexpected outcome: action=%q changed=%q", out.Action, out.ChangedHeading)
	}
	if !strings.HasSuffix(out.Content, "## Launch Party\n\n- book a venue\n") {
		t.Errorf("expected new section at end, got tail %q", out.Content[len(out.Content)-60:])
	}
	if !strings.HasPrefix(out.Content, multiDoc[:len(multiDoc)-1]) {
		t.Error("expected existing content to be preserved")
	}
}

func TestApply_UpdateMissingSectionFallsBackToCreate(t *testing.T) {
	fs := &fakeSynth{result: synth.Result{Heading: "Fresh Topic", Body: "- content"}}
	out, err := newRewriter(fs).Apply(context.Background(), "Demo", multiDoc,
		classify.Decision{Kind: classify.KindUpdate, Heading: "Vanished Section"}, "chunk", "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Action != "create" {
		t.Errorf("expected create fallback, got %s", out.Action)
	}
	if fs.mode != synth.ModeCreate {
		t.Errorf("expected create mode, got %s", fs.mode)
	}
}

func TestApply_SynthesisErrorAbandonsRewrite(t *testing.T) {
	fs := &fakeSynth{err: errors.New("model unavailable")}
	_, err := newRewriter(fs).Apply(context.Background(), "Demo", multiDoc,
		classify.Decision{Kind: classify.KindUpdate, Heading: "Marketing"}, "chunk", "")
	if err == nil {
		t.Fatal("expected error when synthesis fails")
	}
}

func TestApply_UncertainDecisionRejected(t *testing.T) {
	fs := &fakeSynth{result: synth.Result{Body: "- x"}}
	_, err := newRewriter(fs).Apply(context.Background(), "Demo", multiDoc,
		classify.Decision{Kind: classify.KindUncertain, Reason: "ambiguous"}, "chunk", "")
	if err == nil {
		t.Fatal("expected error for uncertain decision")
	}
}

func TestApply_CreateCollidingHeadingLocalizesByDiff(t *testing.T) {
	fs := &fakeSynth{result: synth.Result{Heading: "Budget", Body: "- more money"}}
	out, err := newRewriter(fs).Apply(context.Background(), "Demo", multiDoc,
		classify.Decision{Kind: classify.KindCreate}, "chunk", "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	// "Budget" already exists, so the index diff finds no new heading and the
	// viewer gets a non-localized change.
	if out.ChangedHeading != "" {
		t.Errorf("expected empty changed heading on collision, got %q", out.ChangedHeading)
	}
}

func TestApply_UpdateLastSectionKeepsSingleTrailingNewline(t *testing.T) {
	doc := "# Demo\n\n## Only\n\n- old\n"
	fs := &fakeSynth{result: synth.Result{Body: "- new"}}
	out, err := newRewriter(fs).Apply(context.Background(), "Demo", doc,
		classify.Decision{Kind: classify.KindUpdate, Heading: "Only"}, "chunk", "")
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if out.Content != "# Demo\n\n## Only\n\n- new\n" {
		t.Errorf("unexpected content %q", out.Content)
	}
}
