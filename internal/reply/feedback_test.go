package reply

import (
	"context"
	"testing"
)

func TestGoldenDedupIncrementsUsage(t *testing.T) {
	golden := newFakeGoldenStore()
	learner := NewFeedbackLearner(newFakeSuggestionStore(), golden, newTestLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		err := learner.RecordFeedback(ctx, "客户A", 1, "太贵了", "原始回复", "一分钱一分货，这套能用三个月", ActionAccepted)
		if err != nil {
			t.Fatalf("record feedback: %v", err)
		}
	}

	if len(golden.counts) != 1 {
		t.Fatalf("expected a single golden row, got %d", len(golden.counts))
	}
	if count := golden.counts["太贵了|一分钱一分货，这套能用三个月"]; count != 2 {
		t.Fatalf("expected usage count 2, got %d", count)
	}
}

func TestRejectedFeedbackNotPromoted(t *testing.T) {
	golden := newFakeGoldenStore()
	learner := NewFeedbackLearner(newFakeSuggestionStore(), golden, newTestLogger())

	err := learner.RecordFeedback(context.Background(), "客户A", 1, "太贵了", "原始", "很长的一条最终回复", ActionRejected)
	if err != nil {
		t.Fatalf("record feedback: %v", err)
	}
	if len(golden.counts) != 0 {
		t.Fatal("rejected feedback must not create golden replies")
	}
}

func TestTrivialFinalTextNotPromoted(t *testing.T) {
	golden := newFakeGoldenStore()
	learner := NewFeedbackLearner(newFakeSuggestionStore(), golden, newTestLogger())

	err := learner.RecordFeedback(context.Background(), "客户A", 1, "在吗", "原始", "好的", ActionAccepted)
	if err != nil {
		t.Fatalf("record feedback: %v", err)
	}
	if len(golden.counts) != 0 {
		t.Fatal("trivial replies must not enter the golden pool")
	}
}

func TestRecordSelectionAndModification(t *testing.T) {
	sugg := newFakeSuggestionStore()
	learner := NewFeedbackLearner(sugg, newFakeGoldenStore(), newTestLogger())
	ctx := context.Background()

	if err := learner.RecordSelection(ctx, "sg-1", string(StyleConservative)); err != nil {
		t.Fatalf("record selection: %v", err)
	}
	if sugg.selected["sg-1"] != string(StyleConservative) {
		t.Fatalf("selection not stored: %+v", sugg.selected)
	}

	if err := learner.RecordModification(ctx, "sg-1", "原回复", "改过的回复"); err != nil {
		t.Fatalf("record modification: %v", err)
	}
	if sugg.edited["sg-1"] != "改过的回复" {
		t.Fatalf("edit not stored: %+v", sugg.edited)
	}
}

func TestAnalyzeModification(t *testing.T) {
	if got := AnalyzeModification("短回复", "这是一条完全重写的回复，内容和原来完全不一样，长度也差了很多"); got != "content" {
		t.Fatalf("large rewrite: got %s", got)
	}
	if got := AnalyzeModification("你看下这个", "您看下这个呢"); got != "tone" {
		t.Fatalf("politeness flip: got %s", got)
	}
	if got := AnalyzeModification("明天发货哈", "明天就发货哈"); got != "minor" {
		t.Fatalf("small touch-up: got %s", got)
	}
}
