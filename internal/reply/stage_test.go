package reply

import "testing"

func TestClassifyStageByKeywords(t *testing.T) {
	cases := []struct {
		message string
		want    Stage
	}{
		{"怎么买 可以下单吗", StageClosing},
		{"太贵了 我再看看", StageObjection},
		{"想退货 没收到东西", StageAfterSale},
		{"这个成分和功效介绍下", StagePresentation},
		{"我皮肤有点问题想改善", StageDiscovery},
		{"你好 请问是客服吗", StageGreeting},
	}
	for _, tc := range cases {
		if got := ClassifyStage(tc.message, 10); got != tc.want {
			t.Errorf("ClassifyStage(%q) = %s, want %s", tc.message, got, tc.want)
		}
	}
}

func TestClassifyStageCountFallback(t *testing.T) {
	// No stage keywords: fall back to conversation length.
	if got := ClassifyStage("嗯嗯", 1); got != StageGreeting {
		t.Fatalf("count 1: got %s", got)
	}
	if got := ClassifyStage("嗯嗯", 4); got != StageDiscovery {
		t.Fatalf("count 4: got %s", got)
	}
	if got := ClassifyStage("嗯嗯", 9); got != StagePresentation {
		t.Fatalf("count 9: got %s", got)
	}
}

func TestGuidanceCoversAllStages(t *testing.T) {
	stages := []Stage{StageGreeting, StageDiscovery, StagePresentation, StageObjection, StageClosing, StageAfterSale}
	for _, s := range stages {
		g := GuidanceFor(s)
		if g.Goal == "" || g.Tips == "" || len(g.NextActions) == 0 {
			t.Errorf("stage %s has incomplete guidance: %+v", s, g)
		}
	}
	// Unknown stages get a sane default instead of empty guidance.
	if g := GuidanceFor(Stage("bogus")); g.Goal == "" {
		t.Fatal("expected default guidance for unknown stage")
	}
}
