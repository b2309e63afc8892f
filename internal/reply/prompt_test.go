package reply

import (
	"strings"
	"testing"

	"github.com/wxsales/copilot/internal/knowledge"
	"github.com/wxsales/copilot/internal/profile"
)

func fullProfile() *profile.Profile {
	return &profile.Profile{
		ID:             1,
		RoleDefinition: "资深美妆销售顾问",
		BusinessLogic:  "引导客户了解产品并下单",
		ToneStyle:      "亲切自然",
		ReplyLength:    "两三句话",
		EmojiUsage:     "偶尔使用",
		KnowledgeBase: []profile.KnowledgeEntry{
			{Topic: "价格", Points: []string{"精华套装2980元"}},
		},
		ForbiddenWords: []string{"最便宜", "包治"},
	}
}

func TestBuildPromptDeterministic(t *testing.T) {
	in := PromptInput{
		Profile: fullProfile(),
		Stage:   StageDiscovery,
		Intent:  IntentResult{Intent: IntentPriceInquiry, Confidence: 0.6},
	}
	first := BuildPrompt(in)
	for i := 0; i < 5; i++ {
		if got := BuildPrompt(in); got != first {
			t.Fatal("prompt assembly is not deterministic")
		}
	}
}

func TestBuildPromptOmitsEmptySections(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Profile: &profile.Profile{RoleDefinition: "销售顾问"},
	})
	if strings.Contains(prompt, "【禁用词】") {
		t.Fatal("empty forbidden words section must be omitted")
	}
	if strings.Contains(prompt, "【优秀回复示例】") {
		t.Fatal("empty golden section must be omitted")
	}
	if strings.Contains(prompt, "【参考资料】") {
		t.Fatal("empty knowledge section must be omitted")
	}
	if !strings.Contains(prompt, "【角色设定】") {
		t.Fatal("role section missing")
	}
}

func TestBuildPromptRetrievedKnowledgeRanksFirst(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Profile: fullProfile(),
		Knowledge: []knowledge.Result{
			{Content: "新品买一送一", Source: "活动页.pdf", Score: 0.9},
		},
	})
	retrievedAt := strings.Index(prompt, "[相关资料: 活动页.pdf] 新品买一送一")
	configuredAt := strings.Index(prompt, "精华套装2980元")
	if retrievedAt == -1 || configuredAt == -1 {
		t.Fatalf("knowledge entries missing from prompt:\n%s", prompt)
	}
	if retrievedAt > configuredAt {
		t.Fatal("retrieved knowledge must rank above the configured base")
	}
}

func TestBuildPromptGoldenExamples(t *testing.T) {
	prompt := BuildPrompt(PromptInput{
		Profile: fullProfile(),
		Golden: []GoldenReply{
			{Question: "太贵了", Reply: "一分钱一分货，这套能用三个月"},
		},
	})
	if !strings.Contains(prompt, "Q: 太贵了\nA: 一分钱一分货，这套能用三个月") {
		t.Fatalf("golden example missing:\n%s", prompt)
	}
}

func TestBuildPromptForbiddenWords(t *testing.T) {
	prompt := BuildPrompt(PromptInput{Profile: fullProfile()})
	if !strings.Contains(prompt, "最便宜、包治") {
		t.Fatalf("forbidden words missing:\n%s", prompt)
	}
}

func TestVariantSuffixesDistinct(t *testing.T) {
	seen := map[string]Style{}
	for _, style := range Styles {
		suffix := VariantSuffix(style)
		if suffix == "" {
			t.Fatalf("empty suffix for %s", style)
		}
		if other, dup := seen[suffix]; dup {
			t.Fatalf("styles %s and %s share a suffix", style, other)
		}
		seen[suffix] = style
	}
}

func TestStyleTemperatures(t *testing.T) {
	if StyleAggressive.Temperature() != 0.8 {
		t.Fatal("aggressive temperature")
	}
	if StyleConservative.Temperature() != 0.3 {
		t.Fatal("conservative temperature")
	}
	if StyleProfessional.Temperature() != 0.5 {
		t.Fatal("professional temperature")
	}
}
