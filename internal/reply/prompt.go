package reply

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wxsales/copilot/internal/knowledge"
	"github.com/wxsales/copilot/internal/profile"
)

// PromptInput is everything the assembler composes into one system
// prompt.
type PromptInput struct {
	Profile   *profile.Profile
	Memory    *CustomerMemory
	Stage     Stage
	Intent    IntentResult
	Knowledge []knowledge.Result
	Golden    []GoldenReply
}

// BuildPrompt deterministically composes the base system prompt. A
// section with no source data is omitted entirely, never emitted as an
// empty heading. Retrieved knowledge and golden examples rank above the
// configured knowledge base.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	if in.Profile != nil && in.Profile.RoleDefinition != "" {
		section(&b, "角色设定", in.Profile.RoleDefinition)
	}
	if in.Profile != nil && in.Profile.BusinessLogic != "" {
		section(&b, "业务目标", in.Profile.BusinessLogic)
	}

	if ctx := situationSection(in); ctx != "" {
		section(&b, "当前情况", ctx)
	}

	if in.Profile != nil {
		if tone := toneSection(in.Profile); tone != "" {
			section(&b, "语气要求", tone)
		}
	}

	if kb := knowledgeSection(in); kb != "" {
		section(&b, "参考资料", kb)
	}

	if in.Profile != nil && len(in.Profile.ForbiddenWords) > 0 {
		section(&b, "禁用词", "回复中绝对不能出现以下词语："+strings.Join(in.Profile.ForbiddenWords, "、"))
	}

	if strategy := strategySection(in); strategy != "" {
		section(&b, "应对策略", strategy)
	}

	if examples := goldenSection(in.Golden); examples != "" {
		section(&b, "优秀回复示例", examples)
	}

	section(&b, "输出要求", "直接输出回复内容，不要解释，不要带任何前缀。回复要像真人销售在聊天软件里打字，一条消息说完。")

	return strings.TrimSpace(b.String())
}

// VariantSuffix returns the style-specific instruction appended to the
// base prompt.
func VariantSuffix(style Style) string {
	switch style {
	case StyleAggressive:
		return "\n\n【回复风格】语气主动热情，适度制造紧迫感，明确引导客户现在下单。"
	case StyleConservative:
		return "\n\n【回复风格】语气温和克制，不给客户压力，以解答疑问和建立信任为主。"
	default:
		return "\n\n【回复风格】语气专业严谨，用事实、数据和专业知识说话，体现顾问价值。"
	}
}

func section(b *strings.Builder, title, body string) {
	fmt.Fprintf(b, "【%s】\n%s\n\n", title, body)
}

func situationSection(in PromptInput) string {
	lines := make([]string, 0, 4)
	if in.Stage != "" {
		lines = append(lines, "对话阶段："+stageLabel(in.Stage))
	}
	if in.Intent.Intent != "" && in.Intent.Intent != IntentUnknown {
		line := "客户意图：" + intentLabel(in.Intent.Intent)
		if in.Intent.Objection != ObjectionNone {
			line += "（异议类型：" + objectionLabel(in.Intent.Objection) + "）"
		}
		lines = append(lines, line)
	}
	if m := in.Memory; m != nil {
		if m.InteractionCount > 0 {
			lines = append(lines, fmt.Sprintf("这是与该客户的第%d次互动，客户关系：%s", m.InteractionCount, relationshipLabel(m.Stage)))
		}
		if len(m.Preferences) > 0 {
			keys := make([]string, 0, len(m.Preferences))
			for k := range m.Preferences {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			prefs := make([]string, 0, len(keys))
			for _, k := range keys {
				prefs = append(prefs, k+"："+m.Preferences[k])
			}
			lines = append(lines, "已知客户偏好："+strings.Join(prefs, "；"))
		}
		if n := len(m.ProvidedInfo); n > 0 {
			infos := make([]string, 0, 3)
			start := n - 3
			if start < 0 {
				start = 0
			}
			for _, pi := range m.ProvidedInfo[start:] {
				infos = append(infos, pi.Info)
			}
			lines = append(lines, "客户提供过的信息："+strings.Join(infos, "；"))
		}
	}
	return strings.Join(lines, "\n")
}

func toneSection(p *profile.Profile) string {
	lines := make([]string, 0, 3)
	if p.ToneStyle != "" {
		lines = append(lines, "整体语气："+p.ToneStyle)
	}
	if p.ReplyLength != "" {
		lines = append(lines, "回复长度："+p.ReplyLength)
	}
	if p.EmojiUsage != "" {
		lines = append(lines, "表情使用："+p.EmojiUsage)
	}
	return strings.Join(lines, "\n")
}

func knowledgeSection(in PromptInput) string {
	lines := make([]string, 0)
	for _, r := range in.Knowledge {
		lines = append(lines, fmt.Sprintf("[相关资料: %s] %s", r.Source, r.Content))
	}
	if in.Profile != nil {
		for _, entry := range in.Profile.KnowledgeBase {
			if len(entry.Points) == 0 {
				continue
			}
			topic := entry.Topic
			if topic == "" {
				topic = "通用"
			}
			lines = append(lines, topic+"："+strings.Join(entry.Points, "；"))
		}
	}
	return strings.Join(lines, "\n")
}

func strategySection(in PromptInput) string {
	if in.Stage == "" {
		return ""
	}
	g := GuidanceFor(in.Stage)
	lines := []string{"本阶段目标：" + g.Goal, "注意：" + g.Tips}
	if len(g.NextActions) > 0 {
		lines = append(lines, "建议动作："+strings.Join(g.NextActions, "；"))
	}
	return strings.Join(lines, "\n")
}

func goldenSection(golden []GoldenReply) string {
	if len(golden) == 0 {
		return ""
	}
	lines := make([]string, 0, len(golden))
	for _, g := range golden {
		lines = append(lines, "Q: "+g.Question+"\nA: "+g.Reply)
	}
	return strings.Join(lines, "\n")
}

func stageLabel(s Stage) string {
	switch s {
	case StageGreeting:
		return "破冰寒暄"
	case StageDiscovery:
		return "需求挖掘"
	case StagePresentation:
		return "产品介绍"
	case StageObjection:
		return "异议处理"
	case StageClosing:
		return "促成交易"
	case StageAfterSale:
		return "售后服务"
	default:
		return string(s)
	}
}

func intentLabel(i Intent) string {
	switch i {
	case IntentPriceInquiry:
		return "询问价格"
	case IntentProductInquiry:
		return "咨询产品"
	case IntentPurchase:
		return "有购买意向"
	case IntentObjection:
		return "提出异议"
	case IntentAfterSale:
		return "售后问题"
	case IntentChitchat:
		return "寒暄闲聊"
	default:
		return string(i)
	}
}

func objectionLabel(o ObjectionType) string {
	switch o {
	case ObjectionPrice:
		return "嫌贵"
	case ObjectionTrust:
		return "不信任"
	case ObjectionEffect:
		return "怀疑效果"
	case ObjectionTiming:
		return "想再等等"
	case ObjectionCompetitor:
		return "在比较别家"
	case ObjectionNeed:
		return "觉得不需要"
	default:
		return string(o)
	}
}

func relationshipLabel(s RelationshipStage) string {
	switch s {
	case RelationshipCold:
		return "新客户"
	case RelationshipWarm:
		return "有意向"
	case RelationshipHot:
		return "高意向"
	case RelationshipCustomer:
		return "老客户"
	case RelationshipLost:
		return "流失风险"
	default:
		return string(s)
	}
}
