package reply

// Stage labels where a conversation sits in the sales funnel.
type Stage string

const (
	StageGreeting     Stage = "greeting"
	StageDiscovery    Stage = "discovery"
	StagePresentation Stage = "presentation"
	StageObjection    Stage = "objection_handling"
	StageClosing      Stage = "closing"
	StageAfterSale    Stage = "after_sale"
)

var stageCategories = []scoredCategory{
	{string(StageClosing), []string{"下单", "付款", "怎么买", "购买", "拍下", "订", "成交", "包邮吗"}},
	{string(StageObjection), []string{"太贵", "考虑", "再看看", "不相信", "没效果", "别家", "犹豫"}},
	{string(StageAfterSale), []string{"退货", "退款", "换货", "售后", "没收到", "发错"}},
	{string(StagePresentation), []string{"功效", "成分", "怎么用", "效果", "区别", "介绍", "适合"}},
	{string(StageDiscovery), []string{"想要", "需要", "皮肤", "问题", "困扰", "改善", "推荐"}},
	{string(StageGreeting), []string{"你好", "在吗", "您好", "初次", "请问是"}},
}

// StageGuidance is the playbook surfaced to the prompt for a stage.
type StageGuidance struct {
	Goal        string
	Tips        string
	NextActions []string
}

var stageGuidance = map[Stage]StageGuidance{
	StageGreeting: {
		Goal:        "建立信任，让客户愿意继续聊下去",
		Tips:        "热情但不过度推销，先了解客户来意",
		NextActions: []string{"询问客户的具体需求", "引导客户说出关注点"},
	},
	StageDiscovery: {
		Goal:        "挖掘客户的真实需求和痛点",
		Tips:        "多问开放性问题，少做产品陈述",
		NextActions: []string{"确认客户最关心的问题", "为产品推荐做铺垫"},
	},
	StagePresentation: {
		Goal:        "把产品价值和客户需求对应起来",
		Tips:        "讲客户关心的点，不要全盘罗列卖点",
		NextActions: []string{"给出针对性的产品方案", "主动提供案例或反馈"},
	},
	StageObjection: {
		Goal:        "化解顾虑，不与客户争辩",
		Tips:        "先认同感受，再给证据，最后给台阶",
		NextActions: []string{"针对异议给出具体回应", "提供低风险的尝试方式"},
	},
	StageClosing: {
		Goal:        "顺势促成下单，减少决策阻力",
		Tips:        "明确行动指令，制造合理的紧迫感",
		NextActions: []string{"给出清晰的下单步骤", "确认收货信息"},
	},
	StageAfterSale: {
		Goal:        "快速解决问题，保住客户关系",
		Tips:        "先道歉安抚，再给解决方案和时间点",
		NextActions: []string{"确认问题细节", "给出明确的处理时限"},
	},
}

// ClassifyStage scores the message against stage vocabularies. When no
// stage keywords match, it falls back to a message-count heuristic:
// short conversations are greetings, medium ones discovery, the rest
// presentation.
func ClassifyStage(message string, messageCount int) Stage {
	if name, score := bestCategory(message, stageCategories); score > 0 {
		return Stage(name)
	}
	switch {
	case messageCount <= 2:
		return StageGreeting
	case messageCount <= 5:
		return StageDiscovery
	default:
		return StagePresentation
	}
}

// GuidanceFor returns the playbook for a stage.
func GuidanceFor(stage Stage) StageGuidance {
	if g, ok := stageGuidance[stage]; ok {
		return g
	}
	return stageGuidance[StageDiscovery]
}
