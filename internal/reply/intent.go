package reply

import "strings"

// Intent is the top-level customer intent.
type Intent string

const (
	IntentPriceInquiry   Intent = "price_inquiry"
	IntentProductInquiry Intent = "product_inquiry"
	IntentPurchase       Intent = "purchase_intent"
	IntentObjection      Intent = "objection"
	IntentAfterSale      Intent = "after_sale"
	IntentChitchat       Intent = "chitchat"
	IntentUnknown        Intent = "unknown"
)

// ObjectionType refines an objection intent.
type ObjectionType string

const (
	ObjectionPrice      ObjectionType = "price"
	ObjectionTrust      ObjectionType = "trust"
	ObjectionEffect     ObjectionType = "effect"
	ObjectionTiming     ObjectionType = "timing"
	ObjectionCompetitor ObjectionType = "competitor"
	ObjectionNeed       ObjectionType = "need"
	ObjectionNone       ObjectionType = ""
)

type scoredCategory struct {
	name     string
	keywords []string
}

// Declaration order breaks ties, so the more actionable intents come
// first.
var intentCategories = []scoredCategory{
	{string(IntentPurchase), []string{
		"买", "下单", "付款", "怎么付", "购买", "要一个", "来一套", "拍下", "订", "现在要",
	}},
	{string(IntentPriceInquiry), []string{
		"多少钱", "价格", "费用", "优惠", "折扣", "便宜点", "报价", "打折", "活动价",
	}},
	{string(IntentObjection), []string{
		"太贵", "贵了", "考虑", "再看看", "不需要", "没效果", "不相信", "骗", "别家", "犹豫", "算了",
	}},
	{string(IntentAfterSale), []string{
		"退货", "退款", "换货", "坏了", "发错", "没收到", "物流", "快递", "售后", "投诉",
	}},
	{string(IntentProductInquiry), []string{
		"怎么用", "功效", "成分", "适合", "效果", "区别", "介绍", "有什么", "含量", "保质期",
	}},
	{string(IntentChitchat), []string{
		"你好", "在吗", "谢谢", "好的", "哈哈", "早上好", "晚安",
	}},
}

var objectionCategories = []scoredCategory{
	{string(ObjectionPrice), []string{"太贵", "贵了", "便宜", "超预算", "价格高", "不值"}},
	{string(ObjectionTrust), []string{"不相信", "骗", "真的假的", "靠谱吗", "忽悠", "虚假"}},
	{string(ObjectionEffect), []string{"没效果", "有用吗", "真有效", "不管用", "效果差"}},
	{string(ObjectionTiming), []string{"考虑", "再看看", "下次", "过段时间", "等等", "不急"}},
	{string(ObjectionCompetitor), []string{"别家", "其他家", "某宝", "某东", "对比过", "隔壁"}},
	{string(ObjectionNeed), []string{"不需要", "用不上", "没必要", "不想要"}},
}

// IntentResult is a classification with its calibrated confidence.
type IntentResult struct {
	Intent     Intent        `json:"intent"`
	Objection  ObjectionType `json:"objection_type,omitempty"`
	Confidence float64       `json:"confidence"`
}

// ClassifyIntent scores the message against each intent vocabulary.
// Highest hit count wins; zero hits everywhere means unknown. Three or
// more hits counts as full confidence.
func ClassifyIntent(message string) IntentResult {
	name, score := bestCategory(message, intentCategories)
	if score == 0 {
		return IntentResult{Intent: IntentUnknown}
	}
	result := IntentResult{
		Intent:     Intent(name),
		Confidence: confidence(score),
	}
	if result.Intent == IntentObjection {
		if objName, objScore := bestCategory(message, objectionCategories); objScore > 0 {
			result.Objection = ObjectionType(objName)
		}
	}
	return result
}

func bestCategory(message string, categories []scoredCategory) (string, int) {
	lowered := strings.ToLower(message)
	bestName := ""
	bestScore := 0
	for _, cat := range categories {
		score := 0
		for _, k := range cat.keywords {
			if strings.Contains(lowered, k) {
				score++
			}
		}
		if score > bestScore {
			bestName = cat.name
			bestScore = score
		}
	}
	return bestName, bestScore
}

func confidence(score int) float64 {
	c := float64(score) / 3.0
	if c > 1.0 {
		return 1.0
	}
	return c
}
