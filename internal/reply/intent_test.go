package reply

import "testing"

func TestClassifyIntent(t *testing.T) {
	cases := []struct {
		message string
		want    Intent
	}{
		{"这个多少钱有优惠吗", IntentPriceInquiry},
		{"我要买一套 怎么付款", IntentPurchase},
		{"太贵了 我再考虑考虑", IntentObjection},
		{"这个精华怎么用 什么成分", IntentProductInquiry},
		{"快递到哪了 怎么还没收到", IntentAfterSale},
		{"你好 在吗", IntentChitchat},
		{"嗯", IntentUnknown},
	}
	for _, tc := range cases {
		got := ClassifyIntent(tc.message)
		if got.Intent != tc.want {
			t.Errorf("ClassifyIntent(%q) = %s, want %s", tc.message, got.Intent, tc.want)
		}
	}
}

func TestClassifyIntentDeterministic(t *testing.T) {
	msg := "太贵了 别家便宜 我再考虑下"
	first := ClassifyIntent(msg)
	for i := 0; i < 10; i++ {
		if got := ClassifyIntent(msg); got != first {
			t.Fatalf("classification not deterministic: %+v vs %+v", got, first)
		}
	}
}

func TestClassifyIntentConfidence(t *testing.T) {
	// One hit: confidence 1/3.
	got := ClassifyIntent("多少钱")
	if got.Confidence < 0.3 || got.Confidence > 0.4 {
		t.Fatalf("expected ~0.33 confidence for single hit, got %f", got.Confidence)
	}
	// Three or more hits saturate at 1.0.
	got = ClassifyIntent("多少钱 有优惠吗 打折吗 报价多少")
	if got.Confidence != 1.0 {
		t.Fatalf("expected full confidence, got %f", got.Confidence)
	}
	// Unknown has zero confidence.
	got = ClassifyIntent("呃")
	if got.Intent != IntentUnknown || got.Confidence != 0 {
		t.Fatalf("expected unknown with zero confidence, got %+v", got)
	}
}

func TestObjectionSubtypeOnlyForObjections(t *testing.T) {
	got := ClassifyIntent("太贵了吧")
	if got.Intent != IntentObjection {
		t.Fatalf("expected objection, got %s", got.Intent)
	}
	if got.Objection != ObjectionPrice {
		t.Fatalf("expected price objection, got %s", got.Objection)
	}

	got = ClassifyIntent("这个多少钱")
	if got.Objection != ObjectionNone {
		t.Fatalf("non-objection intent must not carry a subtype, got %s", got.Objection)
	}
}

func TestObjectionSubtypes(t *testing.T) {
	cases := []struct {
		message string
		want    ObjectionType
	}{
		{"不相信 感觉是骗人的", ObjectionTrust},
		{"真的有效果吗 不管用怎么办", ObjectionEffect},
		{"我再考虑下 不急", ObjectionTiming},
		{"别家好像更便宜 我对比过", ObjectionCompetitor},
	}
	for _, tc := range cases {
		got := ClassifyIntent(tc.message)
		if got.Objection != tc.want {
			t.Errorf("ClassifyIntent(%q).Objection = %s, want %s", tc.message, got.Objection, tc.want)
		}
	}
}
