package textfilter

import (
	"strings"
	"testing"
)

func TestMaskPhone(t *testing.T) {
	got := Masker{}.Mask("联系电话13812345678")
	if !strings.Contains(got, "138****5678") {
		t.Fatalf("expected masked phone in %q", got)
	}
	if strings.Contains(got, "13812345678") {
		t.Fatalf("original phone leaked in %q", got)
	}
}

func TestMaskIDAndBankCard(t *testing.T) {
	got := Masker{}.Mask("身份证110101199003071234 卡号6222021234567890123")
	if !strings.Contains(got, "1101****1234") {
		t.Fatalf("expected masked ID in %q", got)
	}
	if !strings.Contains(got, "6222****0123") {
		t.Fatalf("expected masked card in %q", got)
	}
	if strings.Contains(got, "110101199003071234") || strings.Contains(got, "6222021234567890123") {
		t.Fatalf("original digits leaked in %q", got)
	}
}

func TestMaskEmail(t *testing.T) {
	got := Masker{}.Mask("邮箱 zhangsan@example.com")
	if !strings.Contains(got, "z***n@example.com") {
		t.Fatalf("expected masked email in %q", got)
	}
}

func TestAmountsUnmaskedByDefault(t *testing.T) {
	text := "这套方案一共2980元"
	if got := (Masker{}).Mask(text); got != text {
		t.Fatalf("expected amounts untouched, got %q", got)
	}
}

func TestMaskAmountsWhenEnabled(t *testing.T) {
	got := Masker{MaskAmounts: true}.Mask("总价2980元，定金¥500")
	if strings.Contains(got, "2980元") || strings.Contains(got, "¥500") {
		t.Fatalf("expected amounts masked, got %q", got)
	}
	if !strings.Contains(got, "[金额]") {
		t.Fatalf("expected amount placeholder, got %q", got)
	}
}
