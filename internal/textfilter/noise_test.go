package textfilter

import "testing"

func TestIsNoise(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"empty", "", true},
		{"whitespace", "   ", true},
		{"pure emoji", "😀😀", true},
		{"emoji with space", "👍 🎉", true},
		{"sticker token", "[动画表情]", true},
		{"image token", "[图片]", true},
		{"transfer receipt", "收到一笔转账", true},
		{"poke notice", "张三 拍了拍你", true},
		{"recall notice", "对方撤回了一条消息", true},
		{"normal question", "这个多少钱", false},
		{"emoji plus text", "好的👌明天见", false},
		{"brackets mid-text", "我看了[产品手册]觉得不错", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsNoise(tc.body); got != tc.want {
				t.Fatalf("IsNoise(%q) = %v, want %v", tc.body, got, tc.want)
			}
		})
	}
}
