package slack

import "testing"

func TestToMrkdwnLinks(t *testing.T) {
	cases := []struct{ in, want string }{
		{"[docs](https://example.com)", "<https://example.com|docs>"},
		{"see [a](https://a.io) and [b](https://b.io)", "see <https://a.io|a> and <https://b.io|b>"},
		{"no links", "no links"},
	}
	for _, c := range cases {
		if got := ToMrkdwn(c.in); got != c.want {
			t.Errorf("ToMrkdwn(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToMrkdwnBold(t *testing.T) {
	cases := []struct{ in, want string }{
		{"**important**", "*important*"},
		{"a **b** c **d**", "a *b* c *d*"},
		{"*already slack bold*", "*already slack bold*"},
	}
	for _, c := range cases {
		if got := ToMrkdwn(c.in); got != c.want {
			t.Errorf("ToMrkdwn(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestToMrkdwnCombined(t *testing.T) {
	in := "**Read** the [guide](https://example.com/guide)."
	want := "*Read* the <https://example.com/guide|guide>."
	if got := ToMrkdwn(in); got != want {
		t.Errorf("ToMrkdwn(%q) = %q, want %q", in, got, want)
	}
}
