package sanitize

import "testing"

func TestLine(t *testing.T) {
	got := Line("  Ana <b>María</b>\t\n Pérez ")
	if got != "Ana María Pérez" {
		t.Fatalf("unexpected result %q", got)
	}
}

func TestStripHTMLRemovesEncodedTags(t *testing.T) {
	got := StripHTML("hola &lt;script&gt;alert(1)&lt;/script&gt;")
	if got != "hola alert(1)" {
		t.Fatalf("unexpected result %q", got)
	}
}
