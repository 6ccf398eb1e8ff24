package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		region string
		want   string
		ok     bool
	}{
		{name: "local mobile", input: "912 345 678", region: "PE", want: "+51912345678", ok: true},
		{name: "already international", input: "+51 912345678", region: "NL", want: "+51912345678", ok: true},
		{name: "empty region falls back", input: "912345678", want: "+51912345678", ok: true},
		{name: "letters", input: "call me", region: "PE", want: "call me", ok: false},
		{name: "blank", input: "   ", region: "PE", want: "", ok: false},
		{name: "too short", input: "123", region: "PE", want: "123", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizeE164(tt.input, tt.region)
			if got != tt.want || ok != tt.ok {
				t.Fatalf("NormalizeE164(%q, %q) = (%q, %v), want (%q, %v)", tt.input, tt.region, got, ok, tt.want, tt.ok)
			}
		})
	}
}
