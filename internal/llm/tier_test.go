package llm

import "testing"

func TestParseTier(t *testing.T) {
	cases := []struct {
		in      string
		want    Tier
		wantErr bool
	}{
		{"commoner", TierCommoner, false},
		{"elite", TierElite, false},
		{" Elite ", TierElite, false},
		{"COMMONER", TierCommoner, false},
		{"", "", true},
		{"admin", "", true},
	}
	for _, tc := range cases {
		got, err := ParseTier(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("ParseTier(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Fatalf("ParseTier(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestModelMap_ForTier(t *testing.T) {
	m := ModelMap{Commoner: "gpt-4o-mini", Elite: "gpt-4o"}
	if got := m.ForTier(TierCommoner); got != "gpt-4o-mini" {
		t.Fatalf("commoner: got %q", got)
	}
	if got := m.ForTier(TierElite); got != "gpt-4o" {
		t.Fatalf("elite: got %q", got)
	}
	// Elite unset falls back to the commoner model.
	if got := (ModelMap{Commoner: "gpt-4o-mini"}).ForTier(TierElite); got != "gpt-4o-mini" {
		t.Fatalf("fallback: got %q", got)
	}
}
