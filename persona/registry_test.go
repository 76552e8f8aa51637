package persona

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistry_Loads_All_Six_Roles(t *testing.T) {
	req := require.New(t)

	r, err := NewRegistry()
	req.NoError(err)

	for _, id := range All() {
		p := r.Persona(id)
		req.NotNil(p, "persona for %s should be defined", id)
		req.NotEmpty(p.DisplayName)
		req.NotEmpty(p.Aliases)
	}
}

func TestRegistry_Resolve_Matches_Aliases_Loosely(t *testing.T) {
	req := require.New(t)
	r, err := NewRegistry()
	req.NoError(err)

	cases := []struct {
		input string
		want  Identity
	}{
		{"김창의", DesignLead},
		{"디자인", DesignLead},
		{"design", DesignLead},
		{"DESIGN", DesignLead},
		{"김창의 팀장", DesignLead},
		{"박매출", SalesLead},
		{"영업", SalesLead},
		{"이현실", ProductionLead},
		{"최홍보", MarketingLead},
		{"마케팅 담당자", MarketingLead},
		{"박테크", ITLead},
		{"it 팀장에게", ITLead},
		{"진행자", Moderator},
	}
	for _, c := range cases {
		got, ok := r.Resolve(c.input)
		req.True(ok, "input %q should resolve", c.input)
		req.Equal(c.want, got, "input %q", c.input)
	}
}

func TestRegistry_Resolve_Rejects_Unknown_Names(t *testing.T) {
	req := require.New(t)
	r, err := NewRegistry()
	req.NoError(err)

	for _, input := range []string{"", "   ", "홍길동", "unknown"} {
		_, ok := r.Resolve(input)
		req.False(ok, "input %q should not resolve", input)
	}
}

func TestRegistry_Resolve_Prefers_Definition_Order_On_Ambiguity(t *testing.T) {
	req := require.New(t)
	r, err := NewRegistry()
	req.NoError(err)

	// Given an input that contains aliases of two different roles
	// Then the earlier role in definition order wins
	got, ok := r.Resolve("디자인과 영업")
	req.True(ok)
	req.Equal(DesignLead, got)
}

func TestRegistry_ResolveAll_Deduplicates_And_Skips_Moderator(t *testing.T) {
	req := require.New(t)
	r, err := NewRegistry()
	req.NoError(err)

	ids := r.ResolveAll([]string{"김창의", "design", "진행자", "없는사람", "박매출"})

	req.Equal([]Identity{DesignLead, SalesLead}, ids)
}

func TestRegistry_ExpertNames_Lists_All_Experts(t *testing.T) {
	req := require.New(t)
	r, err := NewRegistry()
	req.NoError(err)

	names := r.ExpertNames()

	req.Contains(names, "김창의")
	req.Contains(names, "박매출")
	req.Contains(names, "이현실")
	req.Contains(names, "최홍보")
	req.Contains(names, "박테크")
}
