package persona

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStore_Save_And_Load_Applies_Overrides(t *testing.T) {
	req := require.New(t)
	store := NewStore(t.TempDir())

	// Given a saved display name override for the design lead
	err := store.Save([]*Override{
		{Identity: DesignLead, DisplayName: "디자인 총괄 김창의", Goal: "브랜드 재정립"},
	})
	req.NoError(err)

	// When a fresh registry loads the overrides
	r, err := NewRegistry()
	req.NoError(err)
	req.NoError(store.Load(r))

	// Then only the overridden fields changed
	p := r.Persona(DesignLead)
	req.Equal("디자인 총괄 김창의", p.DisplayName)
	req.Equal("브랜드 재정립", p.Goal)
	req.NotEmpty(p.Backstory, "untouched fields keep their embedded defaults")
}

func TestStore_Load_Without_File_Is_A_Noop(t *testing.T) {
	req := require.New(t)
	store := NewStore(t.TempDir())

	r, err := NewRegistry()
	req.NoError(err)
	original := r.Persona(SalesLead).DisplayName

	req.NoError(store.Load(r))
	req.Equal(original, r.Persona(SalesLead).DisplayName)
}

func TestStore_Load_Ignores_Unknown_Identities(t *testing.T) {
	req := require.New(t)
	store := NewStore(t.TempDir())

	req.NoError(store.Save([]*Override{
		{Identity: Identity("finance"), DisplayName: "없는 역할"},
	}))

	r, err := NewRegistry()
	req.NoError(err)
	req.NoError(store.Load(r))
}
