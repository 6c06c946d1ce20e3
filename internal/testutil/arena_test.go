package testutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/arena/internal/game/catalog"
)

func TestArenaCatalogYAML_Loads(t *testing.T) {
	doc, err := catalog.LoadDocumentFromBytes([]byte(ArenaCatalogYAML))
	require.NoError(t, err)
	cat, err := catalog.Build(doc)
	require.NoError(t, err)

	hero, enemies, err := cat.Battle("tester", "pair")
	require.NoError(t, err)
	assert.Equal(t, 1, hero.BasicAttack.Min())
	assert.Len(t, enemies, 2)
}

func TestNewArenaService_StartsBattles(t *testing.T) {
	f := NewArenaService(t, time.Minute)
	sess, err := f.Service.StartBattle("alice", "tester", "duel", false)
	require.NoError(t, err)
	assert.Equal(t, "alice", sess.Owner())
}
