package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hellscape/internal/game/spatial"
)

func TestActorStoreSharedIDs(t *testing.T) {
	s := NewActorStore()
	db := NewEnemyDatabase()

	p1 := s.SpawnPlayer(spatial.V(0, 0))
	e1 := s.SpawnEnemy(spatial.V(1, 0), db.Default())
	p2 := s.SpawnPlayer(spatial.V(2, 0))

	assert.Equal(t, int32(1), p1.ID)
	assert.Equal(t, int32(2), e1.ID)
	assert.Equal(t, int32(3), p2.ID)

	_, isPlayer := s.Player(e1.ID)
	assert.False(t, isPlayer)
	_, isEnemy := s.Enemy(p1.ID)
	assert.False(t, isEnemy)

	got, ok := s.Get(e1.ID)
	require.True(t, ok)
	assert.Same(t, e1, got)
}

func TestActorStoreSpawnDefaults(t *testing.T) {
	s := NewActorStore()
	p := s.SpawnPlayer(spatial.V(1, 2))
	e := s.SpawnEnemy(spatial.V(3, 4), NewEnemyDatabase().Default())

	assert.Equal(t, PlayerRadius, p.Radius)
	assert.Equal(t, PlayerMaxHP, p.HP)
	assert.Equal(t, TeamPlayer, p.Team)
	assert.True(t, p.Alive)

	assert.Equal(t, EnemyRadius, e.Radius)
	assert.Equal(t, int16(60), e.HP)
	assert.Equal(t, TeamEnemy, e.Team)
	assert.Equal(t, EnemySpeed, e.MoveSpeed)
}

func TestActorStoreRemoveKeepsOrderAndNeverReusesIDs(t *testing.T) {
	s := NewActorStore()
	db := NewEnemyDatabase()
	var ids []int32
	for i := 0; i < 5; i++ {
		ids = append(ids, s.SpawnEnemy(spatial.V(float32(i), 0), db.Default()).ID)
	}

	assert.True(t, s.RemoveEnemy(ids[2]))
	assert.False(t, s.RemoveEnemy(ids[2]))
	assert.False(t, s.RemovePlayer(ids[0]), "enemy id is not a player")

	var order []int32
	for _, a := range s.Enemies(nil) {
		order = append(order, a.ID)
	}
	assert.Equal(t, []int32{ids[0], ids[1], ids[3], ids[4]}, order)

	next := s.SpawnEnemy(spatial.Zero, db.Default())
	assert.Equal(t, ids[4]+1, next.ID)
}

func TestActorStoreAlivePlayerCount(t *testing.T) {
	s := NewActorStore()
	a := s.SpawnPlayer(spatial.Zero)
	s.SpawnPlayer(spatial.Zero)
	assert.Equal(t, 2, s.AlivePlayerCount())

	a.Alive = false
	assert.Equal(t, 1, s.AlivePlayerCount())
	assert.Equal(t, 2, s.PlayerCount())
}

func TestEnemyDatabase(t *testing.T) {
	db := NewEnemyDatabase()
	def := db.Default()
	require.NotNil(t, def)
	assert.Equal(t, DefaultEnemyName, def.Name)
	assert.Equal(t, 60, def.MaxHP)
	assert.Equal(t, float32(0.75), def.AttackRange)
	assert.Equal(t, int16(10), def.AttackDamage)

	db.Register(EnemyType{Name: "brute", MaxHP: 200, MoveSpeed: 2})
	brute, ok := db.Get("brute")
	require.True(t, ok)
	assert.Equal(t, 200, brute.MaxHP)

	_, ok = db.Get("ghost")
	assert.False(t, ok)

	all := db.All()
	require.Len(t, all, 2)
	assert.Equal(t, "brute", all[0].Name)
}
