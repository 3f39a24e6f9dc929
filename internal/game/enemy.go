package game

import "sort"

// EnemyType describes one kind of enemy.
type EnemyType struct {
	Name           string  `json:"name"`
	MaxHP          int     `json:"maxHp"`
	MoveSpeed      float32 `json:"moveSpeed"`
	AttackRange    float32 `json:"attackRange"`
	AttackDamage   int16   `json:"attackDamage"`
	AttackCooldown float32 `json:"attackCooldown"` // seconds
}

// DefaultEnemyName is the kind used by SpawnEnemyAt and edge spawns.
const DefaultEnemyName = "damned"

// EnemyDatabase is a name-keyed registry of enemy kinds.
type EnemyDatabase struct {
	types map[string]*EnemyType
}

// NewEnemyDatabase returns a database holding the default kind.
func NewEnemyDatabase() *EnemyDatabase {
	db := &EnemyDatabase{types: make(map[string]*EnemyType)}
	db.Register(EnemyType{
		Name:           DefaultEnemyName,
		MaxHP:          EnemyMaxHP,
		MoveSpeed:      EnemySpeed,
		AttackRange:    EnemyMeleeRange,
		AttackDamage:   EnemyMeleeDamage,
		AttackCooldown: EnemyAttackCooldown,
	})
	return db
}

// Register adds or replaces a kind.
func (db *EnemyDatabase) Register(t EnemyType) {
	db.types[t.Name] = &t
}

// Get returns a kind by name.
func (db *EnemyDatabase) Get(name string) (*EnemyType, bool) {
	t, ok := db.types[name]
	return t, ok
}

// Default returns the default kind.
func (db *EnemyDatabase) Default() *EnemyType {
	return db.types[DefaultEnemyName]
}

// All returns every registered kind sorted by name.
func (db *EnemyDatabase) All() []EnemyType {
	out := make([]EnemyType, 0, len(db.types))
	for _, t := range db.types {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
