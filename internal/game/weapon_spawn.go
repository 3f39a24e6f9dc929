package game

import "hellscape/internal/game/spatial"

// Weapon spawner defaults.
const (
	DefaultWeaponSpawnSeconds float32 = 10
	weaponSpawnMinAmmo                = 10
	weaponSpawnMaxAmmo                = 30
	weaponSpawnClearRadius    float32 = 8 // keep drops out of the center
)

// WeaponSpawnRequest asks the outer layer to place a pickup in the world.
type WeaponSpawnRequest struct {
	Type      WeaponType   `json:"type"`
	Ammo      int          `json:"ammo"`
	Position  spatial.Vec2 `json:"position"`
	District  string       `json:"district"`
	SpawnTime float32      `json:"spawnTime"`
}

// WeaponSpawnSystem emits one pickup request every interval of sim time.
// The first request comes after one full interval.
type WeaponSpawnSystem struct {
	rng      *Rng
	grid     *spatial.CityGrid
	half     spatial.Vec2
	interval float32
	next     float32
}

// NewWeaponSpawnSystem creates a spawner drawing from rng. Drops are tagged
// with the district of grid they land in; grid may be nil.
func NewWeaponSpawnSystem(rng *Rng, grid *spatial.CityGrid, halfExtents spatial.Vec2, interval float32) *WeaponSpawnSystem {
	return &WeaponSpawnSystem{
		rng:      rng,
		grid:     grid,
		half:     halfExtents,
		interval: interval,
		next:     interval,
	}
}

// Update returns the request due at now, if any.
func (w *WeaponSpawnSystem) Update(now float32) (WeaponSpawnRequest, bool) {
	if w.interval <= 0 || now < w.next {
		return WeaponSpawnRequest{}, false
	}

	req := WeaponSpawnRequest{
		Type:      SpawnableWeapons[w.rng.Range(0, len(SpawnableWeapons))],
		Ammo:      w.rng.Range(weaponSpawnMinAmmo, weaponSpawnMaxAmmo+1),
		Position:  w.randomPosition(),
		SpawnTime: now,
	}
	if w.grid != nil {
		req.District = w.grid.TagAt(req.Position).String()
	}
	w.next = now + w.interval
	return req, true
}

func (w *WeaponSpawnSystem) randomPosition() spatial.Vec2 {
	for {
		p := spatial.V(
			w.rng.RangeFloat(-w.half.X, w.half.X),
			w.rng.RangeFloat(-w.half.Y, w.half.Y),
		)
		if p.Len() >= weaponSpawnClearRadius || w.half.Len() < weaponSpawnClearRadius {
			return p
		}
	}
}
