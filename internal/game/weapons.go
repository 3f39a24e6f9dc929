package game

import "sort"

// WeaponType tags a weapon slot or pickup.
type WeaponType uint8

const (
	WeaponNone WeaponType = iota
	WeaponBasePistol
	WeaponRifle
	WeaponSMG
	WeaponShotgun
)

// String returns the weapon id.
func (w WeaponType) String() string {
	return GetWeapon(w).ID
}

// Weapon is the catalog entry for a weapon type.
type Weapon struct {
	Type  WeaponType `json:"type"`
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Color string     `json:"color"`
}

// Weapons is the catalog of known weapon types.
var Weapons = map[WeaponType]Weapon{
	WeaponNone: {
		Type: WeaponNone,
		ID:   "none",
		Name: "Empty",
	},
	WeaponBasePistol: {
		Type:  WeaponBasePistol,
		ID:    "pistol",
		Name:  "Pistol",
		Color: "#ffeb3b",
	},
	WeaponRifle: {
		Type:  WeaponRifle,
		ID:    "rifle",
		Name:  "Rifle",
		Color: "#2196f3",
	},
	WeaponSMG: {
		Type:  WeaponSMG,
		ID:    "smg",
		Name:  "SMG",
		Color: "#9c27b0",
	},
	WeaponShotgun: {
		Type:  WeaponShotgun,
		ID:    "shotgun",
		Name:  "Shotgun",
		Color: "#ff5722",
	},
}

// SpawnableWeapons are the types the weapon spawner drops, in draw order.
var SpawnableWeapons = []WeaponType{WeaponRifle, WeaponSMG, WeaponShotgun}

// GetWeapon returns a weapon by type, defaults to the empty entry.
func GetWeapon(t WeaponType) Weapon {
	if w, ok := Weapons[t]; ok {
		return w
	}
	return Weapons[WeaponNone]
}

// ParseWeapon looks up a weapon type by id.
func ParseWeapon(id string) (WeaponType, bool) {
	for t, w := range Weapons {
		if w.ID == id {
			return t, true
		}
	}
	return WeaponNone, false
}

// GetAllWeapons returns all catalog entries ordered by type.
func GetAllWeapons() []Weapon {
	weapons := make([]Weapon, 0, len(Weapons))
	for _, w := range Weapons {
		weapons = append(weapons, w)
	}
	sort.Slice(weapons, func(i, j int) bool { return weapons[i].Type < weapons[j].Type })
	return weapons
}
