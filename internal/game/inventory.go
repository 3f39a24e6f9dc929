package game

// InventorySlots is the number of weapon slots per player.
const InventorySlots = 4

// InfiniteAmmo marks a slot that never runs dry.
const InfiniteAmmo = -1

// WeaponSlot is one inventory slot. Negative ammo means infinite.
type WeaponSlot struct {
	Type WeaponType `json:"type"`
	Ammo int        `json:"ammo"`
}

// IsEmpty reports whether the slot holds nothing.
func (s WeaponSlot) IsEmpty() bool { return s.Type == WeaponNone }

// IsInfinite reports whether the slot has unlimited ammo.
func (s WeaponSlot) IsInfinite() bool { return s.Ammo < 0 }

// InventoryState is a player's four weapon slots and the active index.
// Slot 0 holds the base pistol and is never replaced by a pickup.
type InventoryState struct {
	Slots  [InventorySlots]WeaponSlot `json:"slots"`
	Active int                        `json:"active"`
}

// Pickup is a weapon lying in the world.
type Pickup struct {
	Type WeaponType `json:"type"`
	Ammo int        `json:"ammo"`
}

// NewWithBase returns an inventory holding only the infinite base pistol.
func NewWithBase() InventoryState {
	var inv InventoryState
	inv.Slots[0] = WeaponSlot{Type: WeaponBasePistol, Ammo: InfiniteAmmo}
	return inv
}

// ApplyPickup adds loot to inv.
//
// A type already held in slots 1-3 merges ammo (infinite stays infinite).
// Otherwise the first empty slot of 1-3 takes it. With 1-3 full, the active
// slot is replaced, or slot 1 when the base pistol is active; its previous
// contents are returned as dropped. Loot with no type or no ammo is ignored.
func ApplyPickup(inv InventoryState, loot Pickup) (next InventoryState, dropped bool, droppedPickup Pickup) {
	if loot.Type == WeaponNone || loot.Ammo <= 0 {
		return inv, false, Pickup{}
	}

	for i := 1; i < InventorySlots; i++ {
		s := inv.Slots[i]
		if s.Type == loot.Type {
			if !s.IsInfinite() {
				s.Ammo += loot.Ammo
			}
			inv.Slots[i] = s
			return inv, false, Pickup{}
		}
	}

	for i := 1; i < InventorySlots; i++ {
		if inv.Slots[i].IsEmpty() {
			inv.Slots[i] = WeaponSlot{Type: loot.Type, Ammo: loot.Ammo}
			return inv, false, Pickup{}
		}
	}

	target := inv.Active
	if target == 0 {
		target = 1
	}
	old := inv.Slots[target]
	if !old.IsEmpty() {
		dropped = true
		droppedPickup = Pickup{Type: old.Type, Ammo: old.Ammo}
		if old.IsInfinite() {
			droppedPickup.Ammo = loot.Ammo
		}
	}
	inv.Slots[target] = WeaponSlot{Type: loot.Type, Ammo: loot.Ammo}
	return inv, dropped, droppedPickup
}

// SetActive selects a slot, clamping index into [0, 3].
func SetActive(inv InventoryState, index int) InventoryState {
	if index < 0 {
		index = 0
	}
	if index > InventorySlots-1 {
		index = InventorySlots - 1
	}
	inv.Active = index
	return inv
}

// TryConsume spends one round from the active slot.
// Empty or dry slots do not fire; infinite slots fire without change.
func TryConsume(inv InventoryState) (fired bool, next InventoryState) {
	s := inv.Slots[inv.Active]
	switch {
	case s.IsEmpty():
		return false, inv
	case s.IsInfinite():
		return true, inv
	case s.Ammo <= 0:
		return false, inv
	}
	s.Ammo--
	inv.Slots[inv.Active] = s
	return true, inv
}

// ActiveSlot returns the selected slot.
func (inv InventoryState) ActiveSlot() WeaponSlot {
	return inv.Slots[inv.Active]
}
