package game

import "hellscape/internal/game/spatial"

// InputCommand is one input sample for a player actor. Only the latest
// command per actor is kept; Tick is advisory.
type InputCommand struct {
	Tick    int32        `json:"tick"`
	Move    spatial.Vec2 `json:"move"`
	Aim     spatial.Vec2 `json:"aim"`
	Buttons byte         `json:"buttons"`
}

// Attack reports whether the fire button is held.
func (c InputCommand) Attack() bool { return c.Buttons&ButtonAttack != 0 }

// Dash reports whether the dash button is held.
func (c InputCommand) Dash() bool { return c.Buttons&ButtonDash != 0 }
