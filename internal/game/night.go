package game

// DefaultDayLengthSeconds is one full day/night cycle.
const DefaultDayLengthSeconds float32 = 300

// Corruption grows by this many units per completed night.
const (
	corruptionBase     float32 = 10
	corruptionPerNight float32 = 4
)

// NightSystem advances time of day and counts completed nights.
type NightSystem struct {
	TimeOfDay        float32 // [0, 1)
	NightCount       int
	DayLengthSeconds float32
}

// NewNightSystem starts at dawn of day zero.
func NewNightSystem() *NightSystem {
	return &NightSystem{DayLengthSeconds: DefaultDayLengthSeconds}
}

// Tick advances time of day by dt. Reaching 1 wraps to 0 and counts a night.
func (n *NightSystem) Tick(dt float32) {
	n.TimeOfDay += dt / n.DayLengthSeconds
	if n.TimeOfDay >= 1 {
		n.TimeOfDay = 0
		n.NightCount++
	}
}

// CorruptionRadius grows strictly with NightCount.
func (n *NightSystem) CorruptionRadius() float32 {
	return corruptionBase + float32(n.NightCount)*corruptionPerNight
}

// directorDecay is applied to Intensity once per tick.
const directorDecay float32 = 0.98

// Director holds a difficulty intensity in [0, 1] that cools down each tick.
type Director struct {
	Intensity float32
}

// Tick decays intensity.
func (d *Director) Tick() {
	if d.Intensity > 0 {
		d.Intensity *= directorDecay
	}
}

// Bump adds amount and clamps to [0, 1].
func (d *Director) Bump(amount float32) {
	x := d.Intensity + amount
	switch {
	case x < 0:
		x = 0
	case x > 1:
		x = 1
	}
	d.Intensity = x
}
