package spatial

import "math"

// TileTag classifies a city tile by its ring around the center.
type TileTag uint8

const (
	TileSuburbs TileTag = iota
	TileIndustrial
	TileDowntown
	TilePark
	TileBlocked
)

// String returns the tag name.
func (t TileTag) String() string {
	switch t {
	case TileSuburbs:
		return "suburbs"
	case TileIndustrial:
		return "industrial"
	case TileDowntown:
		return "downtown"
	case TilePark:
		return "park"
	case TileBlocked:
		return "blocked"
	default:
		return "unknown"
	}
}

// CityGrid is a static tile map tagged by Chebyshev distance from the center.
//
// Memory layout: tags are stored in row-major order (tags[y*width+x]).
// Generated once at construction; read-only afterwards.
type CityGrid struct {
	width, height    int
	centerX, centerY int
	centerRadius     int
	tags             []TileTag
}

// NewCityGrid creates and tags a width x height grid.
// Tiles with RadiusIndex < centerRadius/2 are downtown, < centerRadius
// industrial, everything else suburbs.
func NewCityGrid(width, height, centerRadius int) *CityGrid {
	// Ensure at least 1x1 grid
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}

	g := &CityGrid{
		width:        width,
		height:       height,
		centerX:      width / 2,
		centerY:      height / 2,
		centerRadius: centerRadius,
		tags:         make([]TileTag, width*height),
	}

	half := float32(centerRadius) * 0.5
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r := g.RadiusIndex(x, y)
			var tag TileTag
			switch {
			case float32(r) < half:
				tag = TileDowntown
			case r < centerRadius:
				tag = TileIndustrial
			default:
				tag = TileSuburbs
			}
			g.tags[y*width+x] = tag
		}
	}
	return g
}

// RadiusIndex returns the Chebyshev distance of (x, y) from the center.
func (g *CityGrid) RadiusIndex(x, y int) int {
	dx := x - g.centerX
	dy := y - g.centerY
	if dx < 0 {
		dx = -dx
	}
	if dy < 0 {
		dy = -dy
	}
	if dx > dy {
		return dx
	}
	return dy
}

// InBounds reports whether (x, y) is a valid tile.
func (g *CityGrid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Tag returns the tag for tile (x, y). Out-of-range tiles are blocked.
func (g *CityGrid) Tag(x, y int) TileTag {
	if !g.InBounds(x, y) {
		return TileBlocked
	}
	return g.tags[y*g.width+x]
}

// TileAt maps a world position (origin at the grid center, one unit per tile)
// to tile coordinates, clamped to the grid.
func (g *CityGrid) TileAt(p Vec2) (x, y int) {
	x = g.centerX + int(math.Floor(float64(p.X)))
	y = g.centerY + int(math.Floor(float64(p.Y)))

	// Clamp to grid bounds
	if x < 0 {
		x = 0
	}
	if x >= g.width {
		x = g.width - 1
	}
	if y < 0 {
		y = 0
	}
	if y >= g.height {
		y = g.height - 1
	}
	return x, y
}

// TagAt returns the tag of the tile under a world position.
func (g *CityGrid) TagAt(p Vec2) TileTag {
	return g.Tag(g.TileAt(p))
}

// Stats returns per-tag tile counts.
func (g *CityGrid) Stats() GridStats {
	var s GridStats
	s.TotalTiles = len(g.tags)
	for _, t := range g.tags {
		switch t {
		case TileDowntown:
			s.Downtown++
		case TileIndustrial:
			s.Industrial++
		case TileSuburbs:
			s.Suburbs++
		}
	}
	return s
}

// GridStats counts tiles per tag.
type GridStats struct {
	TotalTiles int `json:"totalTiles"`
	Downtown   int `json:"downtown"`
	Industrial int `json:"industrial"`
	Suburbs    int `json:"suburbs"`
}

// Dimensions returns the grid dimensions and center.
func (g *CityGrid) Dimensions() (width, height, centerX, centerY int) {
	return g.width, g.height, g.centerX, g.centerY
}

// CenterRadius returns the radius the grid was generated with.
func (g *CityGrid) CenterRadius() int {
	return g.centerRadius
}
