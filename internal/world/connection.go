package world

import (
	"fmt"

	"github.com/talgya/campaign-world/internal/catalog"
)

// Level describes what traversing a connection entails.
type Level struct {
	Seed       string             `json:"seed"`
	Difficulty float64            `json:"difficulty"`
	Biome      catalog.Identifier `json:"biome"`
}

// Connection is an undirected edge between two distinct locations.
type Connection struct {
	Index      int
	Locations  [2]*Location
	Difficulty float64 // [0, 100]
	Biome      *catalog.Biome
	Passed     bool
	Locked     bool
	Path       []Vec2 // Jagged geometry, cosmetic only
	Level      *Level
}

// NewConnection links a and b. It does not register the connection with either location.
func NewConnection(a, b *Location) (*Connection, error) {
	if a == nil || b == nil {
		return nil, fmt.Errorf("connect: nil location")
	}
	if a == b {
		return nil, fmt.Errorf("connect %s: %w", a, ErrSelfConnection)
	}
	return &Connection{Locations: [2]*Location{a, b}}, nil
}

// Other returns the endpoint that is not l. It returns nil if l is not an endpoint.
func (c *Connection) Other(l *Location) *Location {
	switch l {
	case c.Locations[0]:
		return c.Locations[1]
	case c.Locations[1]:
		return c.Locations[0]
	}
	return nil
}

// Has reports whether l is an endpoint.
func (c *Connection) Has(l *Location) bool {
	return c.Locations[0] == l || c.Locations[1] == l
}

// Joins reports whether the connection links a and b in either direction.
func (c *Connection) Joins(a, b *Location) bool {
	return (c.Locations[0] == a && c.Locations[1] == b) || (c.Locations[0] == b && c.Locations[1] == a)
}

// Center is the midpoint of the endpoints.
func (c *Connection) Center() Vec2 {
	return c.Locations[0].Position.Lerp(c.Locations[1].Position, 0.5)
}

// Length is the straight-line distance between the endpoints.
func (c *Connection) Length() float64 {
	return c.Locations[0].Position.Distance(c.Locations[1].Position)
}

// BiomeID returns the connection's biome identifier, empty when unassigned.
func (c *Connection) BiomeID() catalog.Identifier {
	if c.Biome == nil {
		return ""
	}
	return c.Biome.ID
}

func (c *Connection) String() string {
	return fmt.Sprintf("%s <-> %s", c.Locations[0].Name, c.Locations[1].Name)
}

// replaceEndpoint swaps from for to. It reports false if the result would be a self loop.
func (c *Connection) replaceEndpoint(from, to *Location) bool {
	for i := range c.Locations {
		if c.Locations[i] == from {
			c.Locations[i] = to
		}
	}
	return c.Locations[0] != c.Locations[1]
}
