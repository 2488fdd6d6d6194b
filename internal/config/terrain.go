package config

import (
	"github.com/spf13/viper"

	"github.com/fitvtt/attrition/pkg/core"
)

// TerrainProfile scales how fast each resource accrues. Harsh terrain makes
// a raw elapsed day count for more than one day of attrition.
type TerrainProfile struct {
	Name   string
	Hunger float64
	Thirst float64
	Rest   float64
}

// Multiplier returns the accrual multiplier for a resource kind.
func (p TerrainProfile) Multiplier(kind core.ResourceKind) float64 {
	var m float64
	switch kind {
	case core.Hunger:
		m = p.Hunger
	case core.Thirst:
		m = p.Thirst
	case core.Rest:
		m = p.Rest
	}
	if m <= 0 {
		return 1
	}
	return m
}

var terrainProfiles = map[string]TerrainProfile{
	"normal":   {Name: "Normal", Hunger: 1.0, Thirst: 1.0, Rest: 1.0},
	"forest":   {Name: "Forest", Hunger: 1.0, Thirst: 1.0, Rest: 1.0},
	"desert":   {Name: "Desert", Hunger: 1.0, Thirst: 1.5, Rest: 1.0},
	"mountain": {Name: "Mountain", Hunger: 1.25, Thirst: 1.0, Rest: 1.25},
	"swamp":    {Name: "Swamp", Hunger: 1.0, Thirst: 1.25, Rest: 1.25},
	"arctic":   {Name: "Arctic", Hunger: 1.5, Thirst: 1.0, Rest: 1.25},
}

// Terrain returns the active terrain profile selected by the "terrain"
// setting. Unknown names fall back to the normal profile.
func Terrain() TerrainProfile {
	if p, ok := terrainProfiles[viper.GetString("terrain")]; ok {
		return p
	}
	return terrainProfiles["normal"]
}

// TerrainNames lists the available terrain presets.
func TerrainNames() []string {
	names := make([]string, 0, len(terrainProfiles))
	for name := range terrainProfiles {
		names = append(names, name)
	}
	return names
}
