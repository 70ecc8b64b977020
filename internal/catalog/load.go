package catalog

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultCatalog []byte

// Content file layout. Pointer fields distinguish "absent" from zero so defaults apply.
type fileDoc struct {
	Source        string             `yaml:"source"`
	StartType     string             `yaml:"start_type"`
	Biomes        []fileBiome        `yaml:"biomes"`
	Factions      []fileFaction      `yaml:"factions"`
	Missions      []fileMission      `yaml:"missions"`
	Items         []fileItem         `yaml:"items"`
	LocationTypes []fileLocationType `yaml:"location_types"`
}

type fileBiome struct {
	ID    string `yaml:"id"`
	Name  string `yaml:"name"`
	Zones []int  `yaml:"zones"`
}

type fileFaction struct {
	ID                string   `yaml:"id"`
	Name              string   `yaml:"name"`
	MinReputation     *float64 `yaml:"min_reputation"`
	MaxReputation     *float64 `yaml:"max_reputation"`
	InitialReputation float64  `yaml:"initial_reputation"`
}

type fileMission struct {
	ID           string   `yaml:"id"`
	Name         string   `yaml:"name"`
	Tags         []string `yaml:"tags"`
	Commonness   *float64 `yaml:"commonness"`
	Reward       int      `yaml:"reward"`
	ChangeTypeTo string   `yaml:"change_type_to"`
	ChangeDelay  int      `yaml:"change_delay"`
}

type fileItem struct {
	ID           string      `yaml:"id"`
	Name         string      `yaml:"name"`
	Price        int         `yaml:"price"`
	CanBeSpecial bool        `yaml:"can_be_special"`
	Prices       []filePrice `yaml:"prices"`
}

type filePrice struct {
	Store            string   `yaml:"store"`
	LocationTypes    []string `yaml:"location_types"`
	Price            int      `yaml:"price"`
	MinAvailable     int      `yaml:"min_available"`
	MaxAvailable     int      `yaml:"max_available"`
	BuyingMultiplier float64  `yaml:"buying_multiplier"`
	NotForSale       bool     `yaml:"not_for_sale"`
}

type fileArea struct {
	Zone       *int     `yaml:"zone"`
	Biome      string   `yaml:"biome"`
	Min        int      `yaml:"min"`
	Max        int      `yaml:"max"`
	Commonness float64  `yaml:"commonness"`
	Position   *float64 `yaml:"position"`
}

type fileChange struct {
	To                 string   `yaml:"to"`
	Probability        float64  `yaml:"probability"`
	RequiredDuration   int      `yaml:"required_duration"`
	ProximityIncrease  float64  `yaml:"proximity_increase"`
	Proximity          int      `yaml:"proximity"`
	ProximityTypes     []string `yaml:"proximity_types"`
	RequireDiscovered  bool     `yaml:"require_discovered"`
	RequiredAdjacent   []string `yaml:"require_adjacent"`
	DisallowedAdjacent []string `yaml:"disallow_adjacent"`
	Delay              []int    `yaml:"delay"`
	Cooldown           int      `yaml:"cooldown"`
}

type fileStore struct {
	BuyModifier            *float64 `yaml:"buy_modifier"`
	SellModifier           *float64 `yaml:"sell_modifier"`
	DailySpecialModifier   *float64 `yaml:"daily_special_modifier"`
	RequestGoodModifier    *float64 `yaml:"request_good_modifier"`
	RequestGoodBuyModifier *float64 `yaml:"request_good_buy_modifier"`
	MaxReputationModifier  *float64 `yaml:"max_reputation_modifier"`
	MinReputationModifier  *float64 `yaml:"min_reputation_modifier"`
	InitialBalance         *int     `yaml:"initial_balance"`
	PriceModifierRange     *int     `yaml:"price_modifier_range"`
	DailySpecialsCount     *int     `yaml:"daily_specials"`
	RequestedGoodsCount    *int     `yaml:"requested_goods"`
}

type fileHireable struct {
	Job        string  `yaml:"job"`
	Commonness float64 `yaml:"commonness"`
}

type fileLocationType struct {
	ID                 string         `yaml:"id"`
	Name               string         `yaml:"name"`
	HasOutpost         bool           `yaml:"has_outpost"`
	Names              []string       `yaml:"names"`
	NameFormats        []string       `yaml:"name_formats"`
	Faction            string         `yaml:"faction"`
	SecondaryFaction   string         `yaml:"secondary_faction"`
	BiomeGate          string         `yaml:"biome_gate"`
	Areas              []fileArea     `yaml:"areas"`
	Changes            []fileChange   `yaml:"changes"`
	Store              fileStore      `yaml:"store"`
	Stores             []string       `yaml:"stores"`
	Hireables          []fileHireable `yaml:"hireables"`
	Missions           []string       `yaml:"missions"`
	MissionTags        []string       `yaml:"mission_tags"`
	ReplaceInRadiation string         `yaml:"replace_in_radiation"`
}

// Default builds the registry from the embedded base catalog.
func Default() (*Registry, []Warning, error) {
	return Load(defaultCatalog)
}

// DefaultWith layers content files over the embedded base catalog.
func DefaultWith(paths ...string) (*Registry, []Warning, error) {
	docs := [][]byte{defaultCatalog}
	for _, p := range paths {
		if p == "" {
			continue
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		docs = append(docs, data)
	}
	return Load(docs...)
}

// LoadFiles reads content files in order. Later files extend or override earlier ones.
func LoadFiles(paths ...string) (*Registry, []Warning, error) {
	docs := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, nil, fmt.Errorf("read catalog %s: %w", p, err)
		}
		docs = append(docs, data)
	}
	return Load(docs...)
}

// Load parses YAML content documents into a registry. The first document's source
// and start type become the registry's.
func Load(docs ...[]byte) (*Registry, []Warning, error) {
	var def Definition
	var warnings []Warning

	for i, data := range docs {
		var doc fileDoc
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, nil, fmt.Errorf("parse catalog document %d: %w", i, err)
		}
		if doc.Source == "" {
			doc.Source = VanillaSource
		}
		if i == 0 {
			def.Source = doc.Source
		}
		if def.StartType.IsEmpty() {
			def.StartType = ID(doc.StartType)
		}
		warnings = append(warnings, doc.appendTo(&def)...)
	}

	reg, more, err := NewRegistry(def)
	if err != nil {
		return nil, warnings, err
	}
	return reg, append(warnings, more...), nil
}

func (doc fileDoc) appendTo(def *Definition) []Warning {
	var warnings []Warning
	src := doc.Source

	for _, b := range doc.Biomes {
		def.Biomes = append(def.Biomes, &Biome{ID: ID(b.ID), Name: b.Name, Zones: b.Zones, Source: src})
	}

	for _, f := range doc.Factions {
		fac := &Faction{
			ID:                ID(f.ID),
			Name:              f.Name,
			MinReputation:     -100,
			MaxReputation:     100,
			InitialReputation: f.InitialReputation,
		}
		if f.MinReputation != nil {
			fac.MinReputation = *f.MinReputation
		}
		if f.MaxReputation != nil {
			fac.MaxReputation = *f.MaxReputation
		}
		def.Factions = append(def.Factions, fac)
	}

	for _, m := range doc.Missions {
		commonness := 1.0
		if m.Commonness != nil {
			commonness = *m.Commonness
		}
		def.Missions = append(def.Missions, &Mission{
			ID:                   ID(m.ID),
			Name:                 m.Name,
			Tags:                 IDs(m.Tags),
			Commonness:           commonness,
			Reward:               m.Reward,
			ChangeTypeOnComplete: ID(m.ChangeTypeTo),
			ChangeDelay:          m.ChangeDelay,
		})
	}

	for _, it := range doc.Items {
		item := &Item{ID: ID(it.ID), Name: it.Name, Price: it.Price, CanBeSpecial: it.CanBeSpecial, Source: src}
		for _, p := range it.Prices {
			item.Prices = append(item.Prices, PriceInfo{
				Store:            ID(p.Store),
				LocationTypes:    IDs(p.LocationTypes),
				Price:            p.Price,
				MinAvailable:     p.MinAvailable,
				MaxAvailable:     p.MaxAvailable,
				BuyingMultiplier: p.BuyingMultiplier,
				NotForSale:       p.NotForSale,
			})
		}
		def.Items = append(def.Items, item)
	}

	for _, lt := range doc.LocationTypes {
		t, w := lt.build(src)
		warnings = append(warnings, w...)
		def.LocationTypes = append(def.LocationTypes, t)
	}
	return warnings
}

func (lt fileLocationType) build(src string) (*LocationType, []Warning) {
	var warnings []Warning
	id := ID(lt.ID)

	gate, ok := ParseBiomeGate(lt.BiomeGate)
	if !ok {
		warnings = append(warnings, Warning{Source: src, Subject: string(id),
			Message: fmt.Sprintf("unknown biome gate directive %q, using allow", lt.BiomeGate)})
	}

	t := &LocationType{
		ID:                 id,
		Name:               lt.Name,
		HasOutpost:         lt.HasOutpost,
		Names:              lt.Names,
		NameFormats:        lt.NameFormats,
		Faction:            ID(lt.Faction),
		SecondaryFaction:   ID(lt.SecondaryFaction),
		BiomeGate:          gate,
		Store:              lt.Store.settings(),
		StoreIDs:           IDs(lt.Stores),
		MissionIDs:         IDs(lt.Missions),
		MissionTags:        IDs(lt.MissionTags),
		ReplaceInRadiation: ID(lt.ReplaceInRadiation),
		Source:             src,
	}
	if t.Name == "" {
		t.Name = lt.ID
	}

	for _, h := range lt.Hireables {
		t.Hireables = append(t.Hireables, Hireable{Job: ID(h.Job), Commonness: h.Commonness})
	}

	for _, a := range lt.Areas {
		setting := AreaSetting{MinCount: a.Min, MaxCount: a.Max, Commonness: a.Commonness, Position: a.Position}
		switch {
		case a.Zone != nil && a.Biome == "":
			setting.Area = ZoneArea(*a.Zone)
		case a.Zone == nil && a.Biome != "":
			setting.Area = BiomeArea(ID(a.Biome))
		}
		// Invalid areas are kept so validation can report them.
		t.Areas = append(t.Areas, setting)
	}

	for _, c := range lt.Changes {
		change := TypeChange{
			To:                           ID(c.To),
			Probability:                  c.Probability,
			RequiredDuration:             c.RequiredDuration,
			ProximityProbabilityIncrease: c.ProximityIncrease,
			RequiredProximity:            c.Proximity,
			ProximityTypes:               IDs(c.ProximityTypes),
			RequireDiscovered:            c.RequireDiscovered,
			RequiredAdjacent:             IDs(c.RequiredAdjacent),
			DisallowedAdjacent:           IDs(c.DisallowedAdjacent),
			Cooldown:                     c.Cooldown,
		}
		switch len(c.Delay) {
		case 0:
		case 1:
			change.DelayMin, change.DelayMax = c.Delay[0], c.Delay[0]
		default:
			change.DelayMin, change.DelayMax = c.Delay[0], c.Delay[1]
		}
		t.Changes = append(t.Changes, change)
	}

	return t, warnings
}

func (fs fileStore) settings() StoreSettings {
	s := DefaultStoreSettings()
	setF := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	setI := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	setF(&s.BuyPriceModifier, fs.BuyModifier)
	setF(&s.SellPriceModifier, fs.SellModifier)
	setF(&s.DailySpecialPriceModifier, fs.DailySpecialModifier)
	setF(&s.RequestGoodPriceModifier, fs.RequestGoodModifier)
	setF(&s.RequestGoodBuyPriceModifier, fs.RequestGoodBuyModifier)
	setF(&s.MaxReputationModifier, fs.MaxReputationModifier)
	setF(&s.MinReputationModifier, fs.MinReputationModifier)
	setI(&s.InitialBalance, fs.InitialBalance)
	setI(&s.PriceModifierRange, fs.PriceModifierRange)
	setI(&s.DailySpecialsCount, fs.DailySpecialsCount)
	setI(&s.RequestedGoodsCount, fs.RequestedGoodsCount)
	return s
}
