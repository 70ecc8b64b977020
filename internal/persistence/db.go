package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/campaign-world/internal/economy"
	"github.com/talgya/campaign-world/internal/engine"
	"github.com/talgya/campaign-world/internal/world"
)

// SQLiteStore keeps campaign maps in a SQLite database.
type SQLiteStore struct {
	conn   *sqlx.DB
	logger *slog.Logger
}

// OpenSQLite opens or creates a SQLite database at the given path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := sqlx.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &SQLiteStore{conn: conn, logger: logger}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *SQLiteStore) Close() error {
	return db.conn.Close()
}

func (db *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS maps (
		id TEXT PRIMARY KEY,
		map_id TEXT NOT NULL,
		seed TEXT NOT NULL,
		current_location INTEGER NOT NULL,
		selected_location INTEGER NOT NULL,
		radiation_amount REAL NOT NULL,
		radiation_enabled INTEGER NOT NULL,
		faction_reputation_json TEXT NOT NULL,
		saved_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		campaign TEXT NOT NULL,
		idx INTEGER NOT NULL,
		type TEXT NOT NULL,
		original_type TEXT NOT NULL,
		discovered INTEGER NOT NULL,
		visited INTEGER NOT NULL,
		cooldown INTEGER NOT NULL,
		steps_since_type_change INTEGER NOT NULL,
		missions_completed INTEGER NOT NULL,
		turns_in_radiation INTEGER NOT NULL,
		price_multiplier REAL NOT NULL,
		mechanical_price_multiplier REAL NOT NULL,
		reputation REAL NOT NULL,
		steps_unvisited INTEGER NOT NULL,
		timers_json TEXT NOT NULL,
		pending_json TEXT NOT NULL,
		taken_items_json TEXT NOT NULL,
		killed_characters_json TEXT NOT NULL,
		missions_json TEXT NOT NULL,
		selected_missions_json TEXT NOT NULL,
		PRIMARY KEY (campaign, idx)
	);

	CREATE TABLE IF NOT EXISTS stores (
		campaign TEXT NOT NULL,
		location INTEGER NOT NULL,
		ordinal INTEGER NOT NULL,
		identifier TEXT NOT NULL,
		balance INTEGER NOT NULL,
		price_modifier INTEGER NOT NULL,
		merchant_faction TEXT NOT NULL,
		steps_since_specials INTEGER NOT NULL,
		stock_json TEXT NOT NULL,
		specials_json TEXT NOT NULL,
		requested_json TEXT NOT NULL,
		PRIMARY KEY (campaign, location, ordinal)
	);

	CREATE TABLE IF NOT EXISTS connections (
		campaign TEXT NOT NULL,
		idx INTEGER NOT NULL,
		passed INTEGER NOT NULL,
		locked INTEGER NOT NULL,
		PRIMARY KEY (campaign, idx)
	);

	CREATE TABLE IF NOT EXISTS events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		campaign TEXT NOT NULL,
		step INTEGER NOT NULL,
		description TEXT NOT NULL,
		category TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_events_campaign ON events(campaign, step);
	`
	_, err := db.conn.Exec(schema)
	return err
}

type mapRow struct {
	ID               string  `db:"id"`
	MapID            string  `db:"map_id"`
	Seed             string  `db:"seed"`
	CurrentLocation  int     `db:"current_location"`
	SelectedLocation int     `db:"selected_location"`
	RadiationAmount  float64 `db:"radiation_amount"`
	RadiationEnabled bool    `db:"radiation_enabled"`
	FactionRepJSON   string  `db:"faction_reputation_json"`
	SavedAt          int64   `db:"saved_at"`
}

type locationRow struct {
	Index                     int     `db:"idx"`
	Type                      string  `db:"type"`
	OriginalType              string  `db:"original_type"`
	Discovered                bool    `db:"discovered"`
	Visited                   bool    `db:"visited"`
	Cooldown                  int     `db:"cooldown"`
	StepsSinceTypeChange      int     `db:"steps_since_type_change"`
	MissionsCompleted         int     `db:"missions_completed"`
	TurnsInRadiation          int     `db:"turns_in_radiation"`
	PriceMultiplier           float64 `db:"price_multiplier"`
	MechanicalPriceMultiplier float64 `db:"mechanical_price_multiplier"`
	Reputation                float64 `db:"reputation"`
	StepsUnvisited            int     `db:"steps_unvisited"`
	TimersJSON                string  `db:"timers_json"`
	PendingJSON               string  `db:"pending_json"`
	TakenItemsJSON            string  `db:"taken_items_json"`
	KilledCharactersJSON      string  `db:"killed_characters_json"`
	MissionsJSON              string  `db:"missions_json"`
	SelectedMissionsJSON      string  `db:"selected_missions_json"`
}

type storeRow struct {
	Location           int    `db:"location"`
	Identifier         string `db:"identifier"`
	Balance            int    `db:"balance"`
	PriceModifier      int    `db:"price_modifier"`
	MerchantFaction    string `db:"merchant_faction"`
	StepsSinceSpecials int    `db:"steps_since_specials"`
	StockJSON          string `db:"stock_json"`
	SpecialsJSON       string `db:"specials_json"`
	RequestedJSON      string `db:"requested_json"`
}

func marshal(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}

// Save writes the campaign's map state (full replace).
func (db *SQLiteStore) Save(ctx context.Context, id string, st world.MapState) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := deleteCampaign(ctx, tx, id, false); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `INSERT INTO maps
		(id, map_id, seed, current_location, selected_location, radiation_amount,
		 radiation_enabled, faction_reputation_json, saved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, st.ID, st.Seed, st.CurrentLocation, st.SelectedLocation,
		st.Radiation.Amount, st.Radiation.Enabled, marshal(st.FactionReputation),
		time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert map %s: %w", id, err)
	}

	locStmt, err := tx.PreparexContext(ctx, `INSERT INTO locations
		(campaign, idx, type, original_type, discovered, visited, cooldown,
		 steps_since_type_change, missions_completed, turns_in_radiation,
		 price_multiplier, mechanical_price_multiplier, reputation, steps_unvisited,
		 timers_json, pending_json, taken_items_json, killed_characters_json,
		 missions_json, selected_missions_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer locStmt.Close()

	storeStmt, err := tx.PreparexContext(ctx, `INSERT INTO stores
		(campaign, location, ordinal, identifier, balance, price_modifier,
		 merchant_faction, steps_since_specials, stock_json, specials_json, requested_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer storeStmt.Close()

	for _, l := range st.Locations {
		_, err := locStmt.ExecContext(ctx,
			id, l.Index, l.Type, l.OriginalType, l.Discovered, l.Visited, l.Cooldown,
			l.StepsSinceTypeChange, l.MissionsCompleted, l.TurnsInRadiation,
			l.PriceMultiplier, l.MechanicalPriceMultiplier, l.Reputation, l.StepsUnvisited,
			marshal(l.TypeChangeTimers), marshal(l.PendingChange), marshal(l.TakenItems),
			marshal(l.KilledCharacters), marshal(l.Missions), marshal(l.SelectedMissions),
		)
		if err != nil {
			return fmt.Errorf("insert location %d: %w", l.Index, err)
		}
		for i, s := range l.Stores {
			_, err := storeStmt.ExecContext(ctx,
				id, l.Index, i, s.Identifier, s.Balance, s.PriceModifier,
				s.MerchantFaction, s.StepsSinceSpecials,
				marshal(s.Stock), marshal(s.DailySpecials), marshal(s.RequestedGoods),
			)
			if err != nil {
				return fmt.Errorf("insert store %s of location %d: %w", s.Identifier, l.Index, err)
			}
		}
	}

	for _, c := range st.Connections {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO connections (campaign, idx, passed, locked) VALUES (?, ?, ?, ?)",
			id, c.Index, c.Passed, c.Locked,
		)
		if err != nil {
			return fmt.Errorf("insert connection %d: %w", c.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	db.logger.Info("campaign saved", "campaign", id, "locations", len(st.Locations))
	return nil
}

// Load reads the campaign's map state.
func (db *SQLiteStore) Load(ctx context.Context, id string) (world.MapState, error) {
	var row mapRow
	err := db.conn.GetContext(ctx, &row, "SELECT * FROM maps WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return world.MapState{}, fmt.Errorf("load %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return world.MapState{}, fmt.Errorf("load %s: %w", id, err)
	}

	st := world.MapState{
		ID:               row.MapID,
		Seed:             row.Seed,
		CurrentLocation:  row.CurrentLocation,
		SelectedLocation: row.SelectedLocation,
		Radiation:        world.Radiation{Amount: row.RadiationAmount, Enabled: row.RadiationEnabled},
	}
	if err := json.Unmarshal([]byte(row.FactionRepJSON), &st.FactionReputation); err != nil {
		return st, fmt.Errorf("decode faction reputation: %w", err)
	}

	var locs []locationRow
	if err := db.conn.SelectContext(ctx, &locs, `SELECT idx, type, original_type, discovered, visited,
		cooldown, steps_since_type_change, missions_completed, turns_in_radiation,
		price_multiplier, mechanical_price_multiplier, reputation, steps_unvisited,
		timers_json, pending_json, taken_items_json, killed_characters_json,
		missions_json, selected_missions_json
		FROM locations WHERE campaign = ? ORDER BY idx`, id); err != nil {
		return st, fmt.Errorf("load locations: %w", err)
	}

	var stores []storeRow
	if err := db.conn.SelectContext(ctx, &stores, `SELECT location, identifier, balance, price_modifier,
		merchant_faction, steps_since_specials, stock_json, specials_json, requested_json
		FROM stores WHERE campaign = ? ORDER BY location, ordinal`, id); err != nil {
		return st, fmt.Errorf("load stores: %w", err)
	}
	byLocation := make(map[int][]economy.StoreState)
	for _, r := range stores {
		s := economy.StoreState{
			Identifier:         r.Identifier,
			Balance:            r.Balance,
			PriceModifier:      r.PriceModifier,
			MerchantFaction:    r.MerchantFaction,
			StepsSinceSpecials: r.StepsSinceSpecials,
		}
		if err := decodeAll(
			r.StockJSON, &s.Stock,
			r.SpecialsJSON, &s.DailySpecials,
			r.RequestedJSON, &s.RequestedGoods,
		); err != nil {
			return st, fmt.Errorf("decode store %s of location %d: %w", r.Identifier, r.Location, err)
		}
		byLocation[r.Location] = append(byLocation[r.Location], s)
	}

	st.Locations = make([]world.LocationState, 0, len(locs))
	for _, r := range locs {
		l := world.LocationState{
			Index:                     r.Index,
			Type:                      r.Type,
			OriginalType:              r.OriginalType,
			Discovered:                r.Discovered,
			Visited:                   r.Visited,
			Cooldown:                  r.Cooldown,
			StepsSinceTypeChange:      r.StepsSinceTypeChange,
			MissionsCompleted:         r.MissionsCompleted,
			TurnsInRadiation:          r.TurnsInRadiation,
			PriceMultiplier:           r.PriceMultiplier,
			MechanicalPriceMultiplier: r.MechanicalPriceMultiplier,
			Reputation:                r.Reputation,
			StepsUnvisited:            r.StepsUnvisited,
			Stores:                    byLocation[r.Index],
		}
		if err := decodeAll(
			r.TimersJSON, &l.TypeChangeTimers,
			r.PendingJSON, &l.PendingChange,
			r.TakenItemsJSON, &l.TakenItems,
			r.KilledCharactersJSON, &l.KilledCharacters,
			r.MissionsJSON, &l.Missions,
			r.SelectedMissionsJSON, &l.SelectedMissions,
		); err != nil {
			return st, fmt.Errorf("decode location %d: %w", r.Index, err)
		}
		st.Locations = append(st.Locations, l)
	}

	st.Connections = []world.ConnectionState{}
	if err := db.conn.SelectContext(ctx, &st.Connections,
		"SELECT idx AS \"index\", passed, locked FROM connections WHERE campaign = ? ORDER BY idx", id); err != nil {
		return st, fmt.Errorf("load connections: %w", err)
	}
	return st, nil
}

// decodeAll unmarshals pairs of JSON text and destination.
func decodeAll(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		if err := json.Unmarshal([]byte(pairs[i].(string)), pairs[i+1]); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the campaign with its events.
func (db *SQLiteStore) Delete(ctx context.Context, id string) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var n int
	if err := tx.GetContext(ctx, &n, "SELECT COUNT(*) FROM maps WHERE id = ?", id); err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	if err := deleteCampaign(ctx, tx, id, true); err != nil {
		return err
	}
	return tx.Commit()
}

func deleteCampaign(ctx context.Context, tx *sqlx.Tx, id string, events bool) error {
	queries := []string{
		"DELETE FROM maps WHERE id = ?",
		"DELETE FROM locations WHERE campaign = ?",
		"DELETE FROM stores WHERE campaign = ?",
		"DELETE FROM connections WHERE campaign = ?",
	}
	if events {
		queries = append(queries, "DELETE FROM events WHERE campaign = ?")
	}
	for _, q := range queries {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	return nil
}

// List returns the saved campaign ids, most recently saved first.
func (db *SQLiteStore) List(ctx context.Context) ([]string, error) {
	var ids []string
	err := db.conn.SelectContext(ctx, &ids, "SELECT id FROM maps ORDER BY saved_at DESC, id")
	return ids, err
}

// SaveEvents appends events to the campaign's log.
func (db *SQLiteStore) SaveEvents(ctx context.Context, id string, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, e := range events {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO events (campaign, step, description, category) VALUES (?, ?, ?, ?)",
			id, e.Step, e.Description, e.Category,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// RecentEvents returns the most recent events of the campaign, newest first.
func (db *SQLiteStore) RecentEvents(ctx context.Context, id string, limit int) ([]engine.Event, error) {
	var events []engine.Event
	err := db.conn.SelectContext(ctx, &events,
		"SELECT step, description, category FROM events WHERE campaign = ? ORDER BY id DESC LIMIT ?",
		id, limit,
	)
	return events, err
}

// SaveMeta stores a key-value pair in world metadata.
func (db *SQLiteStore) SaveMeta(ctx context.Context, key, value string) error {
	_, err := db.conn.ExecContext(ctx,
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.GetContext(ctx, &value, "SELECT value FROM world_meta WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %s: %w", key, ErrNotFound)
	}
	return value, err
}
