package store

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/feral-file/ff-name-registry/internal/domain"
	"github.com/feral-file/ff-name-registry/internal/identity"
	"github.com/feral-file/ff-name-registry/internal/ledger"
	"github.com/feral-file/ff-name-registry/internal/settlement"
	"github.com/feral-file/ff-name-registry/internal/store/schema"
)

// Keys of the registry-wide scalars in key_value_store
const (
	KeyAcquisitions    = "ledger.acquisitions"
	KeyReactions       = "ledger.reactions"
	KeyReveals         = "ledger.reveals"
	KeyLastCreated     = "ledger.last_created"
	KeyLastRented      = "ledger.last_rented"
	KeyTreasuryBalance = "ledger.treasury_balance"

	KeyPaused          = "registry.paused"
	KeyInitialized     = "registry.initialized"
	KeyTreasury        = "registry.treasury"
	KeyBaseRentalPrice = "registry.base_rental_price"
	KeyPriceMultiplier = "registry.price_multiplier"
	KeyRentalPeriod    = "registry.rental_period"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM database connection.
// If any of the pool settings are 0, the defaults of NormalizeConnectionPoolSettings are used.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime =
		NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime)

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// NormalizeConnectionPoolSettings applies defaults and clamps pool settings into safe values.
//
// Defaults (when zero):
//   - MaxOpenConns: 20
//   - MaxIdleConns: 5
//   - ConnMaxLifetime: 5 minutes
//   - ConnMaxIdleTime: 10 minutes
func NormalizeConnectionPoolSettings(maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) (int, int, time.Duration, time.Duration) {
	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	// Ensure MaxIdleConns doesn't exceed MaxOpenConns
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}

	return maxOpenConns, maxIdleConns, connMaxLifetime, connMaxIdleTime
}

// LoadState reads every table and rebuilds the registry state
func (s *pgStore) LoadState(ctx context.Context) (*Snapshot, error) {
	db := s.db.WithContext(ctx)
	snap := &Snapshot{}

	var records []schema.NameRecord
	if err := db.Order("position ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load name records: %w", err)
	}
	for _, r := range records {
		rec, err := recordFromRow(r)
		if err != nil {
			return nil, err
		}
		snap.Ledger.Records = append(snap.Ledger.Records, rec)
	}

	var contacts []schema.NameContact
	if err := db.Find(&contacts).Error; err != nil {
		return nil, fmt.Errorf("failed to load name contacts: %w", err)
	}
	for _, c := range contacts {
		snap.Ledger.Contacts = append(snap.Ledger.Contacts, ledger.ContactEntry{
			Key:       common.HexToHash(c.NameKey),
			Field:     domain.Field(c.Field),
			Value:     c.Value,
			UpdatedAt: c.FieldUpdatedAt,
		})
	}

	var grants []schema.RevealGrant
	if err := db.Find(&grants).Error; err != nil {
		return nil, fmt.Errorf("failed to load reveal grants: %w", err)
	}
	for _, g := range grants {
		snap.Ledger.Grants = append(snap.Ledger.Grants, ledger.GrantEntry{
			Requester: common.HexToAddress(g.Requester),
			Key:       common.HexToHash(g.NameKey),
			Field:     domain.Field(g.Field),
			GrantedAt: g.GrantedAt,
		})
	}

	var reactions []schema.ReactionCount
	if err := db.Find(&reactions).Error; err != nil {
		return nil, fmt.Errorf("failed to load reaction counts: %w", err)
	}
	for _, r := range reactions {
		snap.Ledger.Reactions = append(snap.Ledger.Reactions, ledger.ReactionEntry{
			Key:      common.HexToHash(r.NameKey),
			Reaction: domain.Reaction(r.Reaction),
			Count:    uint64(r.Count), //nolint:gosec,G115 // counts are never negative
		})
	}

	var history []schema.HolderHistory
	if err := db.Order("id ASC").Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to load holder history: %w", err)
	}
	for _, h := range history {
		snap.Ledger.History = append(snap.Ledger.History, ledger.HistoryEntry{
			Key:    common.HexToHash(h.NameKey),
			Holder: common.HexToAddress(h.Holder),
			At:     h.ChangedAt,
		})
	}

	var tokens []schema.IdentityToken
	if err := db.Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to load identity tokens: %w", err)
	}
	for _, t := range tokens {
		snap.Tokens = append(snap.Tokens, identity.Token{
			Key:    common.HexToHash(t.NameKey),
			Holder: common.HexToAddress(t.Holder),
		})
	}

	var balances []schema.AccountBalance
	if err := db.Find(&balances).Error; err != nil {
		return nil, fmt.Errorf("failed to load account balances: %w", err)
	}
	for _, b := range balances {
		amount, err := parseAmount(b.Balance)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance of %s: %w", b.Address, err)
		}
		snap.Balances = append(snap.Balances, settlement.Balance{
			Address: common.HexToAddress(b.Address),
			Amount:  amount,
		})
	}

	var kvs []schema.KeyValueStore
	if err := db.Find(&kvs).Error; err != nil {
		return nil, fmt.Errorf("failed to load key value store: %w", err)
	}
	values := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		values[kv.Key] = kv.Value
	}

	globals, err := globalsFromValues(values)
	if err != nil {
		return nil, err
	}
	snap.Ledger.Globals = globals

	settings, err := settingsFromValues(values)
	if err != nil {
		return nil, err
	}
	snap.Settings = settings

	return snap, nil
}

// Commit writes a change set in one transaction
func (s *pgStore) Commit(ctx context.Context, changes ChangeSet) error {
	if changes.Empty() {
		return nil
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		// 1. Records first, every other table references them
		if len(changes.Records) > 0 {
			rows := make([]schema.NameRecord, 0, len(changes.Records))
			for _, rec := range changes.Records {
				rows = append(rows, recordToRow(rec, now))
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"holder", "last_updated_at", "last_price", "presented_url",
					"prev_position", "next_position", "updated_at",
				}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to upsert name records: %w", err)
			}
		}

		// 2. Private fields and grants
		if len(changes.Contacts) > 0 {
			rows := make([]schema.NameContact, 0, len(changes.Contacts))
			for _, c := range changes.Contacts {
				rows = append(rows, schema.NameContact{
					NameKey:        c.Key.Hex(),
					Field:          string(c.Field),
					Value:          c.Value,
					FieldUpdatedAt: c.UpdatedAt,
				})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name_key"}, {Name: "field"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "field_updated_at"}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to upsert name contacts: %w", err)
			}
		}

		if len(changes.Grants) > 0 {
			rows := make([]schema.RevealGrant, 0, len(changes.Grants))
			for _, g := range changes.Grants {
				rows = append(rows, schema.RevealGrant{
					Requester: g.Requester.Hex(),
					NameKey:   g.Key.Hex(),
					Field:     string(g.Field),
					GrantedAt: g.GrantedAt,
				})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "requester"}, {Name: "name_key"}, {Name: "field"}},
				DoUpdates: clause.AssignmentColumns([]string{"granted_at"}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to upsert reveal grants: %w", err)
			}
		}

		// 3. Reaction counters
		if len(changes.Reactions) > 0 {
			rows := make([]schema.ReactionCount, 0, len(changes.Reactions))
			for _, r := range changes.Reactions {
				rows = append(rows, schema.ReactionCount{
					NameKey:  r.Key.Hex(),
					Reaction: string(r.Reaction),
					Count:    int64(r.Count), //nolint:gosec,G115
				})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name_key"}, {Name: "reaction"}},
				DoUpdates: clause.AssignmentColumns([]string{"count"}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to upsert reaction counts: %w", err)
			}
		}

		// 4. Identity tokens and holder history
		if len(changes.Tokens) > 0 {
			rows := make([]schema.IdentityToken, 0, len(changes.Tokens))
			for _, t := range changes.Tokens {
				rows = append(rows, schema.IdentityToken{
					NameKey:   t.Key.Hex(),
					TokenID:   t.ID().String(),
					Holder:    t.Holder.Hex(),
					UpdatedAt: now,
				})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name_key"}},
				DoUpdates: clause.AssignmentColumns([]string{"holder", "updated_at"}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to upsert identity tokens: %w", err)
			}
		}

		if len(changes.History) > 0 {
			rows := make([]schema.HolderHistory, 0, len(changes.History))
			for _, h := range changes.History {
				rows = append(rows, schema.HolderHistory{
					NameKey:   h.Key.Hex(),
					Holder:    h.Holder.Hex(),
					ChangedAt: h.At,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to append holder history: %w", err)
			}
		}

		// 5. Vault balances
		if len(changes.Balances) > 0 {
			rows := make([]schema.AccountBalance, 0, len(changes.Balances))
			for _, b := range changes.Balances {
				rows = append(rows, schema.AccountBalance{
					Address:   b.Address.Hex(),
					Balance:   b.Amount.String(),
					UpdatedAt: now,
				})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "address"}},
				DoUpdates: clause.AssignmentColumns([]string{"balance", "updated_at"}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to upsert account balances: %w", err)
			}
		}

		// 6. Registry-wide scalars
		var values map[string]string
		if changes.Globals != nil {
			values = globalsToValues(*changes.Globals)
		}
		if changes.Settings != nil {
			if values == nil {
				values = make(map[string]string)
			}
			for k, v := range settingsToValues(*changes.Settings) {
				values[k] = v
			}
		}
		if len(values) > 0 {
			rows := make([]schema.KeyValueStore, 0, len(values))
			for k, v := range values {
				rows = append(rows, schema.KeyValueStore{Key: k, Value: v})
			}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to upsert key value store: %w", err)
			}
		}

		// 7. Outbox events, delivered by the relay after this transaction commits
		if len(changes.Outbox) > 0 {
			rows := make([]schema.OutboxEvent, 0, len(changes.Outbox))
			for i := range changes.Outbox {
				event := &changes.Outbox[i]
				payload, err := json.Marshal(event)
				if err != nil {
					return fmt.Errorf("failed to marshal outbox event %s: %w", event.ID, err)
				}
				rows = append(rows, schema.OutboxEvent{
					EventID:   event.ID,
					EventType: string(event.Type),
					Name:      event.Name,
					Payload:   payload,
					Status:    schema.OutboxStatusPending,
				})
			}
			if err := tx.Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to write outbox events: %w", err)
			}
		}

		return nil
	})
}

// GetPendingOutboxEvents retrieves pending outbox events, oldest first
func (s *pgStore) GetPendingOutboxEvents(ctx context.Context, limit int, maxAttempts int) ([]*schema.OutboxEvent, error) {
	var events []*schema.OutboxEvent
	err := s.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", schema.OutboxStatusPending, maxAttempts).
		Order("id ASC").
		Limit(limit).
		Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending outbox events: %w", err)
	}
	return events, nil
}

// MarkOutboxEventDelivered marks an outbox event as delivered
func (s *pgStore) MarkOutboxEventDelivered(ctx context.Context, id uint64, at time.Time) error {
	result := s.db.WithContext(ctx).
		Model(&schema.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          schema.OutboxStatusDelivered,
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": at,
			"delivered_at":    at,
			"error_message":   "",
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark outbox event delivered: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox event %d not found", id)
	}
	return nil
}

// MarkOutboxEventFailed records a failed attempt, failing the event for good at maxAttempts
func (s *pgStore) MarkOutboxEventFailed(ctx context.Context, id uint64, at time.Time, errMsg string, maxAttempts int) error {
	result := s.db.WithContext(ctx).
		Model(&schema.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END",
				maxAttempts, schema.OutboxStatusFailed, schema.OutboxStatusPending),
			"attempts":        gorm.Expr("attempts + 1"),
			"last_attempt_at": at,
			"error_message":   errMsg,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark outbox event failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("outbox event %d not found", id)
	}
	return nil
}

func recordToRow(rec ledger.Record, now time.Time) schema.NameRecord {
	row := schema.NameRecord{
		Key:          rec.Key.Hex(),
		Position:     rec.Index,
		Name:         rec.Name,
		LastPrice:    "0",
		PresentedURL: rec.PresentedURL,
		UpdatedAt:    now,
	}
	if rec.Acquired() {
		holder := rec.Holder.Hex()
		row.Holder = &holder
	}
	if !rec.LastUpdatedAt.IsZero() {
		at := rec.LastUpdatedAt
		row.LastUpdatedAt = &at
	}
	if rec.LastPrice != nil {
		row.LastPrice = rec.LastPrice.String()
	}
	row.PrevPosition = positionPtr(rec.Prev)
	row.NextPosition = positionPtr(rec.Next)
	return row
}

func recordFromRow(row schema.NameRecord) (ledger.Record, error) {
	price, err := parseAmount(row.LastPrice)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("failed to parse last price of %q: %w", row.Name, err)
	}

	rec := ledger.Record{
		Index:        row.Position,
		Name:         row.Name,
		Key:          common.HexToHash(row.Key),
		LastPrice:    price,
		PresentedURL: row.PresentedURL,
		Prev:         positionValue(row.PrevPosition),
		Next:         positionValue(row.NextPosition),
	}
	if row.Holder != nil {
		rec.Holder = common.HexToAddress(*row.Holder)
	}
	if row.LastUpdatedAt != nil {
		rec.LastUpdatedAt = *row.LastUpdatedAt
	}
	return rec, nil
}

func positionPtr(idx int) *int {
	if idx == ledger.NoIndex {
		return nil
	}
	return &idx
}

func positionValue(p *int) int {
	if p == nil {
		return ledger.NoIndex
	}
	return *p
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}

func globalsToValues(g ledger.Globals) map[string]string {
	treasury := "0"
	if g.TreasuryBalance != nil {
		treasury = g.TreasuryBalance.String()
	}
	return map[string]string{
		KeyAcquisitions:    strconv.FormatUint(g.Acquisitions, 10),
		KeyReactions:       strconv.FormatUint(g.Reactions, 10),
		KeyReveals:         strconv.FormatUint(g.Reveals, 10),
		KeyLastCreated:     strconv.Itoa(g.LastCreated),
		KeyLastRented:      strconv.Itoa(g.LastRented),
		KeyTreasuryBalance: treasury,
	}
}

func globalsFromValues(values map[string]string) (ledger.Globals, error) {
	g := ledger.Globals{
		LastCreated:     ledger.NoIndex,
		LastRented:      ledger.NoIndex,
		TreasuryBalance: new(big.Int),
	}

	var err error
	for key, dst := range map[string]*uint64{
		KeyAcquisitions: &g.Acquisitions,
		KeyReactions:    &g.Reactions,
		KeyReveals:      &g.Reveals,
	} {
		if v, ok := values[key]; ok {
			if *dst, err = strconv.ParseUint(v, 10, 64); err != nil {
				return g, fmt.Errorf("failed to parse %s: %w", key, err)
			}
		}
	}
	for key, dst := range map[string]*int{
		KeyLastCreated: &g.LastCreated,
		KeyLastRented:  &g.LastRented,
	} {
		if v, ok := values[key]; ok {
			if *dst, err = strconv.Atoi(v); err != nil {
				return g, fmt.Errorf("failed to parse %s: %w", key, err)
			}
		}
	}
	if v, ok := values[KeyTreasuryBalance]; ok {
		if g.TreasuryBalance, err = parseAmount(v); err != nil {
			return g, fmt.Errorf("failed to parse %s: %w", KeyTreasuryBalance, err)
		}
	}
	return g, nil
}

func settingsToValues(st Settings) map[string]string {
	values := map[string]string{
		KeyPaused:      strconv.FormatBool(st.Paused),
		KeyInitialized: strconv.FormatBool(st.Initialized),
	}
	if !domain.IsZeroAddress(st.Treasury) {
		values[KeyTreasury] = st.Treasury.Hex()
	}
	if st.BaseRentalPrice != nil {
		values[KeyBaseRentalPrice] = st.BaseRentalPrice.String()
	}
	if st.PriceMultiplier != 0 {
		values[KeyPriceMultiplier] = strconv.FormatUint(st.PriceMultiplier, 10)
	}
	if st.RentalPeriod != 0 {
		values[KeyRentalPeriod] = st.RentalPeriod.String()
	}
	return values
}

func settingsFromValues(values map[string]string) (*Settings, error) {
	initialized, ok := values[KeyInitialized]
	if !ok {
		return nil, nil
	}

	st := &Settings{}
	var err error
	if st.Initialized, err = strconv.ParseBool(initialized); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", KeyInitialized, err)
	}
	if v, ok := values[KeyPaused]; ok {
		if st.Paused, err = strconv.ParseBool(v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", KeyPaused, err)
		}
	}
	if v, ok := values[KeyTreasury]; ok {
		if !common.IsHexAddress(v) {
			return nil, fmt.Errorf("invalid %s %q", KeyTreasury, v)
		}
		st.Treasury = common.HexToAddress(v)
	}
	if v, ok := values[KeyBaseRentalPrice]; ok {
		if st.BaseRentalPrice, err = parseAmount(v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", KeyBaseRentalPrice, err)
		}
	}
	if v, ok := values[KeyPriceMultiplier]; ok {
		if st.PriceMultiplier, err = strconv.ParseUint(v, 10, 64); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", KeyPriceMultiplier, err)
		}
	}
	if v, ok := values[KeyRentalPeriod]; ok {
		if st.RentalPeriod, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", KeyRentalPeriod, err)
		}
	}
	return st, nil
}
