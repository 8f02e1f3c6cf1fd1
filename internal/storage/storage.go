// Package storage provides the database-backed implementation of the kb
// persistence contracts on top of GORM, supporting SQLite for single-node
// deployments and PostgreSQL for shared ones.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/signalsfoundry/groundstation-scheduler/kb"
	"github.com/signalsfoundry/groundstation-scheduler/model"
)

// Config selects and tunes the database backend.
type Config struct {
	Driver          string // sqlite | postgres
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB implements kb.Store on a GORM connection.
type DB struct {
	db *gorm.DB
}

var _ kb.Store = (*DB)(nil)

// Open connects to the configured database and runs migrations.
func Open(cfg Config) (*DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "sqlite", "":
		dsn := cfg.DSN
		if dsn == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.AutoMigrate(
		&groundStationRecord{},
		&spacecraftRecord{},
		&groundStationChannelRecord{},
		&spacecraftChannelRecord{},
		&ruleRecord{},
		&availabilitySlotRecord{},
		&compatibilityRecord{},
		&operationalSlotRecord{},
	); err != nil {
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	return &DB{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *DB) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return kb.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return kb.ErrExists
	default:
		return err
	}
}

// ---- segments ----

func (s *DB) CreateGroundStation(ctx context.Context, gs *model.GroundStation) error {
	return translate(s.db.WithContext(ctx).Create(toGroundStationRecord(gs)).Error)
}

func (s *DB) GetGroundStation(ctx context.Context, id string) (*model.GroundStation, error) {
	var rec groundStationRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (s *DB) ListGroundStations(ctx context.Context) ([]*model.GroundStation, error) {
	var recs []groundStationRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.GroundStation, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

func (s *DB) CreateSpacecraft(ctx context.Context, sc *model.Spacecraft) error {
	return translate(s.db.WithContext(ctx).Create(toSpacecraftRecord(sc)).Error)
}

func (s *DB) GetSpacecraft(ctx context.Context, id string) (*model.Spacecraft, error) {
	var rec spacecraftRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (s *DB) ListSpacecraft(ctx context.Context) ([]*model.Spacecraft, error) {
	var recs []spacecraftRecord
	if err := s.db.WithContext(ctx).Order("id").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.Spacecraft, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

// ---- channels ----

func (s *DB) CreateGroundStationChannel(ctx context.Context, ch *model.GroundStationChannel) error {
	rec, err := toGSChannelRecord(ch)
	if err != nil {
		return err
	}
	return translate(s.db.WithContext(ctx).Create(rec).Error)
}

func (s *DB) GetGroundStationChannel(ctx context.Context, id string) (*model.GroundStationChannel, error) {
	var rec groundStationChannelRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel()
}

func (s *DB) UpdateGroundStationChannel(ctx context.Context, ch *model.GroundStationChannel) error {
	rec, err := toGSChannelRecord(ch)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&groundStationChannelRecord{}).
		Where("id = ?", ch.ID).
		Select("*").Omit("id", "created_at").
		Updates(rec)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return kb.ErrNotFound
	}
	return nil
}

func (s *DB) DeleteGroundStationChannel(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&groundStationChannelRecord{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return kb.ErrNotFound
	}
	return nil
}

func (s *DB) ListGroundStationChannels(ctx context.Context, groundStationID string) ([]*model.GroundStationChannel, error) {
	q := s.db.WithContext(ctx).Order("id")
	if groundStationID != "" {
		q = q.Where("ground_station_id = ?", groundStationID)
	}
	var recs []groundStationChannelRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.GroundStationChannel, 0, len(recs))
	for i := range recs {
		ch, err := recs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func (s *DB) CreateSpacecraftChannel(ctx context.Context, ch *model.SpacecraftChannel) error {
	return translate(s.db.WithContext(ctx).Create(toSCChannelRecord(ch)).Error)
}

func (s *DB) GetSpacecraftChannel(ctx context.Context, id string) (*model.SpacecraftChannel, error) {
	var rec spacecraftChannelRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (s *DB) UpdateSpacecraftChannel(ctx context.Context, ch *model.SpacecraftChannel) error {
	res := s.db.WithContext(ctx).Model(&spacecraftChannelRecord{}).
		Where("id = ?", ch.ID).
		Select("*").Omit("id", "created_at").
		Updates(toSCChannelRecord(ch))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return kb.ErrNotFound
	}
	return nil
}

func (s *DB) DeleteSpacecraftChannel(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&spacecraftChannelRecord{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return kb.ErrNotFound
	}
	return nil
}

func (s *DB) ListSpacecraftChannels(ctx context.Context, spacecraftID string) ([]*model.SpacecraftChannel, error) {
	q := s.db.WithContext(ctx).Order("id")
	if spacecraftID != "" {
		q = q.Where("spacecraft_id = ?", spacecraftID)
	}
	var recs []spacecraftChannelRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.SpacecraftChannel, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

// ---- rules ----

func (s *DB) CreateRule(ctx context.Context, rule *model.AvailabilityRule) error {
	rec, err := toRuleRecord(rule)
	if err != nil {
		return err
	}
	return translate(s.db.WithContext(ctx).Create(rec).Error)
}

func (s *DB) GetRule(ctx context.Context, id string) (*model.AvailabilityRule, error) {
	var rec ruleRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel()
}

func (s *DB) ListRules(ctx context.Context, groundStationID string) ([]*model.AvailabilityRule, error) {
	q := s.db.WithContext(ctx).Order("id")
	if groundStationID != "" {
		q = q.Where("ground_station_id = ?", groundStationID)
	}
	var recs []ruleRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.AvailabilityRule, 0, len(recs))
	for i := range recs {
		rule, err := recs[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, rule)
	}
	return out, nil
}

func (s *DB) DeleteRule(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&ruleRecord{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return kb.ErrNotFound
	}
	return nil
}

// ---- availability slots ----

func (s *DB) CreateAvailabilitySlot(ctx context.Context, slot *model.AvailabilitySlot) error {
	return translate(s.db.WithContext(ctx).Create(toAvailabilitySlotRecord(slot)).Error)
}

func (s *DB) GetAvailabilitySlot(ctx context.Context, id string) (*model.AvailabilitySlot, error) {
	var rec availabilitySlotRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (s *DB) ListAvailabilitySlots(ctx context.Context, groundStationID string) ([]*model.AvailabilitySlot, error) {
	q := s.db.WithContext(ctx).Order("start")
	if groundStationID != "" {
		q = q.Where("ground_station_id = ?", groundStationID)
	}
	var recs []availabilitySlotRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.AvailabilitySlot, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

func (s *DB) DeleteAvailabilitySlot(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&availabilitySlotRecord{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return kb.ErrNotFound
	}
	return nil
}

// ---- compatibilities ----

func (s *DB) CreateCompatibility(ctx context.Context, c *model.ChannelCompatibility) error {
	return translate(s.db.WithContext(ctx).Create(toCompatibilityRecord(c)).Error)
}

func (s *DB) DeleteCompatibility(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&compatibilityRecord{}, "id = ?", id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return kb.ErrNotFound
	}
	return nil
}

func (s *DB) ListCompatibilities(ctx context.Context, f kb.CompatibilityFilter) ([]*model.ChannelCompatibility, error) {
	q := s.db.WithContext(ctx).Order("id")
	if f.SpacecraftChannelID != "" {
		q = q.Where("spacecraft_channel_id = ?", f.SpacecraftChannelID)
	}
	if f.GroundStationChannelID != "" {
		q = q.Where("ground_station_channel_id = ?", f.GroundStationChannelID)
	}
	if f.GroundStationID != "" {
		q = q.Where("ground_station_id = ?", f.GroundStationID)
	}
	if f.SpacecraftID != "" {
		q = q.Where("spacecraft_id = ?", f.SpacecraftID)
	}
	var recs []compatibilityRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.ChannelCompatibility, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}

// ---- operational slots ----

func (s *DB) CreateOperationalSlot(ctx context.Context, slot *model.OperationalSlot) error {
	return translate(s.db.WithContext(ctx).Create(toOperationalSlotRecord(slot)).Error)
}

func (s *DB) GetOperationalSlot(ctx context.Context, id string) (*model.OperationalSlot, error) {
	var rec operationalSlotRecord
	if err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return rec.toModel(), nil
}

func (s *DB) UpdateOperationalSlot(ctx context.Context, slot *model.OperationalSlot) error {
	res := s.db.WithContext(ctx).Model(&operationalSlotRecord{}).
		Where("id = ?", slot.ID).
		Select("*").Omit("id", "created_at").
		Updates(toOperationalSlotRecord(slot))
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return kb.ErrNotFound
	}
	return nil
}

func (s *DB) ListOperationalSlots(ctx context.Context, f kb.OperationalSlotFilter) ([]*model.OperationalSlot, error) {
	q := s.db.WithContext(ctx).Order("start")
	if len(f.IDs) > 0 {
		q = q.Where("id IN ?", f.IDs)
	}
	if f.AvailabilitySlotID != "" {
		q = q.Where("availability_slot_id = ?", f.AvailabilitySlotID)
	}
	if f.SpacecraftChannelID != "" {
		q = q.Where("spacecraft_channel_id = ?", f.SpacecraftChannelID)
	}
	if f.GroundStationChannelID != "" {
		q = q.Where("ground_station_channel_id = ?", f.GroundStationChannelID)
	}
	if len(f.States) > 0 {
		states := make([]string, 0, len(f.States))
		for _, st := range f.States {
			states = append(states, string(st))
		}
		q = q.Where("state IN ?", states)
	}
	var recs []operationalSlotRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*model.OperationalSlot, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].toModel())
	}
	return out, nil
}
