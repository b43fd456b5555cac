// Package postgres is the PostgreSQL persistence backend, built on gorm.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/abhisek/lexis/internal/store"
)

const dateLayout = "2006-01-02"

// Store is the PostgreSQL backend.
type Store struct {
	db *gorm.DB
}

var _ store.Backend = (*Store)(nil)

// Open connects to dsn, configures the pool and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return New(db)
}

// New wraps an open gorm handle and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	// Unique violations surface as gorm.ErrDuplicatedKey.
	db.Config.TranslateError = true

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.AutoMigrate(
		&userModel{},
		&subscriptionModel{},
		&categoryModel{},
		&phraseModel{},
		&progressModel{},
		&llmEventModel{},
	); err != nil {
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Phrases() store.PhraseRepo      { return &phraseRepo{db: s.db} }
func (s *Store) Categories() store.CategoryRepo { return &categoryRepo{db: s.db} }
func (s *Store) Users() store.UserRepo          { return &userRepo{db: s.db} }
func (s *Store) Progress() store.ProgressRepo   { return &progressRepo{db: s.db} }
func (s *Store) Events() store.EventRepo        { return &eventRepo{db: s.db} }

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return err
}

func duplicate(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return store.ErrDuplicate
	}
	return err
}

// phrases

type phraseRepo struct {
	db *gorm.DB
}

func (r *phraseRepo) Create(ctx context.Context, p *store.Phrase) error {
	m := fromPhrase(p)
	m.ID = 0
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return fmt.Errorf("create phrase: %w", duplicate(err))
	}
	p.ID = m.ID
	p.CreatedAt = m.CreatedAt
	return nil
}

func (r *phraseRepo) Get(ctx context.Context, id int) (*store.Phrase, error) {
	var m phraseModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	p := toPhrase(m)
	return &p, nil
}

func (r *phraseRepo) Update(ctx context.Context, p *store.Phrase) error {
	m := fromPhrase(p)
	res := r.db.WithContext(ctx).Model(&phraseModel{}).Where("id = ?", p.ID).Updates(map[string]any{
		"category_id":   m.CategoryID,
		"text_phrase":   m.TextPhrase,
		"text_key":      m.TextKey,
		"spaced_phrase": m.SpacedPhrase,
		"translation":   m.Translation,
		"audio_id":      m.AudioID,
		"image_id":      m.ImageID,
		"comment":       m.Comment,
	})
	if res.Error != nil {
		return fmt.Errorf("update phrase %d: %w", p.ID, duplicate(res.Error))
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *phraseRepo) FindByCategory(ctx context.Context, categoryID int, viewerID int64) ([]store.Phrase, error) {
	var ms []phraseModel
	err := r.db.WithContext(ctx).
		Joins("JOIN categories ON categories.id = phrases.category_id").
		Where("phrases.category_id = ?", categoryID).
		Where("categories.public = ? OR phrases.user_id = ?", true, viewerID).
		Order("phrases.id").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("find phrases of category %d: %w", categoryID, err)
	}
	out := make([]store.Phrase, 0, len(ms))
	for _, m := range ms {
		out = append(out, toPhrase(m))
	}
	return out, nil
}

func (r *phraseRepo) FindDuplicate(ctx context.Context, userID int64, text string) (*store.Phrase, error) {
	var ms []phraseModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND text_key = ?", userID, store.TextKey(text)).
		Limit(1).
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("find duplicate phrase: %w", err)
	}
	if len(ms) == 0 {
		return nil, nil
	}
	p := toPhrase(ms[0])
	return &p, nil
}

// categories

type categoryRepo struct {
	db *gorm.DB
}

func (r *categoryRepo) Create(ctx context.Context, c *store.Category) error {
	m := categoryModel{UserID: c.UserID, Name: c.Name, Public: c.Public}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	c.ID = m.ID
	c.CreatedAt = m.CreatedAt
	return nil
}

func (r *categoryRepo) Get(ctx context.Context, id int) (*store.Category, error) {
	var m categoryModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	c := toCategory(m)
	return &c, nil
}

func (r *categoryRepo) FindByName(ctx context.Context, userID int64, name string) (*store.Category, error) {
	var ms []categoryModel
	err := r.db.WithContext(ctx).Where("user_id = ? AND name = ?", userID, name).Limit(1).Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}
	if len(ms) == 0 {
		return nil, nil
	}
	c := toCategory(ms[0])
	return &c, nil
}

func (r *categoryRepo) Reviewable(ctx context.Context, userID int64) (own, shared []store.Category, err error) {
	withPhrases := r.db.Model(&phraseModel{}).Select("category_id")

	var mine, theirs []categoryModel
	err = r.db.WithContext(ctx).
		Where("user_id = ? AND id IN (?)", userID, withPhrases).
		Order("name").
		Find(&mine).Error
	if err != nil {
		return nil, nil, fmt.Errorf("list own categories: %w", err)
	}
	err = r.db.WithContext(ctx).
		Where("user_id <> ? AND public = ? AND id IN (?)", userID, true, withPhrases).
		Order("name").
		Find(&theirs).Error
	if err != nil {
		return nil, nil, fmt.Errorf("list shared categories: %w", err)
	}

	for _, m := range mine {
		own = append(own, toCategory(m))
	}
	for _, m := range theirs {
		shared = append(shared, toCategory(m))
	}
	return own, shared, nil
}

// users

type userRepo struct {
	db *gorm.DB
}

func (r *userRepo) Ensure(ctx context.Context, u *store.User) error {
	m := userModel{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Language:  u.Language,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"username", "first_name", "last_name", "language"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (r *userRepo) Get(ctx context.Context, id int64) (*store.User, error) {
	var m userModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &store.User{
		ID:         m.ID,
		Username:   m.Username,
		FirstName:  m.FirstName,
		LastName:   m.LastName,
		Language:   m.Language,
		DayCounter: m.DayCounter,
		CreatedAt:  m.CreatedAt,
	}, nil
}

func (r *userRepo) IDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	if err := r.db.WithContext(ctx).Model(&userModel{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return ids, nil
}

func (r *userRepo) Tier(ctx context.Context, id int64) (string, error) {
	var ms []subscriptionModel
	if err := r.db.WithContext(ctx).Where("user_id = ?", id).Limit(1).Find(&ms).Error; err != nil {
		return "", fmt.Errorf("get tier of user %d: %w", id, err)
	}
	if len(ms) == 0 {
		return store.TierFree, nil
	}
	return ms[0].Tier, nil
}

func (r *userRepo) SetSubscription(ctx context.Context, sub store.Subscription) error {
	m := subscriptionModel{UserID: sub.UserID, Tier: sub.Tier}
	if !sub.DateEnd.IsZero() {
		end := sub.DateEnd.UTC()
		m.DateEnd = &end
	}
	err := r.db.WithContext(ctx).Omit(clause.Associations).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tier", "date_end"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("set subscription of user %d: %w", sub.UserID, err)
	}
	return nil
}

func (r *userRepo) DayCounter(ctx context.Context, id int64) (int, error) {
	var m userModel
	if err := r.db.WithContext(ctx).Select("day_counter").First(&m, id).Error; err != nil {
		return 0, notFound(err)
	}
	return m.DayCounter, nil
}

func (r *userRepo) IncrementDayCounter(ctx context.Context, id int64) (int, error) {
	var m userModel
	res := r.db.WithContext(ctx).Model(&m).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "day_counter"}}}).
		Where("id = ?", id).
		UpdateColumn("day_counter", gorm.Expr("day_counter + ?", 1))
	if res.Error != nil {
		return 0, fmt.Errorf("increment day counter of user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return 0, store.ErrNotFound
	}
	return m.DayCounter, nil
}

func (r *userRepo) IncrementDayCounterBelow(ctx context.Context, id int64, limit int) (int, bool, error) {
	var m userModel
	res := r.db.WithContext(ctx).Model(&m).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "day_counter"}}}).
		Where("id = ? AND day_counter < ?", id, limit).
		UpdateColumn("day_counter", gorm.Expr("day_counter + ?", 1))
	if res.Error != nil {
		return 0, false, fmt.Errorf("increment day counter of user %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		n, err := r.DayCounter(ctx, id)
		return n, false, err
	}
	return m.DayCounter, true, nil
}

func (r *userRepo) DeductDayCounter(ctx context.Context, id int64, n int) error {
	err := r.db.WithContext(ctx).Model(&userModel{}).Where("id = ?", id).
		UpdateColumn("day_counter", gorm.Expr("GREATEST(day_counter - ?, 0)", n)).Error
	if err != nil {
		return fmt.Errorf("deduct day counter of user %d: %w", id, err)
	}
	return nil
}

// progress

type progressRepo struct {
	db *gorm.DB
}

func (r *progressRepo) Upsert(ctx context.Context, e store.ProgressEntry) error {
	m := progressModel{UserID: e.UserID, Date: store.Day(e.Date).Format(dateLayout), Score: e.Score}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"score"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("upsert progress of user %d: %w", e.UserID, err)
	}
	return nil
}

func (r *progressRepo) Range(ctx context.Context, userID int64, from, to time.Time) ([]store.ProgressEntry, error) {
	var ms []progressModel
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID,
			store.Day(from).Format(dateLayout), store.Day(to).Format(dateLayout)).
		Order("date").
		Find(&ms).Error
	if err != nil {
		return nil, fmt.Errorf("list progress of user %d: %w", userID, err)
	}
	out := make([]store.ProgressEntry, 0, len(ms))
	for _, m := range ms {
		d, err := time.Parse(dateLayout, m.Date)
		if err != nil {
			return nil, fmt.Errorf("parse progress date %q: %w", m.Date, err)
		}
		out = append(out, store.ProgressEntry{UserID: m.UserID, Date: d, Score: m.Score})
	}
	return out, nil
}

// events

type eventRepo struct {
	db *gorm.DB
}

func (r *eventRepo) AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error {
	m := llmEventModel{
		Timestamp:    time.Now().UTC(),
		Provider:     data.Provider,
		Model:        data.Model,
		Purpose:      data.Purpose,
		InputTokens:  data.InputTokens,
		OutputTokens: data.OutputTokens,
		LatencyMs:    data.LatencyMs,
		Success:      data.Success,
		ErrorMessage: data.ErrorMessage,
		RequestBody:  data.RequestBody,
		ResponseBody: data.ResponseBody,
	}
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("append llm event: %w", err)
	}
	return nil
}

func (r *eventRepo) QueryLLMEvents(ctx context.Context, opts store.QueryOpts) ([]store.LLMEvent, error) {
	q := r.db.WithContext(ctx).Order("id DESC")
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	var ms []llmEventModel
	if err := q.Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("query llm events: %w", err)
	}
	out := make([]store.LLMEvent, 0, len(ms))
	for _, m := range ms {
		out = append(out, toEvent(m))
	}
	return out, nil
}

func (r *eventRepo) GetLLMEvent(ctx context.Context, id int) (*store.LLMEvent, error) {
	var m llmEventModel
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, notFound(err)
	}
	e := toEvent(m)
	return &e, nil
}
