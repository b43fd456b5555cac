package postgres

import (
	"time"

	"github.com/abhisek/lexis/internal/store"
)

type userModel struct {
	ID         int64  `gorm:"primaryKey;autoIncrement:false"`
	Username   string `gorm:"size:64"`
	FirstName  string `gorm:"size:128"`
	LastName   string `gorm:"size:128"`
	Language   string `gorm:"size:16"`
	DayCounter int    `gorm:"not null;default:0"`
	CreatedAt  time.Time
}

func (userModel) TableName() string { return "users" }

type subscriptionModel struct {
	UserID  int64  `gorm:"primaryKey;autoIncrement:false"`
	Tier    string `gorm:"size:32;not null"`
	DateEnd *time.Time
	User    userModel `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (subscriptionModel) TableName() string { return "subscriptions" }

type categoryModel struct {
	ID        int    `gorm:"primaryKey"`
	UserID    int64  `gorm:"not null;index"`
	Name      string `gorm:"size:128;not null"`
	Public    bool   `gorm:"not null;default:false;index"`
	CreatedAt time.Time
}

func (categoryModel) TableName() string { return "categories" }

type phraseModel struct {
	ID           int           `gorm:"primaryKey"`
	CategoryID   int           `gorm:"not null;index"`
	Category     categoryModel `gorm:"constraint:OnDelete:CASCADE"`
	UserID       int64         `gorm:"not null;uniqueIndex:idx_phrase_user_text,priority:1"`
	TextPhrase   string        `gorm:"not null"`
	TextKey      string        `gorm:"not null;uniqueIndex:idx_phrase_user_text,priority:2"`
	SpacedPhrase string
	Translation  string
	AudioID      string
	ImageID      string
	Comment      string
	CreatedAt    time.Time
}

func (phraseModel) TableName() string { return "phrases" }

type progressModel struct {
	ID     int    `gorm:"primaryKey"`
	UserID int64  `gorm:"not null;uniqueIndex:idx_progress_user_date,priority:1"`
	Date   string `gorm:"size:10;not null;uniqueIndex:idx_progress_user_date,priority:2"`
	Score  int    `gorm:"not null;default:0"`
}

func (progressModel) TableName() string { return "user_progress" }

type llmEventModel struct {
	ID           int       `gorm:"primaryKey"`
	Timestamp    time.Time `gorm:"not null;index"`
	Provider     string
	Model        string
	Purpose      string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

func (llmEventModel) TableName() string { return "llm_request_events" }

func toPhrase(m phraseModel) store.Phrase {
	return store.Phrase{
		ID:           m.ID,
		CategoryID:   m.CategoryID,
		UserID:       m.UserID,
		TextPhrase:   m.TextPhrase,
		SpacedPhrase: m.SpacedPhrase,
		Translation:  m.Translation,
		AudioID:      m.AudioID,
		ImageID:      m.ImageID,
		Comment:      m.Comment,
		CreatedAt:    m.CreatedAt,
	}
}

func fromPhrase(p *store.Phrase) phraseModel {
	return phraseModel{
		ID:           p.ID,
		CategoryID:   p.CategoryID,
		UserID:       p.UserID,
		TextPhrase:   p.TextPhrase,
		TextKey:      store.TextKey(p.TextPhrase),
		SpacedPhrase: p.SpacedPhrase,
		Translation:  p.Translation,
		AudioID:      p.AudioID,
		ImageID:      p.ImageID,
		Comment:      p.Comment,
		CreatedAt:    p.CreatedAt,
	}
}

func toCategory(m categoryModel) store.Category {
	return store.Category{ID: m.ID, UserID: m.UserID, Name: m.Name, Public: m.Public, CreatedAt: m.CreatedAt}
}

func toEvent(m llmEventModel) store.LLMEvent {
	return store.LLMEvent{
		ID:        m.ID,
		Timestamp: m.Timestamp,
		LLMRequestEventData: store.LLMRequestEventData{
			Provider:     m.Provider,
			Model:        m.Model,
			Purpose:      m.Purpose,
			InputTokens:  m.InputTokens,
			OutputTokens: m.OutputTokens,
			LatencyMs:    m.LatencyMs,
			Success:      m.Success,
			ErrorMessage: m.ErrorMessage,
			RequestBody:  m.RequestBody,
			ResponseBody: m.ResponseBody,
		},
	}
}
