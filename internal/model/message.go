package model

import "time"

const AnonymousSender = "anonymous"

// ChatMessage is one stored exchange between a visitor and the assistant.
type ChatMessage struct {
	ID                 uint     `gorm:"primaryKey" bson:"-" json:"-"`
	Username           string   `gorm:"size:128;not null" bson:"username" json:"username"`
	UserMessage        string   `gorm:"type:text;not null" bson:"user_message" json:"user_message"`
	BotReply           string   `gorm:"type:text" bson:"bot_reply" json:"bot_reply"`
	RecommendQuestions []string `gorm:"type:text;serializer:json" bson:"recommend_questions" json:"recommend_questions"`
	Timestamp          float64  `gorm:"not null;index" bson:"timestamp" json:"timestamp"`
}

func (ChatMessage) TableName() string { return "chat_messages" }

// UnixSeconds converts t to fractional epoch seconds with millisecond resolution.
func UnixSeconds(t time.Time) float64 {
	return float64(t.UnixMilli()) / 1000
}
