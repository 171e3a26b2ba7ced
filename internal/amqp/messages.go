package amqp

import (
	"encoding/json"
	"time"

	"xpdash/internal/core"
)

// ProfileLoadedMessage announces that a user's dashboard was computed.
// It carries headline numbers only, never the session token.
type ProfileLoadedMessage struct {
	UserID       int64     `json:"userId"`
	Login        string    `json:"login"`
	TotalAllTime int64     `json:"totalAllTime"`
	Total6Month  int64     `json:"total6Month"`
	Pass         int       `json:"pass"`
	Fail         int       `json:"fail"`
	AuditRatio   *float64  `json:"auditRatio"`
	LoadedAt     time.Time `json:"loadedAt"`
}

// NewProfileLoadedMessage summarises p. AuditRatio is null when the user
// has never received audit XP.
func NewProfileLoadedMessage(p *core.Profile) *ProfileLoadedMessage {
	msg := &ProfileLoadedMessage{
		UserID:       p.User.ID,
		Login:        p.User.Login,
		TotalAllTime: p.Aggregate.TotalAllTime,
		Total6Month:  p.Aggregate.Total6Month,
		Pass:         p.Aggregate.PassFail.Pass,
		Fail:         p.Aggregate.PassFail.Fail,
		LoadedAt:     p.LoadedAt.UTC(),
	}
	if p.Audit.HasRatio {
		ratio := p.Audit.Ratio
		msg.AuditRatio = &ratio
	}
	return msg
}

// ToJSON converts the message to JSON bytes
func (m *ProfileLoadedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ProfileLoadedMessageFromJSON creates a message from JSON bytes
func ProfileLoadedMessageFromJSON(data []byte) (*ProfileLoadedMessage, error) {
	var msg ProfileLoadedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
