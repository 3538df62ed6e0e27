package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Character is a game character profile.
type Character struct {
	ID        int64   `db:"id" json:"id"`
	Name      string  `db:"name" json:"name"`
	DetailTxt *string `db:"detail_txt" json:"detail_txt"`
	Level     int     `db:"level" json:"level"`
	Job       string  `db:"job" json:"job"`
	Server    string  `db:"server" json:"server"`
	AvatarURL *string `db:"avatar_url" json:"avatar_url"`
}

// Settlement is an achievement a character earned. AcquiredAt is a calendar
// date and travels as YYYY-MM-DD.
type Settlement struct {
	ID          int64     `db:"id" json:"id"`
	CharacterID int64     `db:"character_id" json:"character_id"`
	Title       string    `db:"title" json:"title"`
	Description *string   `db:"description" json:"description"`
	ImgURL      *string   `db:"img_url" json:"img_url"`
	AcquiredAt  time.Time `db:"acquired_at" json:"acquired_at"`
}

type settlementJSON Settlement

func (s Settlement) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		settlementJSON
		AcquiredAt string `json:"acquired_at"`
	}{settlementJSON(s), s.AcquiredAt.Format(dateLayout)})
}

func (s *Settlement) UnmarshalJSON(b []byte) error {
	aux := struct {
		*settlementJSON
		AcquiredAt string `json:"acquired_at"`
	}{settlementJSON: (*settlementJSON)(s)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	d, err := time.Parse(dateLayout, aux.AcquiredAt)
	if err != nil {
		return fmt.Errorf("acquired_at: %w", err)
	}
	s.AcquiredAt = d
	return nil
}
