package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// OptionList stores the candidate options as a JSON array in a text column.
type OptionList []string

func (o OptionList) Value() (driver.Value, error) {
	if o == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(o))
	if err != nil {
		return nil, fmt.Errorf("marshal options failed: %w", err)
	}
	return string(b), nil
}

func (o *OptionList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*o = nil
		return nil
	case []byte:
		return json.Unmarshal(v, (*[]string)(o))
	case string:
		return json.Unmarshal([]byte(v), (*[]string)(o))
	default:
		return fmt.Errorf("unsupported options column type %T", src)
	}
}

// QuizQuestion rows are created in bulk when the session starts and are
// frozen once the session reaches a terminal status. SelectedIndex and
// IsCorrect stay nil until the question is answered.
type QuizQuestion struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	QuizID        uint       `gorm:"not null;uniqueIndex:uq_quiz_position" json:"quiz_id"`
	Position      int        `gorm:"not null;uniqueIndex:uq_quiz_position" json:"position"`
	Prompt        string     `gorm:"type:text;not null" json:"prompt"`
	Options       OptionList `gorm:"type:text;not null" json:"options"`
	CorrectIndex  int        `gorm:"not null" json:"-"`
	Explanation   string     `gorm:"type:text" json:"-"`
	SelectedIndex *int       `json:"selected_index,omitempty"`
	IsCorrect     *bool      `json:"is_correct,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// Answered reports whether the user has selected an option.
func (q *QuizQuestion) Answered() bool {
	return q.SelectedIndex != nil
}
