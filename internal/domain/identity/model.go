package identity

import (
	"time"

	"github.com/google/uuid"
)

// Patient is a registered clinic patient. CardID is the human readable number
// printed on the patient card; it is assigned once and never changes.
type Patient struct {
	ID          uuid.UUID  `json:"id"`
	CardID      int64      `json:"cardId"`
	Name        string     `json:"name"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Gender      string     `json:"gender,omitempty"`
	Age         *int       `json:"age,omitempty"`
	DateOfBirth *time.Time `json:"dateOfBirth,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Matches reports whether term is a case-insensitive substring of the name,
// phone or email. term must already be lower-cased.
func (p *Patient) Matches(term string) bool {
	if term == "" {
		return true
	}
	return containsFold(p.Name, term) || containsFold(p.Phone, term) || containsFold(p.Email, term)
}
