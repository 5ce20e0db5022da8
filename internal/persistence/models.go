package persistence

import "time"

// Case is the stored form of a scheduling case. The JSON shape matches the
// record format shared by the key-value backends.
type Case struct {
	ID                  string    `json:"id"`
	OwnerID             string    `json:"userId"`
	Name                string    `json:"name"`
	DurationMinutes     int       `json:"duration"`
	BufferMinutes       int       `json:"buffer"`
	MaxSlots            int       `json:"maxSlots"`
	Status              string    `json:"status"`
	Members             []string  `json:"members"`
	ProvisionalEventIDs []string  `json:"provisionalEventIds"`
	ConfirmedEventID    string    `json:"confirmedEventId,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// Clone returns a deep copy of the case.
func (c Case) Clone() Case {
	c.Members = cloneStrings(c.Members)
	c.ProvisionalEventIDs = cloneStrings(c.ProvisionalEventIDs)
	return c
}

// Validate reports ErrConstraintViolation for records that cannot be stored.
func (c Case) Validate() error {
	if c.ID == "" || c.OwnerID == "" || c.Status == "" {
		return ErrConstraintViolation
	}
	return nil
}

func cloneStrings(values []string) []string {
	if len(values) == 0 {
		return []string{}
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
