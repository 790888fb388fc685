package contracts

import "time"

// PublishedList is the per-day, per-source list of published symbols
// ⭐ SSOT: Key = DateKey + ":" + Source
type PublishedList struct {
	DateKey   string                 `json:"date_key"`
	Source    string                 `json:"source"`
	Symbols   []string               `json:"symbols"`
	LockUntil *time.Time             `json:"lock_until,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	PickRunID string                 `json:"pick_run_id,omitempty"`
	Meta      map[string]interface{} `json:"meta,omitempty"`
}

// Key returns the document key of the list
func (p PublishedList) Key() string {
	return PublishKey(p.DateKey, p.Source)
}

// Locked reports whether the list holds a lock that is still live at now
func (p PublishedList) Locked(now time.Time) bool {
	return p.LockUntil != nil && p.LockUntil.After(now)
}

// PublishKey builds the list key for a date and source
func PublishKey(dateKey, source string) string {
	return dateKey + ":" + source
}

// PublishResult is the outcome of one publish attempt
type PublishResult struct {
	Key           string     `json:"key"`
	Symbols       []string   `json:"symbols"`
	Locked        bool       `json:"locked"`
	LockUntil     *time.Time `json:"lock_until,omitempty"`
	Count         int        `json:"count"`
	Note          string     `json:"note,omitempty"`
	MergedIntoSet bool       `json:"merged_into_set"`
}
