package redash

import (
	"encoding/json"
	"strconv"
	"time"
)

// Schedule is the refresh schedule of a query. A nil schedule means never.
type Schedule struct {
	Interval  int     `json:"interval"`
	Time      *string `json:"time"`
	DayOfWeek *string `json:"day_of_week"`
	Until     *string `json:"until"`
}

// Query is a saved query as returned by the API.
type Query struct {
	ID                int            `json:"id"`
	Version           int            `json:"version"`
	Name              string         `json:"name"`
	Description       string         `json:"description,omitempty"`
	Query             string         `json:"query"`
	DataSourceID      int            `json:"data_source_id,omitempty"`
	Schedule          *Schedule      `json:"schedule"`
	Options           map[string]any `json:"options,omitempty"`
	LatestQueryDataID *int           `json:"latest_query_data_id"`
	IsDraft           bool           `json:"is_draft"`
	IsArchived        bool           `json:"is_archived"`
	IsFavorite        bool           `json:"is_favorite"`
	CanEdit           bool           `json:"can_edit"`
	Tags              []string       `json:"tags"`
	User              *User          `json:"user,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	RetrievedAt       *time.Time     `json:"retrieved_at,omitempty"`
}

// Dashboard is a dashboard summary.
type Dashboard struct {
	ID         int       `json:"id"`
	Slug       string    `json:"slug"`
	Name       string    `json:"name"`
	Tags       []string  `json:"tags"`
	IsFavorite bool      `json:"is_favorite"`
	IsArchived bool      `json:"is_archived"`
	IsDraft    bool      `json:"is_draft"`
	User       *User     `json:"user,omitempty"`
	PublicURL  string    `json:"public_url,omitempty"`
	APIKey     string    `json:"api_key,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DashboardShare is the public link returned when sharing is enabled.
type DashboardShare struct {
	PublicURL string `json:"public_url"`
	APIKey    string `json:"api_key"`
}

// User is an account on the instance.
type User struct {
	ID                  int        `json:"id"`
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	ProfileImageURL     string     `json:"profile_image_url,omitempty"`
	Groups              []int      `json:"groups,omitempty"`
	IsDisabled          bool       `json:"is_disabled"`
	IsInvitationPending bool       `json:"is_invitation_pending"`
	ActiveAt            *time.Time `json:"active_at,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

// AlertOptions holds the trigger condition of an alert.
type AlertOptions struct {
	Column        string `json:"column"`
	Op            string `json:"op"`
	Value         any    `json:"value"`
	Muted         bool   `json:"muted"`
	CustomSubject string `json:"custom_subject,omitempty"`
	CustomBody    string `json:"custom_body,omitempty"`
}

// Alert watches one column of a query result.
type Alert struct {
	ID              int          `json:"id,omitempty"`
	Name            string       `json:"name"`
	Options         AlertOptions `json:"options"`
	Query           *Query       `json:"query,omitempty"`
	QueryID         int          `json:"query_id,omitempty"`
	Rearm           *int         `json:"rearm"`
	State           string       `json:"state,omitempty"`
	LastTriggeredAt *time.Time   `json:"last_triggered_at,omitempty"`
	User            *User        `json:"user,omitempty"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

// QuerySnippet is a reusable editor snippet.
type QuerySnippet struct {
	ID          int       `json:"id"`
	Trigger     string    `json:"trigger"`
	Description string    `json:"description"`
	Snippet     string    `json:"snippet"`
	User        *User     `json:"user,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Column describes one column of a query result.
type Column struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	FriendlyName string `json:"friendly_name,omitempty"`
}

// OutdatedQueries is the admin report of queries whose results are stale.
type OutdatedQueries struct {
	Queries   []json.RawMessage `json:"queries"`
	UpdatedAt Timestamp         `json:"updated_at"`
}

// Timestamp is a unix time in seconds that the API sends either as a number or as a
// numeric string. Zero means unknown.
type Timestamp float64

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*t = Timestamp(v)
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*t = 0
			return nil
		}
		*t = Timestamp(f)
	default:
		*t = 0
	}
	return nil
}

// Time converts the timestamp, returning the zero time when unknown.
func (t Timestamp) Time() time.Time {
	if t == 0 {
		return time.Time{}
	}
	sec := int64(t)
	nsec := int64((float64(t) - float64(sec)) * float64(time.Second))
	return time.Unix(sec, nsec).UTC()
}
