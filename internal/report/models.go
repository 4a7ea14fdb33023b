package report

import "io"

// Category selects one of the emergency-service directories. The values
// double as the backend collection paths.
type Category string

const (
	CategoryFire     Category = "pemadamkebakaran"
	CategoryPolice   Category = "polisi"
	CategoryHospital Category = "rumahsakit"
	CategoryDisaster Category = "bpbd"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryFire, CategoryPolice, CategoryHospital, CategoryDisaster:
		return true
	default:
		return false
	}
}

// Unavailable is the sentinel substituted for optional fields the backend
// omits (office phone, creation timestamp).
const Unavailable = "unavailable"

// Office is one directory entry. Immutable once fetched.
type Office struct {
	ID      string `json:"uuid"`
	Name    string `json:"name"`
	Address string `json:"alamat"`
	Phone   string `json:"telfon,omitempty"`
}

// Report is the canonical local record of an incident report. Instances are
// value objects: the client only ever creates or reads reports, and status
// transitions happen server-side.
type Report struct {
	ID             string
	OfficeName     string
	OfficeAddress  string
	OfficePhone    string
	Title          string
	Description    string
	Location       string
	Status         string
	CreatedAt      string
	ReporterUserID string
}

// Profile is the authenticated user's own record.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Attachment is a named byte stream submitted with a report or a
// verification photo. It exists only for the duration of the upload and is
// streamed from Reader, never persisted locally.
type Attachment struct {
	Filename    string
	ContentType string
	Reader      io.Reader
}
