package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Friztone/AlertMe/internal/api"
)

// Wire shapes. Several backend endpoints emit near-identical but not quite
// consistent report payloads; this mapper fixes one canonical tolerant
// policy instead of mirroring every variant.
type reportPayload struct {
	UUID      string         `json:"uuid"`
	Name      string         `json:"name"`
	Deskripsi string         `json:"deskripsi"`
	Lokasi    string         `json:"lokasi_kejadian"`
	Status    string         `json:"status"`
	CreatedAt string         `json:"createdAt"`
	UserUUID  string         `json:"user_uuid"`
	Kantor    *kantorPayload `json:"kantor"`
}

type kantorPayload struct {
	Name   string `json:"name"`
	Alamat string `json:"alamat"`
	Telfon string `json:"telfon"`
}

// MapOffice converts one raw directory entry. Required: uuid, name, alamat.
// telfon stays empty when the office has no listed phone.
func MapOffice(raw json.RawMessage) (Office, error) {
	var o Office
	if err := json.Unmarshal(raw, &o); err != nil {
		return Office{}, api.Malformed(fmt.Errorf("decode office: %w", err))
	}

	var missing []string
	if o.ID == "" {
		missing = append(missing, "uuid")
	}
	if o.Name == "" {
		missing = append(missing, "name")
	}
	if o.Address == "" {
		missing = append(missing, "alamat")
	}
	if len(missing) > 0 {
		return Office{}, api.Malformed(fmt.Errorf("office missing required fields: %s", strings.Join(missing, ", ")))
	}
	return o, nil
}

// MapReport converts one raw server payload into a canonical Report.
//
// Required: uuid, name, deskripsi, lokasi_kejadian, status, and the nested
// kantor object with its name and alamat. Any of those missing fails the
// mapping as malformed; nothing is silently defaulted.
// Tolerated: kantor.telfon and createdAt fall back to Unavailable.
//
// Mapping is pure: the same input always yields an identical Report.
func MapReport(raw json.RawMessage) (Report, error) {
	var p reportPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Report{}, api.Malformed(fmt.Errorf("decode report: %w", err))
	}

	var missing []string
	require := func(field, value string) {
		if value == "" {
			missing = append(missing, field)
		}
	}
	require("uuid", p.UUID)
	require("name", p.Name)
	require("deskripsi", p.Deskripsi)
	require("lokasi_kejadian", p.Lokasi)
	require("status", p.Status)
	if p.Kantor == nil {
		missing = append(missing, "kantor")
	} else {
		require("kantor.name", p.Kantor.Name)
		require("kantor.alamat", p.Kantor.Alamat)
	}
	if len(missing) > 0 {
		return Report{}, api.Malformed(fmt.Errorf("report missing required fields: %s", strings.Join(missing, ", ")))
	}

	out := Report{
		ID:             p.UUID,
		OfficeName:     p.Kantor.Name,
		OfficeAddress:  p.Kantor.Alamat,
		OfficePhone:    p.Kantor.Telfon,
		Title:          p.Name,
		Description:    p.Deskripsi,
		Location:       p.Lokasi,
		Status:         p.Status,
		CreatedAt:      p.CreatedAt,
		ReporterUserID: p.UserUUID,
	}
	if out.OfficePhone == "" {
		out.OfficePhone = Unavailable
	}
	if out.CreatedAt == "" {
		out.CreatedAt = Unavailable
	}
	return out, nil
}
