package roster

import "errors"

// ErrNotFound is returned when a doctor id does not exist.
var ErrNotFound = errors.New("doctor not found")

// Clinic is one practice location a doctor can be affiliated with.
type Clinic struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Doctor is a roster entry together with its affiliated clinics.
type Doctor struct {
	ID      int64    `json:"id"`
	Name    string   `json:"name"`
	Clinics []Clinic `json:"clinics"`
}

// HasClinic reports whether the doctor is affiliated with clinic id.
func (d *Doctor) HasClinic(id int64) bool {
	for _, c := range d.Clinics {
		if c.ID == id {
			return true
		}
	}
	return false
}

// SoleClinic returns the only affiliated clinic when there is exactly one.
func (d *Doctor) SoleClinic() (Clinic, bool) {
	if len(d.Clinics) != 1 {
		return Clinic{}, false
	}
	return d.Clinics[0], true
}

// ClinicName returns the display name for an affiliated clinic, or "" if the
// doctor has no such clinic.
func (d *Doctor) ClinicName(id int64) string {
	for _, c := range d.Clinics {
		if c.ID == id {
			return c.Name
		}
	}
	return ""
}
