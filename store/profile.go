package store

// CampusType selects the campus category a profile belongs to. The
// category decides which field labels a profile carries (subjects,
// courses, vitals, room assignment) but the store itself treats the
// labels as opaque strings.
type CampusType uint8

const (
	CampusSchool CampusType = iota + 1
	CampusCollege
	CampusHospital
	CampusHostel
)

// MaxFields caps the campus-specific field labels per profile.
const MaxFields = 10

func (c CampusType) String() string {
	switch c {
	case CampusSchool:
		return "school"
	case CampusCollege:
		return "college"
	case CampusHospital:
		return "hospital"
	case CampusHostel:
		return "hostel"
	default:
		return "unknown"
	}
}

// Valid reports whether c is one of the defined campus categories.
func (c CampusType) Valid() bool {
	return c >= CampusSchool && c <= CampusHostel
}

// Profile is the durable identity record for one portal member.
//
// Identifier is generated at signup and immutable afterwards. Email
// and Mobile are unique across the store and indexed for point
// lookup. PasswordHash holds the PHC-encoded credential digest; the
// plaintext never reaches this package.
type Profile struct {
	Identifier   string     `json:"identifier"`
	Name         string     `json:"name"`
	Institute    string     `json:"institute"`
	Department   string     `json:"department"`
	CampusType   CampusType `json:"campus_type"`
	Email        string     `json:"email"`
	Mobile       string     `json:"mobile"`
	PasswordHash string     `json:"password_hash"`
	Fields       []string   `json:"fields,omitempty"`
}

// Clone returns a deep copy so callers can mutate the result without
// aliasing the stored field slice.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	cp := *p
	if p.Fields != nil {
		cp.Fields = append([]string(nil), p.Fields...)
	}
	return &cp
}
