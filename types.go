package campusauth

import (
	"time"

	"github.com/campusworks/campusauth/session"
	"github.com/campusworks/campusauth/store"
)

// Re-exported so embedding applications only import this package.
type (
	Profile    = store.Profile
	CampusType = store.CampusType
	AuthLevel  = session.AuthLevel
)

const (
	CampusSchool   = store.CampusSchool
	CampusCollege  = store.CampusCollege
	CampusHospital = store.CampusHospital
	CampusHostel   = store.CampusHostel

	LevelBasic    = session.LevelBasic
	LevelEnhanced = session.LevelEnhanced
	LevelAdmin    = session.LevelAdmin
)

// SignupRequest carries everything needed to register a member.
// Fields is only consulted for school and college campuses; hospital
// and hostel profiles receive their standard field sets.
type SignupRequest struct {
	Name       string
	Institute  string
	Department string
	CampusType CampusType
	Email      string
	Mobile     string
	Password   string
	Fields     []string
}

// SignupResult reports the generated identifier and the session the
// member was signed in with.
type SignupResult struct {
	Identifier string
	Session    SessionInfo
}

// SigninResult is returned once a signin fully completes, either
// directly (OTP disabled) or after ConfirmSigninOTP.
type SigninResult struct {
	Identifier string
	Session    SessionInfo
}

// SessionInfo is the caller-visible view of a session.
type SessionInfo struct {
	Token        string
	Identifier   string
	Level        AuthLevel
	CreatedAt    time.Time
	LastActivity time.Time
}

func sessionInfo(s session.Session) SessionInfo {
	return SessionInfo{
		Token:        s.Token,
		Identifier:   s.Identifier,
		Level:        s.Level,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

// ProfileUpdate names the mutable profile fields. Nil pointers leave
// the stored value untouched.
type ProfileUpdate struct {
	Name       *string
	Institute  *string
	Department *string
	Email      *string
	Mobile     *string
	Fields     *[]string
}
