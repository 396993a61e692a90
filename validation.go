package campusauth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/campusworks/campusauth/store"
)

var (
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// Standard field sets handed to campuses that do not pick their own.
var (
	hospitalFields = []string{"Blood Pressure", "Temperature", "Weight", "Diagnosis"}
	hostelFields   = []string{"Room Number", "Floor", "Mess Plan"}
)

func validateSignup(req *SignupRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Institute) == "" {
		return fmt.Errorf("%w: institute required", ErrInvalidInput)
	}
	if strings.TrimSpace(req.Department) == "" {
		return fmt.Errorf("%w: department required", ErrInvalidInput)
	}
	if !req.CampusType.Valid() {
		return fmt.Errorf("%w: unknown campus type", ErrInvalidInput)
	}
	if err := validateEmail(req.Email); err != nil {
		return err
	}
	if err := validateMobile(req.Mobile); err != nil {
		return err
	}
	return validateFields(req.CampusType, req.Fields)
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	return nil
}

func validateMobile(mobile string) error {
	if !mobilePattern.MatchString(mobile) {
		return fmt.Errorf("%w: mobile must be 10 digits", ErrInvalidInput)
	}
	return nil
}

// validateFields checks caller-supplied campus fields. Hospital and
// hostel members get standard sets, so anything supplied there is a
// caller bug.
func validateFields(ct CampusType, fields []string) error {
	switch ct {
	case CampusHospital, CampusHostel:
		if len(fields) != 0 {
			return fmt.Errorf("%w: %s profiles use the standard field set", ErrInvalidInput, ct)
		}
		return nil
	}

	if len(fields) == 0 {
		return fmt.Errorf("%w: at least one subject or course required", ErrInvalidInput)
	}
	if len(fields) > store.MaxFields {
		return fmt.Errorf("%w: at most %d fields", ErrInvalidInput, store.MaxFields)
	}
	seen := make(map[string]bool, len(fields))
	for _, f := range fields {
		name := strings.TrimSpace(f)
		if name == "" {
			return fmt.Errorf("%w: empty field name", ErrInvalidInput)
		}
		key := strings.ToLower(name)
		if seen[key] {
			return fmt.Errorf("%w: duplicate field %q", ErrInvalidInput, name)
		}
		seen[key] = true
	}
	return nil
}

// profileFields resolves the field labels stored at signup.
func profileFields(ct CampusType, supplied []string) []string {
	switch ct {
	case CampusHospital:
		return append([]string(nil), hospitalFields...)
	case CampusHostel:
		return append([]string(nil), hostelFields...)
	default:
		out := make([]string, 0, len(supplied))
		for _, f := range supplied {
			out = append(out, strings.TrimSpace(f))
		}
		return out
	}
}
