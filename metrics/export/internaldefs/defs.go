// Package internaldefs maps the engine's metric IDs to their exported
// names. Shared by the exporters so every surface agrees on naming.
package internaldefs

import (
	campusauth "github.com/campusworks/campusauth"
)

// CounterDef ties a MetricID to its exposition name and help text.
type CounterDef struct {
	ID   campusauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: campusauth.MetricSignupSuccess, Name: "campusauth_signup_success_total", Help: "Successful member registrations."},
	{ID: campusauth.MetricSignupDuplicate, Name: "campusauth_signup_duplicate_total", Help: "Registrations rejected for a taken identifier, email, or mobile."},
	{ID: campusauth.MetricSignupFailure, Name: "campusauth_signup_failure_total", Help: "Registrations rejected for invalid input or backend failure."},
	{ID: campusauth.MetricSigninSuccess, Name: "campusauth_signin_success_total", Help: "Completed signins."},
	{ID: campusauth.MetricSigninFailure, Name: "campusauth_signin_failure_total", Help: "Signin attempts with bad credentials."},
	{ID: campusauth.MetricSigninLocked, Name: "campusauth_signin_locked_total", Help: "Signin attempts refused while locked out."},
	{ID: campusauth.MetricOTPIssued, Name: "campusauth_otp_issued_total", Help: "Verification codes issued."},
	{ID: campusauth.MetricOTPResent, Name: "campusauth_otp_resent_total", Help: "Verification codes resent."},
	{ID: campusauth.MetricOTPVerified, Name: "campusauth_otp_verified_total", Help: "Verification codes accepted."},
	{ID: campusauth.MetricOTPFailure, Name: "campusauth_otp_failure_total", Help: "Verification codes rejected."},
	{ID: campusauth.MetricOTPExpired, Name: "campusauth_otp_expired_total", Help: "Verification attempts against an expired code."},
	{ID: campusauth.MetricOTPDeliveryFailure, Name: "campusauth_otp_delivery_failure_total", Help: "Signins aborted because no channel delivered the code."},
	{ID: campusauth.MetricAccountLocked, Name: "campusauth_account_locked_total", Help: "Accounts locked by the failure threshold."},
	{ID: campusauth.MetricAccountUnlocked, Name: "campusauth_account_unlocked_total", Help: "Administrative unlocks."},
	{ID: campusauth.MetricSessionCreated, Name: "campusauth_session_created_total", Help: "Sessions created."},
	{ID: campusauth.MetricSessionExpired, Name: "campusauth_session_expired_total", Help: "Sessions that idled out."},
	{ID: campusauth.MetricSessionDestroyed, Name: "campusauth_session_destroyed_total", Help: "Sessions ended by logout."},
	{ID: campusauth.MetricPasswordChangeSuccess, Name: "campusauth_password_change_success_total", Help: "Successful password changes."},
	{ID: campusauth.MetricPasswordChangeDenied, Name: "campusauth_password_change_denied_total", Help: "Password changes rejected."},
	{ID: campusauth.MetricProfileUpdate, Name: "campusauth_profile_update_total", Help: "Profile updates applied."},
	{ID: campusauth.MetricIdentifierRecovery, Name: "campusauth_identifier_recovery_total", Help: "Identifier lookups by contact point."},
	{ID: campusauth.MetricBackupRun, Name: "campusauth_backup_run_total", Help: "Profile backup runs."},
	{ID: campusauth.MetricRestoreRun, Name: "campusauth_restore_run_total", Help: "Profile restore runs."},
}
