package internaldefs

import "github.com/MrEthical07/authcore"

// Def names one exported series.
type Def struct {
	ID   authcore.MetricID
	Name string
	Help string
}

// AuditDropped is exported next to the engine counters.
var AuditDropped = Def{Name: "authcore_audit_dropped_total", Help: "Audit events dropped because the dispatcher buffer was full."}

var Counters = []Def{
	{authcore.MetricRegisterSuccess, "authcore_register_success_total", "Accounts registered."},
	{authcore.MetricRegisterFailure, "authcore_register_failure_total", "Failed registrations."},
	{authcore.MetricRegisterDuplicate, "authcore_register_duplicate_total", "Registrations rejected because the email is taken."},
	{authcore.MetricRegisterRollback, "authcore_register_rollback_total", "Registrations rolled back after the record was created."},
	{authcore.MetricLoginSuccess, "authcore_login_success_total", "Successful password logins."},
	{authcore.MetricLoginFailure, "authcore_login_failure_total", "Failed password logins."},
	{authcore.MetricLoginOTPSuccess, "authcore_login_otp_success_total", "Successful one-time code logins."},
	{authcore.MetricLoginOTPFailure, "authcore_login_otp_failure_total", "Failed one-time code logins."},
	{authcore.MetricRefreshSuccess, "authcore_refresh_success_total", "Refresh token rotations."},
	{authcore.MetricRefreshFailure, "authcore_refresh_failure_total", "Rejected refresh attempts."},
	{authcore.MetricLogout, "authcore_logout_total", "Completed logouts."},
	{authcore.MetricLogoutMismatch, "authcore_logout_mismatch_total", "Logouts rejected because the tokens name different principals."},
	{authcore.MetricOTPIssued, "authcore_otp_issued_total", "One-time codes issued and delivered."},
	{authcore.MetricOTPDeliveryFailure, "authcore_otp_delivery_failure_total", "One-time codes stored but not delivered."},
	{authcore.MetricPasswordResetRequest, "authcore_password_reset_request_total", "Password reset code requests."},
	{authcore.MetricPasswordResetSuccess, "authcore_password_reset_success_total", "Completed password resets."},
	{authcore.MetricPasswordResetFailure, "authcore_password_reset_failure_total", "Failed password resets."},
	{authcore.MetricVerifySuccess, "authcore_verify_success_total", "Accounts verified."},
	{authcore.MetricVerifyFailure, "authcore_verify_failure_total", "Failed account verifications."},
	{authcore.MetricAuthenticateSuccess, "authcore_authenticate_success_total", "Accepted access tokens."},
	{authcore.MetricAuthenticateFailure, "authcore_authenticate_failure_total", "Rejected access tokens."},
	{authcore.MetricStoreUnavailable, "authcore_store_unavailable_total", "Operations failed by an unreachable store."},
}

var Histograms = []Def{
	{authcore.MetricAuthenticateLatency, "authcore_authenticate_latency_seconds", "Authenticate latency."},
}

// Bounds are the bucket upper bounds in seconds, matching the engine buckets.
var Bounds = [8]string{"0.005", "0.01", "0.025", "0.05", "0.1", "0.25", "0.5", "+Inf"}

// BoundSuffixes are Bounds spelled for instrument names.
var BoundSuffixes = [8]string{"0_005", "0_01", "0_025", "0_05", "0_1", "0_25", "0_5", "inf"}

// Cumulative turns raw per-bucket counts into cumulative counts. Missing
// buckets count as zero.
func Cumulative(raw []uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := range out {
		if i < len(raw) {
			running += raw[i]
		}
		out[i] = running
	}
	return out
}
