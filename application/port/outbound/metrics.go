package outbound

// AuthMetrics records outcomes of the authentication flows. Result labels are
// short snake_case reasons such as "success" or "refresh_mismatch".
type AuthMetrics interface {
	ObserveRegistration(result string)
	ObserveLogin(result string)
	ObserveRefresh(result string)
	ObservePasswordReset(stage, result string)
}
