package datasource

// isHTTPErrorRecoverable reports whether a transport-level HTTP status
// should be retried. 401 and 403 are permanent failures: retrying them
// can't succeed without operator intervention (a bad or revoked key), so
// the pipeline gives up rather than looping forever.
func isHTTPErrorRecoverable(statusCode int) bool {
	switch statusCode {
	case 401, 403:
		return false
	case 400, 408, 429:
		return true
	default:
		if statusCode >= 500 {
			return true
		}
		return statusCode < 400
	}
}
