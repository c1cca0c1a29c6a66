package domain

import "strings"

// Vocabulary marking an account as part of the tracked VTuber population.
// Matching is case-insensitive substring.
const (
	handleMarker  = "_vt"
	profileMarker = "vtuber"
)

// IsVtuberProfile reports whether a profile belongs to the tracked VTuber
// population, based on its handle, display name and description. Absent
// fields never match.
func IsVtuberProfile(handle string, name, description *string) bool {
	if strings.Contains(strings.ToLower(handle), handleMarker) {
		return true
	}
	if name != nil && strings.Contains(strings.ToLower(*name), profileMarker) {
		return true
	}
	if description != nil && strings.Contains(strings.ToLower(*description), profileMarker) {
		return true
	}
	return false
}
