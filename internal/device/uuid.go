package device

import "github.com/srg/blebat/internal/bledb"

// Assigned numbers used by the battery reader, in normalized form.
const (
	BatteryServiceUUID  = "180f"
	BatteryLevelUUID    = "2a19"
	UserDescriptionUUID = "2901"
)

// NormalizeUUID is re-exported from bledb for convenience.
// It converts a UUID string to the internal format (lowercase, no dashes),
// shortening Bluetooth SIG base UUIDs to their 16-bit form.
func NormalizeUUID(uuid string) string {
	return bledb.NormalizeUUID(uuid)
}

// NormalizeUUIDs is re-exported from bledb for convenience.
func NormalizeUUIDs(uuids []string) []string {
	return bledb.NormalizeUUIDs(uuids)
}

// MatchesAny reports whether any of the reported UUIDs is in filter.
// Both sides are normalized; an empty filter matches nothing.
func MatchesAny(reported, filter []string) bool {
	if len(filter) == 0 {
		return false
	}
	wanted := make(map[string]struct{}, len(filter))
	for _, f := range filter {
		wanted[NormalizeUUID(f)] = struct{}{}
	}
	for _, r := range reported {
		if _, ok := wanted[NormalizeUUID(r)]; ok {
			return true
		}
	}
	return false
}

// SameUUID compares two UUIDs in any textual form.
func SameUUID(a, b string) bool {
	return NormalizeUUID(a) == NormalizeUUID(b)
}
