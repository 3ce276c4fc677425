package domain

import "strconv"

// Setting keys stored in the catalog's key/value table.
const (
	// SettingLocked is the global locked/unlocked flag. Value is
	// "true" or "false".
	SettingLocked = "bot_locked"

	banKeyPrefix = "banned:"
)

// BanKey derives the settings key holding a user's ban flag.
func BanKey(userID int64) string {
	return banKeyPrefix + strconv.FormatInt(userID, 10)
}
