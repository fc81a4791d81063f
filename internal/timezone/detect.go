// Package timezone guesses a user's IANA time zone from their Telegram
// language code. A guess, not a fact: users who travel keep the zone of
// their language until they change it.
package timezone

import "strings"

const DefaultZone = "Europe/Moscow"

var byLanguage = map[string]string{
	"ru": "Europe/Moscow",
	"uk": "Europe/Kiev",
	"be": "Europe/Minsk",
	"kk": "Asia/Almaty",
	"uz": "Asia/Tashkent",

	"en": "America/New_York",

	"de": "Europe/Berlin",
	"fr": "Europe/Paris",
	"es": "Europe/Madrid",
	"it": "Europe/Rome",
	"pl": "Europe/Warsaw",
	"nl": "Europe/Amsterdam",
	"pt": "Europe/Lisbon",
	"cs": "Europe/Prague",
	"ro": "Europe/Bucharest",
	"sv": "Europe/Stockholm",
	"no": "Europe/Oslo",
	"fi": "Europe/Helsinki",
	"da": "Europe/Copenhagen",
	"el": "Europe/Athens",
	"tr": "Europe/Istanbul",

	"zh": "Asia/Shanghai",
	"ja": "Asia/Tokyo",
	"ko": "Asia/Seoul",
	"hi": "Asia/Kolkata",
	"ar": "Asia/Dubai",
	"he": "Asia/Jerusalem",
	"th": "Asia/Bangkok",
	"vi": "Asia/Ho_Chi_Minh",
	"id": "Asia/Jakarta",

	"fa": "Asia/Tehran",
	"az": "Asia/Baku",
	"ka": "Asia/Tbilisi",
	"hy": "Asia/Yerevan",
}

// Detect maps a Telegram language code ("ru", "en-US", ...) to a zone name,
// falling back to DefaultZone.
func Detect(languageCode string) string {
	if languageCode == "" {
		return DefaultZone
	}
	code := strings.ToLower(languageCode)
	// Telegram sometimes sends IETF tags like "pt-br".
	if i := strings.IndexByte(code, '-'); i > 0 {
		code = code[:i]
	}
	if zone, ok := byLanguage[code]; ok {
		return zone
	}
	return DefaultZone
}
