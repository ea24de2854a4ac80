package translator

import (
	"sort"

	"horse.fit/mw-bridge/internal/language"
)

// supportedLanguages maps host locale codes to MotaWord language codes.
// Several host variants collapse onto one remote code (Chinese, Spanish,
// Norwegian); a missing entry means the pair cannot be translated.
var supportedLanguages = map[string]string{
	"af":      "af",
	"ak":      "ak",
	"am":      "am",
	"ar":      "ar",
	"az":      "az",
	"be":      "be",
	"bg":      "bg",
	"bn":      "bn",
	"bs":      "bs",
	"ca":      "ca",
	"cs":      "cs",
	"da":      "da",
	"de":      "de",
	"el":      "el",
	"en":      "en-US",
	"en-gb":   "en-US",
	"es":      "es-ES",
	"es-ar":   "es-AR",
	"es-es":   "es-ES",
	"es-mx":   "es-MX",
	"es-us":   "es-US",
	"et":      "et",
	"fa":      "fa",
	"fa-af":   "fa-AF",
	"fi":      "fi",
	"fr":      "fr",
	"he":      "he",
	"hi":      "hi",
	"hr":      "hr",
	"ht":      "ht",
	"hu":      "hu",
	"hy":      "hy-AM",
	"hy-am":   "hy-AM",
	"id":      "id",
	"is":      "is",
	"it":      "it",
	"ja":      "ja",
	"ka":      "ka",
	"km":      "km",
	"ko":      "ko",
	"ku":      "ku",
	"la":      "la-LA",
	"la-la":   "la-LA",
	"lb":      "lb",
	"lt":      "lt",
	"lv":      "lv",
	"mk":      "mk",
	"ml":      "ml-IN",
	"ml-in":   "ml-IN",
	"ms":      "ms",
	"mt":      "mt",
	"my":      "my",
	"nb":      "no",
	"ne":      "ne-NP",
	"ne-np":   "ne-NP",
	"nl":      "nl",
	"nn":      "no",
	"pa":      "pa-IN",
	"pa-in":   "pa-IN",
	"pl":      "pl",
	"ps":      "ps",
	"pt":      "pt-PT",
	"pt-br":   "pt-BR",
	"pt-pt":   "pt-PT",
	"ro":      "ro",
	"ru":      "ru",
	"sk":      "sk",
	"sl":      "sl",
	"sq":      "sq",
	"sr":      "sr",
	"sv":      "sv-SE",
	"sv-se":   "sv-SE",
	"ta":      "ta",
	"th":      "th",
	"tl":      "tl",
	"tr":      "tr",
	"uk":      "uk",
	"ur":      "ur-PK",
	"ur-pk":   "ur-PK",
	"uz":      "uz",
	"vi":      "vi",
	"wo":      "wo",
	"yi":      "yi",
	"zh":      "zh-CN",
	"zh-cn":   "zh-CN",
	"zh-hans": "zh-CN",
	"zh-hant": "zh-TW",
	"zh-tw":   "zh-TW",
}

// RemoteLanguageCode resolves a host locale code to the MotaWord code.
func RemoteLanguageCode(hostCode string) (string, bool) {
	code, ok := supportedLanguages[language.NormalizeTag(hostCode)]
	return code, ok
}

// SupportedLanguages returns a copy of the host-to-remote locale mapping.
func (t *Translator) SupportedLanguages() map[string]string {
	mapping := make(map[string]string, len(supportedLanguages))
	for host, remote := range supportedLanguages {
		mapping[host] = remote
	}
	return mapping
}

// SupportedHostLanguages lists every host locale code the mapping accepts.
func SupportedHostLanguages() []string {
	codes := make([]string, 0, len(supportedLanguages))
	for code := range supportedLanguages {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}
