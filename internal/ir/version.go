package ir

// Version constants recorded alongside persisted translations.
const (
	// EncodingVersion is the version of the canonical closure encoding.
	EncodingVersion = "1"

	// TranslatorVersion is the version of the translation pipeline. Cached
	// translations from other versions are ignored.
	TranslatorVersion = "0.1.0"
)
