package config

import (
	"log/slog"
	"math"
)

// Hint names accepted by WithHint.
const (
	HintAutomaticPageSize        = "automaticPageSize"
	HintExceptionOnTranslateFail = "exceptionOnTranslationFail"
	HintUseCaching               = "useCaching"
	HintObjectEqualsSafe         = "isObjectEqualsSafe"
	HintAllEqualsSafe            = "isAllEqualsSafe"
	HintCollectionContainsSafe   = "isCollectionContainsSafe"
	HintQueryLogger              = "queryLogger"
)

// HintNames lists every accepted hint.
var HintNames = []string{
	HintAutomaticPageSize,
	HintExceptionOnTranslateFail,
	HintUseCaching,
	HintObjectEqualsSafe,
	HintAllEqualsSafe,
	HintCollectionContainsSafe,
	HintQueryLogger,
}

// WithHint returns a copy of o with a named hint applied. It reports false,
// and returns o unchanged, when the name is unknown or the value has the
// wrong type.
func (o Options) WithHint(name string, value any) (Options, bool) {
	switch name {
	case HintAutomaticPageSize:
		n, ok := asInt(value)
		if !ok || n <= 0 {
			return o, false
		}
		return o.With(WithPageSize(n)), true
	case HintExceptionOnTranslateFail:
		return withBool(o, value, WithDieOnError)
	case HintUseCaching:
		return withBool(o, value, WithCaching)
	case HintObjectEqualsSafe:
		return withBool(o, value, WithObjectEqualsSafe)
	case HintAllEqualsSafe:
		return withBool(o, value, WithAllEqualsSafe)
	case HintCollectionContainsSafe:
		return withBool(o, value, WithCollectionContainsSafe)
	case HintQueryLogger:
		l, ok := value.(*slog.Logger)
		if !ok {
			return o, false
		}
		return o.With(WithLogger(l)), true
	}
	return o, false
}

func withBool(o Options, value any, opt func(bool) Option) (Options, bool) {
	b, ok := value.(bool)
	if !ok {
		return o, false
	}
	return o.With(opt(b)), true
}

// asInt accepts the integer representations TOML, YAML and JSON decoders
// produce.
func asInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case uint64:
		if n > math.MaxInt32 {
			return 0, false
		}
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	}
	return 0, false
}
