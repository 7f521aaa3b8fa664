package overview

import (
	"slices"
	"strings"
)

// MacroTitleRenderer подставляет $DEFAULT_TITLE$, $SITE$, $SITE_ALIAS$.
// Неизвестные макросы остаются как есть.
type MacroTitleRenderer struct{}

func (MacroTitleRenderer) RenderTitle(title string, macros map[string]string) string {
	if !strings.Contains(title, "$") || len(macros) == 0 {
		return title
	}

	keys := make([]string, 0, len(macros))
	for k := range macros {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	pairs := make([]string, 0, 2*len(keys))
	for _, k := range keys {
		pairs = append(pairs, k, macros[k])
	}
	return strings.NewReplacer(pairs...).Replace(title)
}
