package overview

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/xela07ax/site-overview/internal/domain"
)

// ContextFilterResolver переводит известные фильтры контекста в заголовки "Filter:".
//
//	host.host             -> Filter: host_name = <v>
//	hostregex.host_regex  -> Filter: host_name ~~ <v>
//	hostgroup.hostgroup   -> Filter: host_groups >= <v>
//	hoststate.hst0..hst2  -> Filter: state = <n> (+ Or: при нескольких)
type ContextFilterResolver struct{}

func (ContextFilterResolver) ResolveFilter(table string, infos []string, ctx domain.VisualContext) (string, error) {
	if table != "hosts" || !slices.Contains(infos, "host") {
		return "", nil
	}

	var lines []string
	add := func(column, op, value string) error {
		if strings.ContainsAny(value, "\r\n") {
			return fmt.Errorf("filter %s: value contains a line break", column)
		}
		lines = append(lines, fmt.Sprintf("Filter: %s %s %s", column, op, value))
		return nil
	}

	if v := ctx.Get("host", "host"); v != "" {
		if err := add("host_name", "=", v); err != nil {
			return "", err
		}
	}
	if v := ctx.Get("hostregex", "host_regex"); v != "" {
		if err := add("host_name", "~~", v); err != nil {
			return "", err
		}
	}
	if v := ctx.Get("hostgroup", "hostgroup"); v != "" {
		if err := add("host_groups", ">=", v); err != nil {
			return "", err
		}
	}

	// Фильтр состояний: отмеченные чекбоксы hst0/hst1/hst2
	if vars, ok := ctx["hoststate"]; ok {
		var states []string
		for i := 0; i <= 2; i++ {
			if vars["hst"+strconv.Itoa(i)] == "on" {
				states = append(states, strconv.Itoa(i))
			}
		}
		if len(states) > 0 && len(states) < 3 {
			for _, s := range states {
				lines = append(lines, "Filter: state = "+s)
			}
			if len(states) > 1 {
				lines = append(lines, "Or: "+strconv.Itoa(len(states)))
			}
		}
	}

	return strings.Join(lines, "\n"), nil
}
