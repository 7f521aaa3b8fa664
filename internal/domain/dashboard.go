package domain

// RenderMode — режим отрисовки виджета
type RenderMode string

const (
	RenderHosts RenderMode = "hosts"
	RenderSites RenderMode = "sites"
)

// VisualContext — контекст фильтров дашборда: {"site": {"site": "muc"}, "host": {"host": "web"}}
type VisualContext map[string]map[string]string

// Get безопасно достает значение переменной фильтра.
func (c VisualContext) Get(filter, variable string) string {
	if c == nil {
		return ""
	}
	return c[filter][variable]
}

// Settings — пользовательские настройки виджета.
type Settings struct {
	Title       string   `json:"title,omitempty"`
	TitleURL    string   `json:"title_url,omitempty"`
	SingleInfos []string `json:"single_infos,omitempty"`
}

// OverviewRequest — то, что приходит от вызывающей стороны.
type OverviewRequest struct {
	Context  VisualContext `json:"context"`
	Settings Settings      `json:"settings"`
}

// OverviewResponse — сериализуемая модель для слоя отрисовки.
type OverviewResponse struct {
	Title           string     `json:"title"`
	TitleURL        string     `json:"title_url"`
	RenderMode      RenderMode `json:"render_mode"`
	PlotDefinitions []any      `json:"plot_definitions"`
	Data            []Element  `json:"data"`
}

// HostTooltipRequest параметры всплывающей подсказки хоста (запрашивается по hover).
type HostTooltipRequest struct {
	Title           string `json:"title"`
	HostCSSClass    string `json:"host_css_class"`
	ServiceCSSClass string `json:"service_css_class"`
	NumServices     int    `json:"num_services"`
	NumProblems     int    `json:"num_problems"`
}
