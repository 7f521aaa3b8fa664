package overview

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/xela07ax/site-overview/internal/classify"
	"github.com/xela07ax/site-overview/internal/domain"
)

var siteTooltipTmpl = template.Must(template.New("site").Parse(
	`<h3>{{.Title}}</h3><table>` +
		`{{range .Parts}}<tr><td class="color {{.CSSClass}}"></td><td class="count">{{.Count}}</td><td class="title">{{.Title}}</td></tr>{{end}}` +
		`<tr><td class="color"></td><td class="count">{{.Total.Count}}</td><td class="title">{{.Total.Title}}</td></tr>` +
		`</table>`))

var hostTooltipTmpl = template.Must(template.New("host").Parse(
	`<h3>{{.Title}}</h3><span>Host is {{.State}}</span>` +
		`{{if .Up}}<table>` +
		`<tr><td class="count">{{.NumServices}}</td><td>{{.ServicesWord}}</td></tr>` +
		`<tr><td class="count">{{.NumProblems}}</td><td>{{.ProblemsWord}}</td></tr>` +
		`</table>{{end}}`))

// RenderSiteTooltip — таблица корзин сайта для hover
func RenderSiteTooltip(title string, parts []domain.Category, total domain.Category) string {
	var buf bytes.Buffer
	err := siteTooltipTmpl.Execute(&buf, struct {
		Title string
		Parts []domain.Category
		Total domain.Category
	}{title, parts, total})
	if err != nil {
		// Шаблон статический, ошибка возможна только при записи в буфер
		return template.HTMLEscapeString(title)
	}
	return buf.String()
}

// RenderHostTooltip — подсказка хоста. Для не-up хостов только состояние, без таблицы.
func RenderHostTooltip(req domain.HostTooltipRequest) (string, error) {
	if req.NumServices < 0 || req.NumProblems < 0 {
		return "", fmt.Errorf("overview: negative service counters")
	}

	state := req.HostCSSClass
	if state == classify.HostClassDowntime {
		state = "in downtime"
	}

	problems := "problem services"
	switch {
	case req.NumProblems == 1:
		problems = fmt.Sprintf("service in %s state", req.ServiceCSSClass)
	case req.NumProblems > 1:
		problems += fmt.Sprintf(" (worst state: %s)", req.ServiceCSSClass)
	}

	services := "service"
	if req.NumServices > 1 {
		services = "services"
	}

	var buf bytes.Buffer
	err := hostTooltipTmpl.Execute(&buf, struct {
		Title        string
		State        string
		Up           bool
		NumServices  int
		NumProblems  int
		ServicesWord string
		ProblemsWord string
	}{
		Title:        req.Title,
		State:        state,
		Up:           req.HostCSSClass == classify.HostClassUp,
		NumServices:  req.NumServices,
		NumProblems:  req.NumProblems,
		ServicesWord: services,
		ProblemsWord: problems,
	})
	if err != nil {
		return "", fmt.Errorf("overview: render host tooltip: %w", err)
	}
	return buf.String(), nil
}
