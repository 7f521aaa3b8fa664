package domain

import "encoding/json"

// Дискриминаторы вариантов Element, по ним рендерер выбирает отрисовку.
const (
	ElementTypeSite = "element"
	ElementTypeHost = "host_element"
	ElementTypeIcon = "icon_element"
)

// Category — именованная корзина с количеством. Порядок в слайсе значим (легенда/стек).
type Category struct {
	Title    string `json:"title"`
	CSSClass string `json:"css_class"`
	Count    int    `json:"count"`
}

// Element — закрытая сумма типов {SiteElement, HostElement, IconElement}.
type Element interface {
	ElementType() string
	element()
}

// SiteElement — обычный доступный сайт со счетчиками.
type SiteElement struct {
	Title      string            `json:"title"`
	Tooltip    string            `json:"tooltip"`
	URLAddVars map[string]string `json:"url_add_vars"`
	Total      Category          `json:"total"`
	Parts      []Category        `json:"parts"`
}

// HostElement — хост внутри выбранного сайта.
type HostElement struct {
	Title           string `json:"title"`
	Tooltip         string `json:"tooltip"`
	Link            string `json:"link"`
	HostCSSClass    string `json:"host_css_class"`
	ServiceCSSClass string `json:"service_css_class"`
	HasHostProblem  bool   `json:"has_host_problem"`
	NumServices     int    `json:"num_services"`
	NumProblems     int    `json:"num_problems"`
}

// IconElement — шестиугольник с иконкой для выключенного/недоступного сайта.
type IconElement struct {
	Title    string `json:"title"`
	Tooltip  string `json:"tooltip"`
	CSSClass string `json:"css_class"`
}

func (SiteElement) ElementType() string { return ElementTypeSite }
func (HostElement) ElementType() string { return ElementTypeHost }
func (IconElement) ElementType() string { return ElementTypeIcon }

func (SiteElement) element() {}
func (HostElement) element() {}
func (IconElement) element() {}

func (e SiteElement) MarshalJSON() ([]byte, error) {
	type plain SiteElement
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{ElementTypeSite, plain(e)})
}

func (e HostElement) MarshalJSON() ([]byte, error) {
	type plain HostElement
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{ElementTypeHost, plain(e)})
}

func (e IconElement) MarshalJSON() ([]byte, error) {
	type plain IconElement
	return json.Marshal(struct {
		Type string `json:"type"`
		plain
	}{ElementTypeIcon, plain(e)})
}
