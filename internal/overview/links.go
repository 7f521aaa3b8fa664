package overview

import (
	"net/url"
	"strings"
)

// URLLinkBuilder строит относительные ссылки GUI; BaseURL опционален ("/mysite/check_mk/")
type URLLinkBuilder struct {
	BaseURL string
}

// BuildLink — параметры кодируются в порядке ключей, вывод детерминированный
func (b URLLinkBuilder) BuildLink(filename string, params map[string]string) string {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}

	link := filename
	if b.BaseURL != "" {
		link = strings.TrimSuffix(b.BaseURL, "/") + "/" + filename
	}
	if len(values) == 0 {
		return link
	}
	return link + "?" + values.Encode()
}
