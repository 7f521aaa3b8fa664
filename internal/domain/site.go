package domain

// Reachability — состояние подключения к сайту (результат проверки связности).
type Reachability string

const (
	SiteOnline   Reachability = "online"
	SiteDisabled Reachability = "disabled"
	SiteDown     Reachability = "down"
	SiteUnreach  Reachability = "unreach"
	SiteDead     Reachability = "dead"
	SiteWaiting  Reachability = "waiting"
	SiteMissing  Reachability = "missing"
	SiteUnknown  Reachability = "unknown"
)

var reachabilityTitles = map[Reachability]string{
	SiteOnline:   "This site is online.",
	SiteDisabled: "The connection to this site has been disabled.",
	SiteDown:     "This site is currently down.",
	SiteUnreach:  "This site is currently not reachable.",
	SiteDead:     "This site is not responding.",
	SiteWaiting:  "The status of this site has not yet been determined.",
	SiteMissing:  "This site does not exist or has been removed.",
	SiteUnknown:  "The status of this site could not be determined.",
}

// ParseReachability отсекает состояния, о которых мы ничего не знаем.
func ParseReachability(s string) (Reachability, error) {
	r := Reachability(s)
	if _, ok := reachabilityTitles[r]; !ok {
		return "", &UnknownStateError{Field: "site_state", Value: s}
	}
	return r, nil
}

// ReachabilityTitles возвращает копию справочника "состояние -> текст для тултипа".
func ReachabilityTitles() map[Reachability]string {
	out := make(map[Reachability]string, len(reachabilityTitles))
	for k, v := range reachabilityTitles {
		out[k] = v
	}
	return out
}

// CSSClass класс иконки для неонлайн-сайта
func (r Reachability) CSSClass() string {
	return "site_" + string(r)
}

// Transport определяет, через что ходим в Tabular Query Service сайта.
type Transport string

const (
	TransportLivestatus Transport = "livestatus"
	TransportGRPC       Transport = "grpc"
	TransportMock       Transport = "mock"
)

// Site — запись реестра сайтов (конфиг или Postgres).
type Site struct {
	ID        string    `json:"id" mapstructure:"id"`
	Alias     string    `json:"alias" mapstructure:"alias"`
	Address   string    `json:"address" mapstructure:"address"` // tcp:host:port | unix:/path | host:port для gRPC
	Transport Transport `json:"transport" mapstructure:"transport"`
	Disabled  bool      `json:"disabled" mapstructure:"disabled"`
	Local     bool      `json:"local" mapstructure:"local"`
	Token     string    `json:"-" mapstructure:"token"`
}

// SiteStatus — то, что отдает Site Reachability Provider, независимо от stats-запроса.
type SiteStatus struct {
	SiteID string       `json:"site_id"`
	State  Reachability `json:"state"`
	Alias  string       `json:"alias"`
}

// SiteStats счетчики хостов одного сайта по пяти взаимоисключающим корзинам.
type SiteStats struct {
	InDowntime           int `json:"hosts_in_downtime"`
	DownOrCritical       int `json:"hosts_down_or_have_critical"`
	UnreachableOrUnknown int `json:"hosts_unreachable_or_have_unknown"`
	UpWithWarning        int `json:"hosts_up_and_have_warning"`
	UpOK                 int `json:"hosts_up_without_problem"`
}

func (s SiteStats) Total() int {
	return s.InDowntime + s.DownOrCritical + s.UnreachableOrUnknown + s.UpWithWarning + s.UpOK
}
