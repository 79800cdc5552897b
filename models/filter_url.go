package models

import (
	"net/url"
	"strings"
)

// Share URL parameter names, in the order they are written. These and the
// jobType/status values are the compatibility contract of shared links.
const (
	ParamFrom    = "from"
	ParamTo      = "to"
	ParamSearch  = "search"
	ParamDriver  = "driver"
	ParamJobType = "jobType"
	ParamStatus  = "status"
)

var shareParams = []string{ParamFrom, ParamTo, ParamSearch, ParamDriver, ParamJobType, ParamStatus}

func isShareParam(key string) bool {
	for _, p := range shareParams {
		if p == key {
			return true
		}
	}
	return false
}

type queryPair struct {
	key   string
	value string
}

func (f FilterState) queryPairs() []queryPair {
	p := PayloadOf(f)
	fields := []*string{p.From, p.To, p.Search, p.Driver, p.JobType, p.Status}
	pairs := make([]queryPair, 0, len(fields))
	for i, v := range fields {
		if v != nil {
			pairs = append(pairs, queryPair{key: shareParams[i], value: *v})
		}
	}
	return pairs
}

// Query returns the active fields as URL values.
func (f FilterState) Query() url.Values {
	values := url.Values{}
	for _, p := range f.queryPairs() {
		values.Set(p.key, p.value)
	}
	return values
}

// ToShareURL appends the active fields to baseURL as query parameters in a
// fixed order. Unset fields are omitted entirely. Unrelated parameters already
// on baseURL are kept; stale filter parameters are dropped. A state that
// FromQuery would reject is refused with its ValidationError.
func (f FilterState) ToShareURL(baseURL string) (string, error) {
	if err := f.Validate(); err != nil {
		return "", err
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", NewValidationError("baseURL", "invalid base URL")
	}

	var parts []string
	if u.RawQuery != "" {
		for _, segment := range strings.Split(u.RawQuery, "&") {
			if segment == "" {
				continue
			}
			key, _, _ := strings.Cut(segment, "=")
			if unescaped, err := url.QueryUnescape(key); err == nil && isShareParam(unescaped) {
				continue
			}
			parts = append(parts, segment)
		}
	}
	for _, p := range f.queryPairs() {
		parts = append(parts, url.QueryEscape(p.key)+"="+url.QueryEscape(p.value))
	}

	u.RawQuery = strings.Join(parts, "&")
	u.ForceQuery = false
	return u.String(), nil
}

// FromQuery rebuilds a FilterState from share URL parameters. Parameters with
// an empty value are treated as absent.
func FromQuery(values url.Values) (FilterState, error) {
	get := func(key string) *string {
		v := values.Get(key)
		if v == "" {
			return nil
		}
		return &v
	}
	payload := FilterPayload{
		From:    get(ParamFrom),
		To:      get(ParamTo),
		Search:  get(ParamSearch),
		Driver:  get(ParamDriver),
		JobType: get(ParamJobType),
		Status:  get(ParamStatus),
	}
	return payload.State()
}

// ParseShareURL is FromQuery on the query string of a shared link.
func ParseShareURL(raw string) (FilterState, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return NewFilterState(), NewValidationError("url", "invalid share URL")
	}
	return FromQuery(u.Query())
}
