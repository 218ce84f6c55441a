package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/unicode"

	"github.com/duluk/weatherjson/pkg/weather"
)

/*
	OpenWeather API Response Codes
	Success codes
	200  // Success

	Error codes
	400  // Bad request (e.g., invalid parameters)
	401  // Unauthorized (invalid API key)
	404  // City not found
	429  // Too many requests (exceeded rate limit)
	500  // Internal server error

	Any status outside 2xx is reported as-is, without retrying.
*/

const (
	DefaultBaseURL = "https://api.openweathermap.org/data/2.5"

	unknownDescription = "unknown"
)

// FindData is the subset of the /find response that gets reshaped. Every
// field except the country is required; pointers record whether it was sent.
type FindData struct {
	List *[]CityWeather `json:"list"`
}

type CityWeather struct {
	Name *string `json:"name"`
	Sys  *struct {
		Country *string `json:"country"`
	} `json:"sys"`
	Main *struct {
		Temp     *float64 `json:"temp"`
		Humidity *uint32  `json:"humidity"`
	} `json:"main"`
	Weather *[]struct {
		Description *string `json:"description"`
	} `json:"weather"`
	Wind *struct {
		Speed *float64 `json:"speed"`
	} `json:"wind"`
}

func (d *FindData) validate() error {
	if d.List == nil {
		return errors.New("missing field `list`")
	}
	for i := range *d.List {
		if err := (*d.List)[i].validate(); err != nil {
			return errors.Wrapf(err, "list[%d]", i)
		}
	}
	return nil
}

func (c *CityWeather) validate() error {
	switch {
	case c.Name == nil:
		return errors.New("missing field `name`")
	case c.Sys == nil:
		return errors.New("missing field `sys`")
	case c.Main == nil:
		return errors.New("missing field `main`")
	case c.Main.Temp == nil:
		return errors.New("missing field `main.temp`")
	case c.Main.Humidity == nil:
		return errors.New("missing field `main.humidity`")
	case c.Weather == nil:
		return errors.New("missing field `weather`")
	case c.Wind == nil:
		return errors.New("missing field `wind`")
	case c.Wind.Speed == nil:
		return errors.New("missing field `wind.speed`")
	}
	for i, w := range *c.Weather {
		if w.Description == nil {
			return errors.Errorf("missing field `weather[%d].description`", i)
		}
	}
	return nil
}

type Provider struct {
	apiKey  string
	baseURL string
	fetcher Fetcher
	log     logrus.FieldLogger
}

type Option func(*Provider)

// WithBaseURL points the provider at another API root, e.g. a test server.
func WithBaseURL(baseURL string) Option {
	return func(p *Provider) { p.baseURL = strings.TrimRight(baseURL, "/") }
}

func WithFetcher(f Fetcher) Option {
	return func(p *Provider) { p.fetcher = f }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(p *Provider) { p.log = log }
}

func New(apiKey string, opts ...Option) *Provider {
	p := &Provider{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.fetcher == nil {
		p.fetcher = NewHTTPFetcher(DefaultConnectTimeout)
	}
	return p
}

func (p *Provider) Lookup(ctx context.Context, req *weather.Request) (*weather.Report, error) {
	var data FindData
	if err := p.fetchData(ctx, req, &data); err != nil {
		return nil, err
	}

	if len(*data.List) == 0 {
		return nil, weather.ErrNotFound
	}

	city := (*data.List)[0]
	p.log.WithFields(logrus.Fields{
		"matches": len(*data.List),
		"city":    *city.Name,
	}).Debug("selected first match")

	description := unknownDescription
	if len(*city.Weather) > 0 {
		description = *(*city.Weather)[0].Description
	}

	return &weather.Report{
		City:            *city.Name,
		Country:         city.Sys.Country,
		Temperature:     *city.Main.Temp,
		TemperatureUnit: weather.TemperatureUnit(req.Units),
		Description:     description,
		Humidity:        int(*city.Main.Humidity),
		WindSpeed:       *city.Wind.Speed,
	}, nil
}

func (p *Provider) fetchData(ctx context.Context, req *weather.Request, data *FindData) error {
	u := p.buildURL(req.City, req.Units)
	p.log.WithField("url", redact(u, p.apiKey)).Debug("requesting weather data")

	status, body, err := p.fetcher.Get(ctx, u)
	if err != nil {
		return weather.NetworkError(err)
	}
	p.log.WithField("status", status).Debug("weather API responded")

	if status < 200 || status >= 300 {
		return &weather.UpstreamError{StatusCode: status, Body: lossyText(body)}
	}

	if err := json.Unmarshal(body, data); err != nil {
		return weather.DecodeError(errors.Wrap(err, "parsing weather API response"))
	}
	if err := data.validate(); err != nil {
		return weather.DecodeError(errors.Wrap(err, "parsing weather API response"))
	}

	return nil
}

func (p *Provider) buildURL(city, units string) string {
	return fmt.Sprintf("%s/find?q=%s&appid=%s&units=%s",
		p.baseURL, url.QueryEscape(city), url.QueryEscape(p.apiKey), url.QueryEscape(units))
}

// lossyText decodes body as UTF-8, replacing invalid sequences with U+FFFD.
func lossyText(body []byte) string {
	// The decoder substitutes rather than fails, so the error is always nil.
	text, _ := unicode.UTF8.NewDecoder().Bytes(body)
	return string(text)
}

func redact(u, apiKey string) string {
	if apiKey == "" {
		return u
	}
	return strings.ReplaceAll(u, url.QueryEscape(apiKey), "REDACTED")
}
