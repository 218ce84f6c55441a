package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/duluk/weatherjson/pkg/weather"
	"github.com/duluk/weatherjson/pkg/weather/openweather"
)

type stubFetcher struct {
	status int
	body   string
	calls  int
}

func (s *stubFetcher) Get(_ context.Context, _ string) (int, []byte, error) {
	s.calls++
	return s.status, []byte(s.body), nil
}

// useStub routes newProvider through f for the duration of the test.
func useStub(t *testing.T, f *stubFetcher) {
	t.Helper()
	orig := newProvider
	logger, _ := test.NewNullLogger()
	newProvider = func(apiKey string) weather.Provider {
		return openweather.New(apiKey, openweather.WithFetcher(f), openweather.WithLogger(logger))
	}
	t.Cleanup(func() { newProvider = orig })
}

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

var withKey = env(map[string]string{apiKeyEnv: "secret"})

const londonBody = `{"list":[{"name":"London","sys":{"country":"GB"},"main":{"temp":15.2,"humidity":70},"weather":[{"description":"light rain"}],"wind":{"speed":3.1}}]}`

func TestRunLondon(t *testing.T) {
	f := &stubFetcher{status: http.StatusOK, body: londonBody}
	useStub(t, f)

	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(`{"city":"London"}`), &out, withKey)
	require.NoError(t, err)

	assert.Equal(t,
		`{"city":"London","country":"GB","temperature":15.2,"temperature_unit":"C","description":"light rain","humidity":70,"wind_speed":3.1}`,
		out.String())
	assert.Equal(t, 1, f.calls)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Len(t, decoded, 7)
}

func TestRunUnitLabels(t *testing.T) {
	cases := map[string]string{
		`{"city":"London"}`:                         "C",
		`{"city":"London","units":"metric"}`:        "C",
		`{"city":"London","units":"imperial"}`:      "F",
		`{"city":"London","units":"anything-else"}`: "C",
	}

	for input, unit := range cases {
		f := &stubFetcher{status: http.StatusOK, body: londonBody}
		useStub(t, f)

		var out bytes.Buffer
		require.NoError(t, run(context.Background(), strings.NewReader(input), &out, withKey))

		var report weather.Report
		require.NoError(t, json.Unmarshal(out.Bytes(), &report))
		assert.Equal(t, unit, report.TemperatureUnit, input)
	}
}

func TestRunMissingAPIKey(t *testing.T) {
	for _, input := range []string{`{"city":"London"}`, `{"city":"London","units":"imperial"}`} {
		f := &stubFetcher{status: http.StatusOK, body: londonBody}
		useStub(t, f)

		var out bytes.Buffer
		err := run(context.Background(), strings.NewReader(input), &out, env(nil))
		require.Error(t, err)
		assert.True(t, errors.Is(err, weather.ErrConfig))
		assert.Contains(t, err.Error(), apiKeyEnv)
		assert.Empty(t, out.String())
		assert.Zero(t, f.calls)
	}
}

func TestRunInvalidInputSkipsNetwork(t *testing.T) {
	for _, input := range []string{`{"units":"metric"}`, `not json`, ``} {
		f := &stubFetcher{status: http.StatusOK, body: londonBody}
		useStub(t, f)

		var out bytes.Buffer
		err := run(context.Background(), strings.NewReader(input), &out, withKey)
		require.Error(t, err)
		assert.True(t, errors.Is(err, weather.ErrDecode))
		assert.Empty(t, out.String())
		assert.Zero(t, f.calls)
	}
}

func TestRunUpstream404(t *testing.T) {
	f := &stubFetcher{status: http.StatusNotFound, body: "city not found"}
	useStub(t, f)

	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(`{"city":"Nowhere"}`), &out, withKey)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Contains(t, err.Error(), "city not found")
	assert.Empty(t, out.String())
}

func TestRunEmptyList(t *testing.T) {
	f := &stubFetcher{status: http.StatusOK, body: `{"list": []}`}
	useStub(t, f)

	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(`{"city":"Nowhere"}`), &out, withKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrNotFound))
	assert.Empty(t, out.String())
}

func TestRunEmptyWeatherDescription(t *testing.T) {
	f := &stubFetcher{status: http.StatusOK, body: `{"list":[{"name":"Oslo","sys":{"country":"NO"},"main":{"temp":-3,"humidity":80},"weather":[],"wind":{"speed":1.2}}]}`}
	useStub(t, f)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), strings.NewReader(`{"city":"Oslo"}`), &out, withKey))

	var report weather.Report
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	assert.Equal(t, "unknown", report.Description)
}

func TestGetAPIKey(t *testing.T) {
	key, err := getAPIKey(withKey)
	require.NoError(t, err)
	assert.Equal(t, "secret", key)

	_, err = getAPIKey(env(map[string]string{apiKeyEnv: ""}))
	assert.True(t, errors.Is(err, weather.ErrConfig))
}

func TestInitLogger(t *testing.T) {
	assert.NoError(t, initLogger("debug"))
	assert.NoError(t, initLogger(defaultLogLevel))
	assert.Error(t, initLogger("chatty"))
}

func TestRunIncompleteUpstreamRecord(t *testing.T) {
	f := &stubFetcher{status: http.StatusOK, body: `{"list":[{}]}`}
	useStub(t, f)

	var out bytes.Buffer
	err := run(context.Background(), strings.NewReader(`{"city":"London"}`), &out, withKey)
	require.Error(t, err)
	assert.True(t, errors.Is(err, weather.ErrDecode))
	assert.Empty(t, out.String())
}
