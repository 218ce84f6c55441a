package weather

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

const (
	UnitsMetric   = "metric"
	UnitsImperial = "imperial"
)

type Provider interface {
	Lookup(ctx context.Context, req *Request) (*Report, error)
}

type Request struct {
	City  string
	Units string
}

type Report struct {
	City            string  `json:"city"`
	Country         *string `json:"country"`
	Temperature     float64 `json:"temperature"`
	TemperatureUnit string  `json:"temperature_unit"`
	Description     string  `json:"description"`
	Humidity        int     `json:"humidity"`
	WindSpeed       float64 `json:"wind_speed"`
}

// DecodeRequest reads one JSON request from r. Keys must match exactly.
// Units default to metric only when the key is absent; an explicit null is
// rejected like any other non-string value.
func DecodeRequest(r io.Reader) (*Request, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, DecodeError(errors.Wrap(err, "reading request"))
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, DecodeError(errors.Wrap(err, "parsing request"))
	}

	rawCity, ok := fields["city"]
	if !ok {
		return nil, DecodeError(errors.New("missing field `city`"))
	}
	city, err := decodeString("city", rawCity)
	if err != nil {
		return nil, DecodeError(err)
	}

	req := &Request{City: city, Units: UnitsMetric}
	if rawUnits, ok := fields["units"]; ok {
		if req.Units, err = decodeString("units", rawUnits); err != nil {
			return nil, DecodeError(err)
		}
	}
	return req, nil
}

func decodeString(field string, raw json.RawMessage) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", errors.Errorf("invalid type for `%s`: null, expected a string", field)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", errors.Wrapf(err, "invalid type for `%s`", field)
	}
	return s, nil
}

// TemperatureUnit labels the temperature for the requested units. Anything
// other than imperial is reported as Celsius.
func TemperatureUnit(units string) string {
	if units == UnitsImperial {
		return "F"
	}
	return "C"
}

func WriteReport(w io.Writer, r *Report) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrap(err, "encoding report")
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.Write(data); err != nil {
		return errors.Wrap(err, "writing report")
	}
	return errors.Wrap(bw.Flush(), "flushing report")
}
