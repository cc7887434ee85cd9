package elexon

import (
	"fmt"
	"strings"
	"time"

	"github.com/varunrout/energy-market-tracker/internal/normalize"
)

// Endpoint describes one Insights API endpoint: its path, cache category
// and the normalization options its payload shape needs.
type Endpoint struct {
	Path     string
	Category string
	Options  normalize.Options

	// FromParam and ToParam name the endpoint's date-range query
	// parameters; the names differ per endpoint family. RangeLayout is the
	// time layout those parameters expect.
	FromParam   string
	ToParam     string
	RangeLayout string
}

// RangeParams builds the endpoint's date-range query parameters. Endpoints
// without range parameters return an empty map.
func (e Endpoint) RangeParams(from, to time.Time) map[string]string {
	params := make(map[string]string, 2)
	if e.FromParam == "" || e.ToParam == "" {
		return params
	}
	layout := e.RangeLayout
	if layout == "" {
		layout = "2006-01-02"
	}
	params[e.FromParam] = from.UTC().Format(layout)
	params[e.ToParam] = to.UTC().Format(layout)
	return params
}

// Endpoints is the catalog of supported endpoints, keyed by a friendly
// name. Dataset endpoints are resolved dynamically via DatasetEndpoint.
var Endpoints = map[string]Endpoint{
	"demand/actual/total": {
		Path:      "/demand/actual/total",
		Category:  "demand",
		FromParam: "settlementDateFrom",
		ToParam:   "settlementDateTo",
	},
	"demand/outturn": {
		Path:      "/demand/outturn",
		Category:  "demand",
		FromParam: "settlementDateFrom",
		ToParam:   "settlementDateTo",
	},
	"generation/actual/per-type": {
		Path:     "/generation/actual/per-type",
		Category: "generation",
		Options: normalize.Options{
			FieldMap: map[string]string{"psrType": "fuelType"},
			// per-type nests fuel rows under each half-hour wrapper; the
			// wrapper's timing fields must survive the flatten.
			RetainKeys: []string{"startTime", "settlementDate", "settlementPeriod"},
		},
		FromParam:   "from",
		ToParam:     "to",
		RangeLayout: time.RFC3339,
	},
	"generation/actual/per-type/wind-and-solar": {
		Path:     "/generation/actual/per-type/wind-and-solar",
		Category: "generation",
		Options: normalize.Options{
			FieldMap: map[string]string{"psrType": "fuelType"},
		},
		FromParam: "settlementDateFrom",
		ToParam:   "settlementDateTo",
	},
	"balancing/system-prices/average": {
		Path:      "/balancing/system-prices/average",
		Category:  "prices",
		FromParam: "fromSettlementDate",
		ToParam:   "toSettlementDate",
	},
}

// DatasetEndpoint resolves a raw BMRS dataset code ("AGPT", "B1610", ...)
// to an endpoint, optionally on the streaming path.
func DatasetEndpoint(code string, stream bool) Endpoint {
	path := "/datasets/" + strings.ToUpper(code)
	if stream {
		path += "/stream"
	}
	return Endpoint{
		Path:        path,
		Category:    "datasets",
		FromParam:   "publishDateTimeFrom",
		ToParam:     "publishDateTimeTo",
		RangeLayout: time.RFC3339,
	}
}

// ResolveEndpoint looks up a catalog endpoint by key, falling back to the
// dataset catalog for "datasets/<CODE>" and "datasets/<CODE>/stream" keys.
func ResolveEndpoint(key string) (Endpoint, error) {
	if ep, ok := Endpoints[key]; ok {
		return ep, nil
	}
	if rest, ok := strings.CutPrefix(key, "datasets/"); ok && rest != "" {
		code, streamSuffix, _ := strings.Cut(rest, "/")
		switch streamSuffix {
		case "":
			return DatasetEndpoint(code, false), nil
		case "stream":
			return DatasetEndpoint(code, true), nil
		}
	}
	return Endpoint{}, fmt.Errorf("unknown endpoint %q", key)
}
