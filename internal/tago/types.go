package tago

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Numeral holds a numeric field exactly as the API sent it. TAGO mixes JSON
// numbers and strings for the same field, and 12-14 digit timestamps must
// not be reformatted through float64.
type Numeral string

// UnmarshalJSON accepts a JSON number, a JSON string, or null
func (n *Numeral) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*n = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*n = Numeral(strings.TrimSpace(s))
		return nil
	}
	*n = Numeral(b)
	return nil
}

// String returns the raw digits
func (n Numeral) String() string {
	return string(n)
}

// Int parses the numeral as an integer. Fractional values are truncated.
func (n Numeral) Int() (int64, bool) {
	if n == "" {
		return 0, false
	}
	if v, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return v, true
	}
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, false
	}
	return int64(f), true
}

// City is an item of getCtyCodeList
type City struct {
	CityCode Numeral `json:"citycode"`
	CityName string  `json:"cityname"`
}

// Station is an item of getCtyAcctoTrainSttnList
type Station struct {
	NodeID   string `json:"nodeid"`
	NodeName string `json:"nodename"`
}

// TrainType is an item of getVhcleKndList
type TrainType struct {
	VehicleKindID   string `json:"vehiclekndid"`
	VehicleKindName string `json:"vehiclekndnm"`
}

// RawSchedule is an item of getStrtpntAlocFndTrainInfo. It is untrusted and
// never persisted as-is.
type RawSchedule struct {
	TrainGradeName string  `json:"traingradename"`
	TrainNo        Numeral `json:"trainno"`
	DepPlandTime   Numeral `json:"depplandtime"`
	ArrPlandTime   Numeral `json:"arrplandtime"`
	DepPlaceName   string  `json:"depplacename"`
	ArrPlaceName   string  `json:"arrplacename"`
	DepPlaceID     string  `json:"depplaceid,omitempty"`
	ArrPlaceID     string  `json:"arrplaceid,omitempty"`
	AdultCharge    Numeral `json:"adultcharge,omitempty"`
}

// envelope is the JSON shape shared by every TrainInfoService operation
type envelope struct {
	Response struct {
		Header struct {
			ResultCode Numeral `json:"resultCode"`
			ResultMsg  string  `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items      json.RawMessage `json:"items"`
			NumOfRows  Numeral         `json:"numOfRows"`
			PageNo     Numeral         `json:"pageNo"`
			TotalCount Numeral         `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}
