package tago

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rail-timetable/collector/internal/governor"
	"github.com/rail-timetable/collector/internal/metrics"
)

// TrainInfoService operations
const (
	EndpointCities     = "getCtyCodeList"
	EndpointStations   = "getCtyAcctoTrainSttnList"
	EndpointTrainTypes = "getVhcleKndList"
	EndpointSchedules  = "getStrtpntAlocFndTrainInfo"
)

// listRetries is how often a listing call is retried after a transport failure
const listRetries = 2

// Client talks to the TAGO TrainInfoService. It never returns errors for
// failed calls: every failure becomes an empty result with a tagged outcome.
type Client struct {
	baseURL    string
	serviceKey string
	client     *http.Client
	gov        *governor.Governor
	latency    *metrics.LatencyTracker
	newBackOff func() backoff.BackOff
}

// NewClient creates a client. The service key is sent verbatim, since
// data.go.kr issues keys that are already URL-encoded.
func NewClient(baseURL, serviceKey string, timeout time.Duration, gov *governor.Governor, latency *metrics.LatencyTracker) *Client {
	return &Client{
		baseURL:    baseURL,
		serviceKey: serviceKey,
		client: &http.Client{
			Timeout: timeout,
		},
		gov:     gov,
		latency: latency,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			return b
		},
	}
}

// Cities fetches the national city list
func (c *Client) Cities(ctx context.Context) []City {
	params := url.Values{}
	params.Set("numOfRows", "100")
	params.Set("pageNo", "1")

	res := c.fetch(ctx, governor.ClassList, EndpointCities, params, false)
	return decodeItems[City](res.Items)
}

// Stations fetches the stations of one city. Cities without stations are
// common, so failures are not logged.
func (c *Client) Stations(ctx context.Context, cityCode int64) []Station {
	params := url.Values{}
	params.Set("numOfRows", "500")
	params.Set("pageNo", "1")
	params.Set("cityCode", strconv.FormatInt(cityCode, 10))

	res := c.fetch(ctx, governor.ClassList, EndpointStations, params, true)
	return decodeItems[Station](res.Items)
}

// TrainTypes fetches the vehicle kind list
func (c *Client) TrainTypes(ctx context.Context) []TrainType {
	params := url.Values{}
	params.Set("numOfRows", "50")
	params.Set("pageNo", "1")

	res := c.fetch(ctx, governor.ClassMeta, EndpointTrainTypes, params, false)
	return decodeItems[TrainType](res.Items)
}

// Schedules probes one ordered station pair for a departure date (YYYYMMDD).
// "No schedule" is the common answer and is signalled inconsistently, so
// nothing is logged here.
func (c *Client) Schedules(ctx context.Context, depStationID, arrStationID, depDate string) ([]RawSchedule, Outcome) {
	params := url.Values{}
	params.Set("depPlaceId", depStationID)
	params.Set("arrPlaceId", arrStationID)
	params.Set("depPlandTime", depDate)
	params.Set("numOfRows", "100")
	params.Set("pageNo", "1")

	res := c.fetch(ctx, governor.ClassProbe, EndpointSchedules, params, true)
	return decodeItems[RawSchedule](res.Items), res.Outcome
}

// fetch throttles, issues and validates one call
func (c *Client) fetch(ctx context.Context, class governor.Class, endpoint string, params url.Values, silent bool) Result {
	start := time.Now()

	var body []byte
	err := c.retry(ctx, class, func() error {
		if err := c.gov.Wait(ctx, class); err != nil {
			return backoff.Permanent(err)
		}
		b, err := c.get(ctx, endpoint, params)
		if err != nil {
			return err
		}
		body = b
		return nil
	})

	elapsed := time.Since(start)
	if c.latency != nil {
		c.latency.Observe(string(class), elapsed)
	}
	metrics.APICallDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())

	var res Result
	if err != nil {
		res = Result{Outcome: OutcomeTransport, Message: err.Error()}
	} else {
		res = ParseBody(body)
	}

	metrics.APICalls.WithLabelValues(endpoint, res.Outcome.String()).Inc()
	if !silent {
		logOutcome(endpoint, res)
	}
	return res
}

// retry runs op once for probes and with exponential backoff for listings
func (c *Client) retry(ctx context.Context, class governor.Class, op func() error) error {
	if class == governor.ClassProbe {
		var perm *backoff.PermanentError
		err := op()
		if errors.As(err, &perm) {
			return perm.Err
		}
		return err
	}
	b := backoff.WithContext(backoff.WithMaxRetries(c.newBackOff(), listRetries), ctx)
	return backoff.Retry(op, b)
}

// get performs the HTTP request. Non-200 responses are not errors: the
// gateway reports most failures in the body, which ParseBody classifies.
func (c *Client) get(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	reqURL := fmt.Sprintf("%s/%s?serviceKey=%s&_type=json&%s", c.baseURL, endpoint, c.serviceKey, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s response: %w", endpoint, err)
	}
	return body, nil
}

func logOutcome(endpoint string, res Result) {
	switch res.Outcome {
	case OutcomeServiceError:
		log.Printf("TAGO: %s: API service error", endpoint)
	case OutcomeMarkup:
		log.Printf("TAGO: %s: unexpected XML response", endpoint)
	case OutcomeResultCode:
		log.Printf("TAGO: %s: API error %s %s", endpoint, res.Code, res.Message)
	case OutcomeTransport:
		log.Printf("TAGO: %s: fetch error: %s", endpoint, res.Message)
	}
}
