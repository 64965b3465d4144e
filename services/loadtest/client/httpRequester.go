package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/iulianpascalau/api-loadtest/services/loadtest/common"
	"github.com/multiversx/mx-chain-core-go/core/check"
	logger "github.com/multiversx/mx-chain-logger-go"
)

const maxIdleConnsPerHost = 100

var log = logger.GetOrCreate("client")

// ArgsHTTPRequester defines the arguments needed to create a new HTTP requester
type ArgsHTTPRequester struct {
	BaseURL  string
	Timeout  time.Duration
	Observer RequestObserver
}

type httpRequester struct {
	baseURL  string
	client   *http.Client
	observer RequestObserver
}

// NewHTTPRequester creates a requester that issues endpoint targets against the provided base URL.
// The observer is optional
func NewHTTPRequester(args ArgsHTTPRequester) (*httpRequester, error) {
	if len(args.BaseURL) == 0 {
		return nil, errEmptyBaseURL
	}
	if args.Timeout <= 0 {
		return nil, errInvalidTimeout
	}
	_, err := url.Parse(args.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.MaxIdleConnsPerHost = maxIdleConnsPerHost

	return &httpRequester{
		baseURL:  strings.TrimSuffix(args.BaseURL, "/"),
		observer: args.Observer,
		client: &http.Client{
			Timeout:   args.Timeout,
			Transport: transport,
		},
	}, nil
}

// Do issues the request described by the target and reads the whole response. The elapsed time covers the interval
// from dispatch until the body was fully read. Transport failures are reported in the sample's Err field
func (r *httpRequester) Do(ctx context.Context, target common.EndpointTarget) common.Response {
	req, err := r.createRequest(ctx, target)
	if err != nil {
		return common.Response{
			Sample: common.TimingSample{
				StartedAt: time.Now(),
				Err:       err,
			},
		}
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		return r.notify(target, common.Response{
			Sample: common.TimingSample{
				StartedAt: start,
				Elapsed:   time.Since(start),
				Err:       err,
			},
		})
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	elapsed := time.Since(start)
	if err != nil {
		log.Trace("failed to read response body", "endpoint", target.Name, "error", err)
	}

	return r.notify(target, common.Response{
		Sample: common.TimingSample{
			StartedAt:  start,
			Elapsed:    elapsed,
			StatusCode: resp.StatusCode,
			Err:        err,
		},
		Body: body,
	})
}

func (r *httpRequester) createRequest(ctx context.Context, target common.EndpointTarget) (*http.Request, error) {
	var body io.Reader
	if target.Body != nil {
		buff, err := json.Marshal(target.Body())
		if err != nil {
			return nil, fmt.Errorf("%w: %s", errMarshalBody(target.Name), err.Error())
		}
		body = bytes.NewReader(buff)
	}

	method := target.Method
	if len(method) == 0 {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, r.baseURL+target.Path, body)
	if err != nil {
		return nil, err
	}

	if len(target.Query) > 0 {
		query := req.URL.Query()
		for k, v := range target.Query {
			query.Set(k, v)
		}
		req.URL.RawQuery = query.Encode()
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range target.Headers {
		req.Header.Set(k, v)
	}

	return req, nil
}

func (r *httpRequester) notify(target common.EndpointTarget, response common.Response) common.Response {
	if !check.IfNil(r.observer) {
		r.observer.ObserveRequest(target.Name, response.Sample)
	}

	return response
}

// IsInterfaceNil returns true if the value under the interface is nil
func (r *httpRequester) IsInterfaceNil() bool {
	return r == nil
}
