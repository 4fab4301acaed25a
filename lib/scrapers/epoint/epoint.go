// Package epoint talks to the EpointWebBuilder REST gateway used by the
// Yichang public-resource trading platform.
package epoint

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"time"

	"bidwatch/lib/restyutil"
	"bidwatch/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/cenkalti/backoff/v4"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("scrapers/epoint")

const (
	// notice categories on the platform
	CategoryAwards     = "003001005"
	CategoryCandidates = "003001004"

	listEndpoint = "/EpointWebBuilder/rest/secaction/getSecInfoListYzm"
	dateFormat   = "2006-01-02 15:04:05"
)

// Notice is one entry of the gateway's `custom.infodata` list.
// InfoContent carries the notice body as raw HTML.
type Notice struct {
	InfoID      string `json:"infoid"`
	InfoURL     string `json:"infourl"`
	Title       string `json:"title"`
	CustomTitle string `json:"customtitle"`
	InfoDate    string `json:"infodate"`
	InfoContent string `json:"infocontent"`
}

type ClientOptions struct {
	BaseUrl  string
	SiteGuid string
	// wait between failed attempts, defaults to 5s
	RetryWait time.Duration
}

type Client struct {
	BaseUrl *url.URL
	Http    *resty.Client

	siteGuid  string
	retryWait time.Duration
}

func NewClient(opts ClientOptions) (*Client, error) {
	baseUrl, err := url.Parse(opts.BaseUrl)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetBaseURL(opts.BaseUrl)
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	client.SetHeader("user-agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36")
	client.SetTimeout(time.Second * 30)

	telemetry.InstrumentResty(client, "scrapers/epoint/http")

	retryWait := opts.RetryWait
	if retryWait == 0 {
		retryWait = time.Second * 5
	}

	return &Client{
		BaseUrl:   baseUrl,
		Http:      client,
		siteGuid:  opts.SiteGuid,
		retryWait: retryWait,
	}, nil
}

// SetDumpOutput enables request/response dumps for debugging scrape runs.
func (c *Client) SetDumpOutput(output restyutil.Output) {
	restyutil.DumpExchanges(c.Http, output)
}

// AbsoluteURL resolves a notice's relative infourl against the platform host.
func (c *Client) AbsoluteURL(path string) string {
	if path == "" {
		return ""
	}
	if len(path) > 0 && path[0] == '/' {
		return c.BaseUrl.Scheme + "://" + c.BaseUrl.Host + path
	}
	return path
}

type ListRequest struct {
	CategoryNum string
	PageIndex   int
	PageSize    int
	// zero values mean no date filtering
	Start time.Time
	End   time.Time
}

type listResponse struct {
	Custom struct {
		InfoData []Notice `json:"infodata"`
	} `json:"custom"`
}

// ListNotices fetches one page of notices for a category. The gateway is
// flaky, so the request is attempted up to 3 times with a constant wait
// in between.
func (c *Client) ListNotices(ctx context.Context, req ListRequest) ([]Notice, error) {
	ctx, span := tracer.Start(ctx, "ListNotices")
	defer span.End()
	span.SetAttributes(attribute.String("category", req.CategoryNum))

	startdate := ""
	enddate := ""
	if !req.Start.IsZero() {
		startdate = req.Start.Format(dateFormat)
	}
	if !req.End.IsZero() {
		enddate = req.End.Format(dateFormat)
	}

	form := map[string]string{
		"siteGuid":    c.siteGuid,
		"categoryNum": req.CategoryNum,
		"pageindex":   strconv.Itoa(req.PageIndex),
		"pagesize":    strconv.Itoa(req.PageSize),
		"content":     "",
		"startdate":   startdate,
		"enddate":     enddate,
		"xiqucode":    "",
	}

	var notices []Notice
	attempt := 0
	operation := func() error {
		attempt++

		res, err := c.Http.R().
			SetContext(ctx).
			SetFormData(form).
			Post(listEndpoint)
		if err != nil {
			return err
		}
		if res.IsError() {
			return fmt.Errorf("gateway returned status %d", res.StatusCode())
		}

		var body listResponse
		err = json.Unmarshal(res.Body(), &body)
		if err != nil {
			return fmt.Errorf("failed to decode notice list: %w", err)
		}

		notices = body.Custom.InfoData
		return nil
	}

	err := backoff.RetryNotify(
		operation,
		backoff.WithContext(
			backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryWait), 2),
			ctx,
		),
		func(err error, wait time.Duration) {
			slog.WarnContext(
				ctx, "notice list request failed, retrying",
				"attempt", attempt,
				"wait", wait,
				"err", err,
			)
		},
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to list notices")
		return nil, err
	}

	span.SetAttributes(attribute.Int("notices", len(notices)))
	return notices, nil
}
