package epoint

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"bidwatch/lib/timezone"

	"github.com/stretchr/testify/require"
)

const listFixture = `{
	"custom": {
		"infodata": [
			{
				"infoid": "abc-123",
				"infourl": "/jyxx/003001/003001005/20250314/abc-123.html",
				"title": "某工程中标结果公示",
				"customtitle": "某工程中标结果公示",
				"infodate": "2025-03-14",
				"infocontent": "<table><tr><td>中标人：</td><td>某某公司</td></tr></table>"
			},
			{
				"infoid": "def-456",
				"infourl": "/jyxx/003001/003001005/20250314/def-456.html",
				"title": "另一工程中标结果公示",
				"customtitle": "另一工程中标结果公示",
				"infodate": "2025-03-14",
				"infocontent": "<table></table>"
			}
		]
	}
}`

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientOptions{
		BaseUrl:   server.URL,
		SiteGuid:  "test-site-guid",
		RetryWait: time.Millisecond,
	})
	require.NoError(t, err)
	return client, server
}

func TestListNotices(t *testing.T) {
	var gotMethod, gotPath string
	var gotCategory, gotStart, gotEnd, gotSite string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotCategory = r.PostFormValue("categoryNum")
		gotStart = r.PostFormValue("startdate")
		gotEnd = r.PostFormValue("enddate")
		gotSite = r.PostFormValue("siteGuid")
		w.Write([]byte(listFixture))
	}))

	start := time.Date(2025, time.March, 7, 0, 0, 0, 0, timezone.Location)
	end := time.Date(2025, time.March, 14, 23, 59, 59, 0, timezone.Location)

	notices, err := client.ListNotices(context.Background(), ListRequest{
		CategoryNum: CategoryAwards,
		PageSize:    6,
		Start:       start,
		End:         end,
	})
	require.NoError(t, err)
	require.Len(t, notices, 2)

	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, listEndpoint, gotPath)
	require.Equal(t, CategoryAwards, gotCategory)
	require.Equal(t, "2025-03-07 00:00:00", gotStart)
	require.Equal(t, "2025-03-14 23:59:59", gotEnd)
	require.Equal(t, "test-site-guid", gotSite)

	require.Equal(t, "abc-123", notices[0].InfoID)
	require.Equal(t, "某工程中标结果公示", notices[0].Title)
	require.Contains(t, notices[0].InfoContent, "中标人")
}

func TestListNoticesRetries(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(listFixture))
	}))

	notices, err := client.ListNotices(context.Background(), ListRequest{
		CategoryNum: CategoryCandidates,
		PageSize:    6,
	})
	require.NoError(t, err)
	require.Len(t, notices, 2)
	require.EqualValues(t, 3, calls.Load())
}

func TestListNoticesGivesUp(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.ListNotices(context.Background(), ListRequest{
		CategoryNum: CategoryAwards,
		PageSize:    6,
	})
	require.Error(t, err)
	require.EqualValues(t, 3, calls.Load())
}

func TestAbsoluteURL(t *testing.T) {
	client, server := newTestClient(t, http.NotFoundHandler())

	require.Equal(t, server.URL+"/jyxx/a.html", client.AbsoluteURL("/jyxx/a.html"))
	require.Equal(t, "https://other.example.com/x", client.AbsoluteURL("https://other.example.com/x"))
	require.Equal(t, "", client.AbsoluteURL(""))
}
