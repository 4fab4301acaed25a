package monitor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"bidwatch/lib/scrapers/epoint"
	"bidwatch/lib/testutil"

	"github.com/stretchr/testify/require"
)

func listingFixture(notices []epoint.Notice) []byte {
	body := map[string]any{
		"custom": map[string]any{"infodata": notices},
	}
	out, _ := json.Marshal(body)
	return out
}

func setupSyncTest(t *testing.T, notices *[]epoint.Notice) (*Service, string, *[]capturedPayload) {
	cleanup := testutil.Setup(t, "monitor")
	t.Cleanup(cleanup)

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(listingFixture(*notices))
	}))
	t.Cleanup(gateway.Close)

	webhook, payloads := newCaptureServer(t)

	client, err := epoint.NewClient(epoint.ClientOptions{
		BaseUrl:   gateway.URL,
		SiteGuid:  "test-site-guid",
		RetryWait: time.Millisecond,
	})
	require.NoError(t, err)

	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Notify = NotifyConfig{
		WebhookUrl:         webhook.URL,
		EscalateWebhookUrl: webhook.URL,
		WatchKeyword:       "盛荣",
	}

	return NewService(client, cfg, dir), dir, payloads
}

func TestSyncAwardsEndToEnd(t *testing.T) {
	notices := []epoint.Notice{awardNotice()}
	svc, dir, payloads := setupSyncTest(t, &notices)

	changed, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	raw := loadRecords[epoint.Notice](filepath.Join(dir, "zb.json"))
	require.Len(t, raw, 1)
	require.Equal(t, "award-1", raw[0].InfoID)

	parsed := loadRecords[Record](filepath.Join(dir, "parsed.json"))
	require.Len(t, parsed, 1)
	require.Equal(t, "宜昌盛荣建设有限公司", parsed[0].Data["中标人"])

	// one regular notification plus one escalation for the watch keyword
	require.Len(t, *payloads, 2)
	require.Contains(t, (*payloads)[0].Text.Content, "中标人：宜昌盛荣建设有限公司")
}

func TestSyncAwardsIdempotent(t *testing.T) {
	notices := []epoint.Notice{awardNotice()}
	svc, dir, _ := setupSyncTest(t, &notices)

	changed, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	before, err := os.ReadFile(filepath.Join(dir, "zb.json"))
	require.NoError(t, err)

	// second run sees the same listing, nothing may change
	changed, err = svc.Sync(context.Background())
	require.NoError(t, err)
	require.False(t, changed)

	after, err := os.ReadFile(filepath.Join(dir, "zb.json"))
	require.NoError(t, err)
	require.Equal(t, before, after)
}

func TestSyncAwardsAppends(t *testing.T) {
	notices := []epoint.Notice{awardNotice()}
	svc, dir, _ := setupSyncTest(t, &notices)

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	second := awardNotice()
	second.InfoID = "award-2"
	second.InfoURL = "/jyxx/003001/003001005/20250315/award-2.html"
	notices = append(notices, second)

	changed, err := svc.Sync(context.Background())
	require.NoError(t, err)
	require.True(t, changed)

	raw := loadRecords[epoint.Notice](filepath.Join(dir, "zb.json"))
	require.Len(t, raw, 2)
	parsed := loadRecords[Record](filepath.Join(dir, "parsed.json"))
	require.Len(t, parsed, 2)
}

func TestSyncFailurePropagates(t *testing.T) {
	cleanup := testutil.Setup(t, "monitor")
	t.Cleanup(cleanup)

	gateway := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(gateway.Close)

	client, err := epoint.NewClient(epoint.ClientOptions{
		BaseUrl:   gateway.URL,
		RetryWait: time.Millisecond,
	})
	require.NoError(t, err)

	svc := NewService(client, DefaultConfig(), t.TempDir())
	_, err = svc.Sync(context.Background())
	require.Error(t, err)
}

func TestReparseAwards(t *testing.T) {
	notices := []epoint.Notice{awardNotice()}
	svc, dir, _ := setupSyncTest(t, &notices)

	_, err := svc.Sync(context.Background())
	require.NoError(t, err)

	// wreck the parsed artifact, reparse must rebuild it from raw
	require.NoError(t, os.WriteFile(filepath.Join(dir, "parsed.json"), []byte("[]"), 0644))
	require.NoError(t, svc.ReparseAwards(context.Background()))

	parsed := loadRecords[Record](filepath.Join(dir, "parsed.json"))
	require.Len(t, parsed, 1)
	require.Equal(t, "award-1", parsed[0].InfoID)
}

func TestArtifactFiles(t *testing.T) {
	cfg := DefaultConfig()
	svc := &Service{cfg: cfg}
	require.Equal(t, []string{"zb.json", "parsed.json"}, svc.ArtifactFiles())

	cfg.Candidates.Enabled = true
	svc = &Service{cfg: cfg}
	require.Equal(
		t,
		[]string{"zb.json", "parsed.json", "hx.json", "hx_parsed.json"},
		svc.ArtifactFiles(),
	)
}
