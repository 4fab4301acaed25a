// Package monitor implements the producer: it pulls notice listings from
// the trading platform, appends unseen notices to the raw artifacts,
// parses them into the structured artifacts and notifies the configured
// webhooks about anything new.
package monitor

import (
	"context"
	"log/slog"
	"path/filepath"

	"bidwatch/lib/scrapers/epoint"
	"bidwatch/lib/timezone"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/monitor")

type FeedConfig struct {
	Enabled    bool   `json:"enabled"`
	RawFile    string `json:"raw_file"`
	ParsedFile string `json:"parsed_file"`
	PageSize   int    `json:"page_size"`
	// how many days back the award listing query reaches, 0 disables
	// date filtering
	WindowDays int `json:"window_days"`
}

type Config struct {
	Awards     FeedConfig   `json:"awards"`
	Candidates FeedConfig   `json:"candidates"`
	Notify     NotifyConfig `json:"notify"`
}

// DefaultConfig mirrors the artifacts the repository historically
// tracked: awards in zb.json/parsed.json, candidates in hx.json/hx_parsed.json.
func DefaultConfig() Config {
	return Config{
		Awards: FeedConfig{
			Enabled:    true,
			RawFile:    "zb.json",
			ParsedFile: "parsed.json",
			PageSize:   6,
			WindowDays: 7,
		},
		Candidates: FeedConfig{
			Enabled:    false,
			RawFile:    "hx.json",
			ParsedFile: "hx_parsed.json",
			PageSize:   6,
		},
	}
}

type Service struct {
	client   *epoint.Client
	notifier *Notifier
	cfg      Config
	// directory the artifacts live in, normally the publisher's working copy
	dir string
}

func NewService(client *epoint.Client, cfg Config, dir string) *Service {
	return &Service{
		client:   client,
		notifier: NewNotifier(cfg.Notify),
		cfg:      cfg,
		dir:      dir,
	}
}

func (s *Service) path(name string) string {
	return filepath.Join(s.dir, name)
}

// ArtifactFiles lists the artifact names of all enabled feeds, in commit
// order.
func (s *Service) ArtifactFiles() []string {
	var files []string
	if s.cfg.Awards.Enabled {
		files = append(files, s.cfg.Awards.RawFile, s.cfg.Awards.ParsedFile)
	}
	if s.cfg.Candidates.Enabled {
		files = append(files, s.cfg.Candidates.RawFile, s.cfg.Candidates.ParsedFile)
	}
	return files
}

// Sync runs every enabled feed once and reports whether any artifact was
// rewritten. An error from either feed is fatal for the run, publishing
// must not happen afterwards.
func (s *Service) Sync(ctx context.Context) (changed bool, err error) {
	ctx, span := tracer.Start(ctx, "Sync")
	defer span.End()

	total := 0
	if s.cfg.Awards.Enabled {
		count, err := s.SyncAwards(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "award sync failed")
			return false, err
		}
		total += count
	}
	if s.cfg.Candidates.Enabled {
		count, err := s.SyncCandidates(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "candidate sync failed")
			return false, err
		}
		total += count
	}

	span.SetAttributes(attribute.Int("new_notices", total))
	return total > 0, nil
}

// SyncAwards fetches the award listing and stores, parses and announces
// every notice not seen before. Returns the number of new notices.
func (s *Service) SyncAwards(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "SyncAwards")
	defer span.End()

	feed := s.cfg.Awards

	req := epoint.ListRequest{
		CategoryNum: epoint.CategoryAwards,
		PageSize:    feed.PageSize,
	}
	if feed.WindowDays > 0 {
		now := timezone.Now()
		req.Start = timezone.StartOfDay(now.AddDate(0, 0, -feed.WindowDays))
		req.End = timezone.EndOfDay(now)
	}

	fetched, err := s.client.ListNotices(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing failed")
		return 0, err
	}
	if len(fetched) == 0 {
		slog.InfoContext(ctx, "award listing came back empty")
		return 0, nil
	}

	existing := loadRecords[epoint.Notice](s.path(feed.RawFile))
	var newItems []epoint.Notice
	for _, n := range fetched {
		if !containsNotice(existing, n) {
			newItems = append(newItems, n)
		}
	}
	if len(newItems) == 0 {
		slog.InfoContext(ctx, "no new award notices")
		return 0, nil
	}

	err = saveRecords(s.path(feed.RawFile), append(existing, newItems...))
	if err != nil {
		return 0, err
	}

	parsed := loadRecords[Record](s.path(feed.ParsedFile))
	var newRecords []Record
	for _, n := range newItems {
		newRecords = append(newRecords, ParseAward(n))
	}
	err = saveRecords(s.path(feed.ParsedFile), append(parsed, newRecords...))
	if err != nil {
		return 0, err
	}

	s.announceAwards(ctx, newItems, newRecords)

	slog.InfoContext(ctx, "award sync complete", "new", len(newItems))
	return len(newItems), nil
}

func (s *Service) announceAwards(ctx context.Context, notices []epoint.Notice, records []Record) {
	for i, n := range notices {
		bidder := records[i].Data["中标人"]
		if bidder == "" {
			bidder = ExtractField(n, "中标人")
		}
		price := records[i].Data["中标价"]
		if price == "" {
			price = ExtractField(n, "中标价")
		}

		message := BuildAwardMessage(
			n.Title, n.InfoDate, bidder, price,
			s.client.AbsoluteURL(n.InfoURL),
		)
		err := s.notifier.Text(ctx, message)
		if err != nil {
			slog.WarnContext(ctx, "failed to send award notification", "infoid", n.InfoID, "err", err)
		}

		if s.notifier.Watches(bidder) {
			err := s.notifier.EscalateText(ctx, message)
			if err != nil {
				slog.WarnContext(ctx, "failed to escalate award notification", "infoid", n.InfoID, "err", err)
			}
		}
	}
}

// SyncCandidates fetches the candidate listing, stores and parses new
// notices and sends the markdown notifications. Returns the number of
// new notices.
func (s *Service) SyncCandidates(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "SyncCandidates")
	defer span.End()

	feed := s.cfg.Candidates

	fetched, err := s.client.ListNotices(ctx, epoint.ListRequest{
		CategoryNum: epoint.CategoryCandidates,
		PageSize:    feed.PageSize,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listing failed")
		return 0, err
	}
	if len(fetched) == 0 {
		slog.InfoContext(ctx, "candidate listing came back empty")
		return 0, nil
	}

	existing := loadRecords[epoint.Notice](s.path(feed.RawFile))
	var newItems []epoint.Notice
	for _, n := range fetched {
		if !containsNotice(existing, n) {
			newItems = append(newItems, n)
		}
	}
	if len(newItems) == 0 {
		slog.InfoContext(ctx, "no new candidate notices")
		return 0, nil
	}

	err = saveRecords(s.path(feed.RawFile), append(existing, newItems...))
	if err != nil {
		return 0, err
	}

	parsed := loadRecords[CandidateRecord](s.path(feed.ParsedFile))
	var newRecords []CandidateRecord
	for _, n := range newItems {
		newRecords = append(newRecords, s.candidateRecord(n))
	}
	err = saveRecords(s.path(feed.ParsedFile), append(parsed, newRecords...))
	if err != nil {
		return 0, err
	}

	s.announceCandidates(ctx, newRecords)

	slog.InfoContext(ctx, "candidate sync complete", "new", len(newItems))
	return len(newItems), nil
}

func (s *Service) candidateRecord(n epoint.Notice) CandidateRecord {
	return CandidateRecord{
		InfoID:     n.InfoID,
		InfoURL:    n.InfoURL,
		ParsedData: ParseCandidates(n, s.client.BaseUrl.String()),
		RawData:    NoticeSummary{Title: n.Title, InfoDate: n.InfoDate},
	}
}

func (s *Service) announceCandidates(ctx context.Context, records []CandidateRecord) {
	for _, rec := range records {
		message := BuildCandidateMessage(rec)

		err := s.notifier.Markdown(ctx, message)
		if err != nil {
			slog.WarnContext(ctx, "failed to send candidate notification", "infoid", rec.InfoID, "err", err)
		}

		if s.notifier.Watches(message) {
			err := s.notifier.EscalateMarkdown(ctx, "【入围投标候选人通知】\n"+message)
			if err != nil {
				slog.WarnContext(ctx, "failed to escalate candidate notification", "infoid", rec.InfoID, "err", err)
			}
		}
	}
}

// ReparseAwards rebuilds the parsed award artifact from the raw artifact.
func (s *Service) ReparseAwards(ctx context.Context) error {
	raw := loadRecords[epoint.Notice](s.path(s.cfg.Awards.RawFile))

	records := make([]Record, len(raw))
	for i, n := range raw {
		records[i] = ParseAward(n)
	}

	err := saveRecords(s.path(s.cfg.Awards.ParsedFile), records)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "reparsed award artifact", "records", len(records))
	return nil
}

// ReparseCandidates rebuilds the parsed candidate artifact from the raw
// artifact.
func (s *Service) ReparseCandidates(ctx context.Context) error {
	raw := loadRecords[epoint.Notice](s.path(s.cfg.Candidates.RawFile))

	records := make([]CandidateRecord, len(raw))
	for i, n := range raw {
		records[i] = s.candidateRecord(n)
	}

	err := saveRecords(s.path(s.cfg.Candidates.ParsedFile), records)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "reparsed candidate artifact", "records", len(records))
	return nil
}
