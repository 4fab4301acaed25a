package monitor

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"bidwatch/lib/telemetry"

	"github.com/go-resty/resty/v2"
)

// NotifyConfig carries the WeChat Work webhook endpoints. The values are
// secrets, they are passed in as configuration and never read from the
// environment by this package.
type NotifyConfig struct {
	WebhookUrl string `json:"webhook_url"`
	// additional webhook that only receives notices mentioning WatchKeyword
	EscalateWebhookUrl string `json:"escalate_webhook_url"`
	WatchKeyword       string `json:"watch_keyword"`
}

type Notifier struct {
	cfg  NotifyConfig
	http *resty.Client
}

func NewNotifier(cfg NotifyConfig) *Notifier {
	client := resty.New()
	client.SetTimeout(time.Second * 10)
	telemetry.InstrumentResty(client, "monitor/notify")

	return &Notifier{cfg: cfg, http: client}
}

func (n *Notifier) send(ctx context.Context, webhook string, payload any) error {
	if webhook == "" {
		return nil
	}

	res, err := n.http.R().
		SetContext(ctx).
		SetHeader("content-type", "application/json").
		SetBody(payload).
		Post(webhook)
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("webhook returned status %d", res.StatusCode())
	}
	return nil
}

func textPayload(message string) map[string]any {
	return map[string]any{
		"msgtype": "text",
		"text":    map[string]any{"content": message},
	}
}

func markdownPayload(message string) map[string]any {
	return map[string]any{
		"msgtype":     "markdown_v2",
		"markdown_v2": map[string]any{"content": message},
	}
}

func (n *Notifier) Text(ctx context.Context, message string) error {
	return n.send(ctx, n.cfg.WebhookUrl, textPayload(message))
}

func (n *Notifier) Markdown(ctx context.Context, message string) error {
	return n.send(ctx, n.cfg.WebhookUrl, markdownPayload(message))
}

func (n *Notifier) EscalateText(ctx context.Context, message string) error {
	return n.send(ctx, n.cfg.EscalateWebhookUrl, textPayload(message))
}

func (n *Notifier) EscalateMarkdown(ctx context.Context, message string) error {
	return n.send(ctx, n.cfg.EscalateWebhookUrl, markdownPayload(message))
}

// Watches reports whether the text mentions the configured keyword.
func (n *Notifier) Watches(s string) bool {
	return n.cfg.WatchKeyword != "" && strings.Contains(s, n.cfg.WatchKeyword)
}

// BuildAwardMessage renders the plain-text notification for a new award
// notice.
func BuildAwardMessage(title, date, bidder, price, link string) string {
	return fmt.Sprintf(
		"新公告：%s\n日期：%s\n中标人：%s\n中标价：%s\n链接：%s",
		title, date, bidder, price, link,
	)
}

// BuildCandidateMessage renders the markdown notification for a new
// candidate publicity notice.
func BuildCandidateMessage(rec CandidateRecord) string {
	var msg strings.Builder
	msg.WriteString("#📢 中标候选人公告\n")
	fmt.Fprintf(&msg, "📜 标题：%s\n", rec.RawData.Title)
	fmt.Fprintf(&msg, "📅 日期：%s\n", rec.RawData.InfoDate)
	fmt.Fprintf(&msg, "⏳ 公示时间：%s\n\n", rec.ParsedData.PublicityPeriod)

	bidders := rec.ParsedData.Bidders
	prices := rec.ParsedData.Prices

	if len(bidders) > 0 && len(prices) > 0 {
		msg.WriteString("🏆 中标候选人及报价：\n")
		msg.WriteString("| 序号 | 中标候选人 | 投标报价 |\n")
		msg.WriteString("| :----- | :----: | -------: |\n")

		count := min(len(bidders), len(prices))
		for i := 0; i < count; i++ {
			fmt.Fprintf(&msg, "| %d | %s | %s |\n", i+1, bidders[i], FormatPrice(prices[i]))
		}
		msg.WriteString("\n")
	} else if len(bidders) > 0 {
		msg.WriteString("🏆 中标候选人：\n")
		for i, bidder := range bidders {
			fmt.Fprintf(&msg, "%d. %s\n", i+1, bidder)
		}
		if len(prices) > 0 {
			msg.WriteString("\n💰 投标报价：\n")
			for _, price := range prices {
				fmt.Fprintf(&msg, "- %s\n", price)
			}
		}
		msg.WriteString("\n")
	}

	fmt.Fprintf(&msg, "🔗 详情链接：%s", rec.ParsedData.FullURL)
	return msg.String()
}

// FormatPrice normalizes a raw price cell for display. Rate quotes (with
// a percent sign) pass through unchanged, amounts above 100000 are shown
// in 万元.
func FormatPrice(price string) string {
	if strings.Contains(price, "%") {
		return price
	}

	var digits strings.Builder
	for _, c := range price {
		if c >= '0' && c <= '9' || c == '.' {
			digits.WriteRune(c)
		}
	}
	if digits.Len() == 0 {
		return price
	}

	amount, err := strconv.ParseFloat(digits.String(), 64)
	if err != nil {
		return price
	}
	if amount > 100000 {
		return groupThousands(fmt.Sprintf("%.2f", amount/10000)) + "万元"
	}
	return groupThousands(fmt.Sprintf("%.2f", amount)) + "元"
}

func groupThousands(s string) string {
	intPart, fracPart, _ := strings.Cut(s, ".")

	var out strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(c)
	}
	if fracPart != "" {
		out.WriteByte('.')
		out.WriteString(fracPart)
	}
	return out.String()
}
