// Package notify sends push notifications about trading activity
// through the Pushover message API.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const pushoverURL = "https://api.pushover.net/1/messages.json"

// Pusher delivers short activity summaries to the operator's devices.
// Without credentials every send is a silent no-op.
type Pusher struct {
	client   *resty.Client
	endpoint string
	token    string
	user     string
	logger   *zap.Logger
}

func NewPusher(token, user string, logger *zap.Logger) *Pusher {
	client := resty.New()
	client.SetTimeout(10 * time.Second)

	return &Pusher{
		client:   client,
		endpoint: pushoverURL,
		token:    token,
		user:     user,
		logger:   logger,
	}
}

// Enabled reports whether credentials are configured.
func (p *Pusher) Enabled() bool {
	return p.token != "" && p.user != ""
}

// Push sends a message titled with the trader's name. Delivery failures
// are logged and swallowed: a lost notification must not fail a trade.
func (p *Pusher) Push(ctx context.Context, title, message string) {
	if !p.Enabled() {
		return
	}

	resp, err := p.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":   p.token,
			"user":    p.user,
			"title":   title,
			"message": message,
		}).
		Post(p.endpoint)
	if err != nil {
		p.logger.Warn("push notification failed", zap.String("title", title), zap.Error(err))
		return
	}
	if resp.StatusCode() != 200 {
		p.logger.Warn("push notification rejected",
			zap.String("title", title),
			zap.Int("status", resp.StatusCode()),
			zap.String("body", fmt.Sprintf("%.200s", resp.String())))
	}
}

// SetEndpoint overrides the API endpoint; used by tests.
func (p *Pusher) SetEndpoint(url string) {
	p.endpoint = url
}
