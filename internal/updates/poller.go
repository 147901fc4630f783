// Package updates receives bot updates by long polling getUpdates.
package updates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flubl/telegrambot/internal/platform"
	"github.com/flubl/telegrambot/telegram"
)

// retryFn is a package-level variable wrapping platform.Retry for testability.
var retryFn = platform.Retry

// retryDelay is the pause after all retries of one cycle are exhausted.
var retryDelay = 5 * time.Second

// DefaultAllowedUpdates are the update kinds requested from the server.
var DefaultAllowedUpdates = []string{"message", "edited_message", "channel_post", "callback_query"}

// Source fetches a batch of updates. *telegram.Client implements it.
type Source interface {
	GetUpdates(ctx context.Context, r telegram.GetUpdates) ([]telegram.Update, error)
}

// Poller tracks the update offset and forwards updates from whitelisted
// senders. It is not safe for concurrent use; run one Poller per bot.
type Poller struct {
	source     Source
	allowedIDs map[int64]bool
	offset     int64
	timeout    int
}

// NewPoller creates a Poller. An empty allowedIDs accepts every sender;
// otherwise only updates from the listed user ids are forwarded. timeout is
// the long-poll timeout in seconds.
func NewPoller(source Source, allowedIDs []int64, timeout int) *Poller {
	var allowed map[int64]bool
	if len(allowedIDs) > 0 {
		allowed = make(map[int64]bool, len(allowedIDs))
		for _, id := range allowedIDs {
			allowed[id] = true
		}
	}
	return &Poller{
		source:     source,
		allowedIDs: allowed,
		timeout:    timeout,
	}
}

// Offset returns the id the next getUpdates call will start from.
func (p *Poller) Offset() int64 {
	return p.offset
}

// Poll performs a single getUpdates call from the current offset. It does
// not advance the offset.
func (p *Poller) Poll(ctx context.Context) ([]telegram.Update, error) {
	// The request must outlive the server-side long poll.
	pollCtx, cancel := context.WithTimeout(ctx, time.Duration(p.timeout)*time.Second+5*time.Second)
	defer cancel()

	updates, err := p.source.GetUpdates(pollCtx, telegram.GetUpdates{
		Offset:         p.offset,
		Timeout:        p.timeout,
		AllowedUpdates: DefaultAllowedUpdates,
	})
	if err != nil {
		return nil, fmt.Errorf("updates: poll: %w", err)
	}
	return updates, nil
}

// Run polls until ctx is done, sending accepted updates on out. Every
// received update advances the offset, rejected ones included, so the
// server does not deliver them again.
func (p *Poller) Run(ctx context.Context, out chan<- telegram.Update) {
	slog.Info("poller started", "component", "updates", "operation", "poll_start", "offset", p.offset)
	defer slog.Info("poller stopped", "component", "updates", "operation", "poll_stop", "offset", p.offset)

	for {
		var updates []telegram.Update
		err := retryFn(ctx, 3, 2*time.Second, func() error {
			var pollErr error
			updates, pollErr = p.Poll(ctx)
			return pollErr
		})
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("poll failed after retries", "component", "updates", "operation", "poll", "error", err)
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= p.offset {
				p.offset = u.UpdateID + 1
			}
			if !p.isAllowed(u) {
				slog.Warn("rejected update from unlisted sender",
					"component", "updates",
					"operation", "whitelist",
					"update_id", u.UpdateID,
					"user_id", senderID(u),
				)
				continue
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (p *Poller) isAllowed(u telegram.Update) bool {
	if p.allowedIDs == nil {
		return true
	}
	return p.allowedIDs[senderID(u)]
}

// senderID returns the id of the user behind u, or 0 when there is none
// (channel posts, anonymous admins).
func senderID(u telegram.Update) int64 {
	switch {
	case u.Message != nil && u.Message.From != nil:
		return u.Message.From.ID
	case u.EditedMessage != nil && u.EditedMessage.From != nil:
		return u.EditedMessage.From.ID
	case u.CallbackQuery != nil:
		return u.CallbackQuery.From.ID
	}
	return 0
}
