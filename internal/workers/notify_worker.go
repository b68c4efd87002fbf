package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/momentumblock/pcl-proxy/internal/models"
	"github.com/momentumblock/pcl-proxy/internal/queue"
)

const relayTimeout = 10 * time.Second

// NotifyWorker drains the notifications queue and relays each event to the
// automation endpoint. Delivery is best-effort: failures are logged and
// swallowed, never retried, never surfaced to the booking path.
type NotifyWorker struct {
	cfg        *models.Config
	queue      *queue.NotificationsQueue
	httpClient *http.Client
}

func NewNotifyWorker(cfg *models.Config, q *queue.NotificationsQueue) *NotifyWorker {
	return &NotifyWorker{
		cfg:        cfg,
		queue:      q,
		httpClient: &http.Client{Timeout: relayTimeout},
	}
}

// Run consumes until the context is cancelled or the queue closes. It
// always returns nil; a notify worker has no failure mode worth stopping
// the process for.
func (w *NotifyWorker) Run(ctx context.Context) error {
	for {
		evt, err := w.queue.Consume(ctx)
		if err != nil {
			if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
				return nil
			}
			continue
		}
		w.relay(ctx, evt)
	}
}

func (w *NotifyWorker) relay(ctx context.Context, evt models.NotificationEvent) {
	// The event defines the wire shape; the shared secret is added at send
	// time so it never sits in the queue.
	payload, err := json.Marshal(struct {
		models.NotificationEvent
		Secret string `json:"secret"`
	}{
		NotificationEvent: evt,
		Secret:            w.cfg.RelaySecret,
	})
	if err != nil {
		log.Errorf("notify %s: marshal failed: %v", evt.ID, err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.RelayURL, bytes.NewReader(payload))
	if err != nil {
		log.Errorf("notify %s: %v", evt.ID, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		log.Errorf("notify %s: relay failed: %v", evt.ID, err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode > 399 {
		log.Errorf("notify %s: relay answered %d", evt.ID, resp.StatusCode)
		return
	}
	log.Infof("notify %s: relayed %s for booking %s", evt.ID, evt.Type, evt.BookingID)
}
