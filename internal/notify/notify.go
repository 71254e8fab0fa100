// Package notify sends flagged-person alerts through shoutrrr services
// (email, Telegram, WhatsApp gateways, generic webhooks). Messages are plain
// text; the snapshot travels as a reference in the body, not as an attachment.
package notify

import (
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/kozaktomas/facewatch/internal/logger"
	"github.com/kozaktomas/facewatch/internal/metrics"
	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"
	"github.com/patrickmn/go-cache"
)

const defaultSendTimeout = 15 * time.Second

// Alert describes a flagged-person detection
type Alert struct {
	IdentityID  string
	Name        string
	Reason      string
	SnapshotRef string
	DetectedAt  time.Time
}

// Title is the notification subject.
func (a Alert) Title() string {
	return "Flagged person detected: " + a.Name
}

// Body is the plain-text notification message.
func (a Alert) Body() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s was detected at %s UTC.", a.Name, a.DetectedAt.UTC().Format("2006-01-02 15:04:05"))
	if a.Reason != "" {
		fmt.Fprintf(&b, "\nReason: %s", a.Reason)
	}
	if a.SnapshotRef != "" {
		fmt.Fprintf(&b, "\nSnapshot: %s", a.SnapshotRef)
	}
	return b.String()
}

// sender is the subset of the shoutrrr router used here.
type sender interface {
	Send(message string, params *stypes.Params) []error
}

// Notifier dispatches alerts asynchronously with a per-identity cooldown.
type Notifier struct {
	sender   sender
	cooldown time.Duration
	recent   *cache.Cache
	metrics  *metrics.Metrics
	wg       sync.WaitGroup
}

// New builds a notifier for the given shoutrrr URLs. With no URLs it
// returns a notifier that only logs.
func New(urls []string, cooldown time.Duration, m *metrics.Metrics) (*Notifier, error) {
	n := newNotifier(nil, cooldown, m)
	if len(urls) == 0 {
		return n, nil
	}

	router, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("invalid notification URL: %w", err)
	}
	router.Timeout = defaultSendTimeout
	router.SetLogger(log.New(io.Discard, "", 0))
	n.sender = router
	return n, nil
}

func newNotifier(s sender, cooldown time.Duration, m *metrics.Metrics) *Notifier {
	// No janitor goroutine; expired keys are purged on each Notify.
	return &Notifier{
		sender:   s,
		cooldown: cooldown,
		recent:   cache.New(cooldown, 0),
		metrics:  m,
	}
}

// Enabled reports whether any service is configured.
func (n *Notifier) Enabled() bool {
	return n.sender != nil
}

// Notify queues an alert and returns immediately. It returns false when the
// identity was alerted within the cooldown window or no service is configured.
// Delivery failures are logged only.
func (n *Notifier) Notify(alert Alert) bool {
	n.recent.DeleteExpired()
	if n.cooldown > 0 {
		if err := n.recent.Add(alert.IdentityID, struct{}{}, n.cooldown); err != nil {
			n.metrics.Notification("suppressed")
			logger.Debug("notification suppressed by cooldown", "identity", alert.IdentityID)
			return false
		}
	}

	if n.sender == nil {
		logger.Info("flagged person detected (no notification services configured)",
			"identity", alert.IdentityID, "name", alert.Name)
		return false
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.send(alert)
	}()
	return true
}

func (n *Notifier) send(alert Alert) {
	params := stypes.Params{}
	params.SetTitle(alert.Title())

	failed := 0
	for _, err := range n.sender.Send(alert.Body(), &params) {
		if err != nil {
			failed++
			logger.Warn("notification delivery failed", "identity", alert.IdentityID, "error", err)
		}
	}
	if failed > 0 {
		n.metrics.Notification("failed")
		return
	}
	n.metrics.Notification("sent")
	logger.Info("notification sent", "identity", alert.IdentityID, "name", alert.Name)
}

// Wait blocks until in-flight notifications finish.
func (n *Notifier) Wait() {
	n.wg.Wait()
}
