// pipeline.go — Pipeline owns the pending-HTTP and open-WS maps and is the
// only mutator of either (spec section 4.2). Its locking discipline follows
// the teacher's Capture struct (internal/capture/capture-struct.go): one
// mutex guards the maps, released before any suspension point (body
// retrieval, Store append), never held across a callback.
package capturepipeline

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/browserclip/engine/internal/config"
	"github.com/browserclip/engine/internal/store"
)

// MaxInlineBodyBytes is the encoded-data-length ceiling above which a
// response body is not retrieved (spec section 4.2).
const MaxInlineBodyBytes = 5 << 20

// httpState is the per-transaction state machine position.
type httpState int

const (
	stateInit httpState = iota
	statePending
	statePendingWithResponse
)

// pendingEntry tracks one in-flight HTTP transaction keyed by request-id.
type pendingEntry struct {
	state        httpState
	tabID        int
	hostname     string
	observedAt   time.Time
	startedAt    time.Time
	req          RequestInfo
	resp         ResponseInfo
	hasResp      bool
	resourceType string
}

// openConnection tracks one live WebSocket connection.
type openConnection struct {
	tabID    int
	hostname string
	url      string
}

// BodyFetcher retrieves a response body from the tap once loading has
// finished. Implemented by the /tap transport, one instance shared by all tabs.
type BodyFetcher interface {
	GetResponseBody(ctx context.Context, requestID string) (ResponseBody, error)
}

// capturableTab reports whether url is eligible for capture (spec section 4.2).
func capturableTab(url string) bool {
	for _, prefix := range []string{
		"chrome://", "chrome-extension://", "edge://", "about:",
		"devtools://", "chrome-devtools://",
	} {
		if strings.HasPrefix(url, prefix) {
			return false
		}
	}
	return true
}

// Pipeline converts a raw tap event stream into normalized records and
// appends them to the Store (spec section 4.2).
type Pipeline struct {
	mu          sync.Mutex
	pendingHTTP map[string]*pendingEntry
	openWS      map[string]*openConnection

	store  *store.Store
	cfg    *config.Config
	bodies BodyFetcher
	log    *logrus.Entry
}

// New builds a Pipeline bound to a Store, a Config, and a body fetcher for
// response-body round-trips.
func New(s *store.Store, cfg *config.Config, bodies BodyFetcher, log *logrus.Logger) *Pipeline {
	if log == nil {
		log = logrus.New()
	}
	p := &Pipeline{
		pendingHTTP: make(map[string]*pendingEntry),
		openWS:      make(map[string]*openConnection),
		store:       s,
		cfg:         cfg,
		bodies:      bodies,
		log:         log.WithField("component", "capture"),
	}
	return p
}

// Run subscribes to paused-flag changes and drives the attach/detach cycle
// until ctx is cancelled (spec section 4.5: "changes to paused trigger an
// attach/detach cycle in Capture").
func (p *Pipeline) Run(ctx context.Context, attacher TapAttacher, knownTabs func() []TabInfo) {
	ch := p.cfg.Subscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case change, ok := <-ch:
			if !ok {
				return
			}
			if change.Key != "paused" {
				continue
			}
			p.applyPauseTransition(change.Settings.Paused, attacher, knownTabs())
		}
	}
}

// TabInfo is the minimal tab description the attach policy needs.
type TabInfo struct {
	TabID int
	URL   string
}

// TapAttacher requests or releases the tap's per-tab channel. Implemented
// by the /tap transport.
type TapAttacher interface {
	Attach(tabID int) error
	Detach(tabID int) error
}

// applyPauseTransition releases every attachment on pause, or re-attaches to
// every capturable tab on resume (spec section 4.2: attach policy).
func (p *Pipeline) applyPauseTransition(paused bool, attacher TapAttacher, tabs []TabInfo) {
	if paused {
		for _, t := range tabs {
			if err := attacher.Detach(t.TabID); err != nil {
				p.log.WithError(err).WithField("tab_id", t.TabID).Warn("detach failed")
			}
		}
		return
	}
	for _, t := range tabs {
		if !capturableTab(t.URL) {
			continue
		}
		if err := attacher.Attach(t.TabID); err != nil {
			// An attach failure is recorded and silently accepted (spec section 4.2).
			p.log.WithError(err).WithField("tab_id", t.TabID).Debug("attach failed")
		}
	}
}

// HandleTabEvent requests attach for a newly created or newly navigated tab,
// subject to paused and capturability (spec section 4.2).
func (p *Pipeline) HandleTabEvent(tab TabInfo, attacher TapAttacher) {
	if p.cfg.Snapshot().Paused || !capturableTab(tab.URL) {
		return
	}
	if err := attacher.Attach(tab.TabID); err != nil {
		p.log.WithError(err).WithField("tab_id", tab.TabID).Debug("attach failed")
	}
}

// HandleTabClosed drops all pending state for a tab without emitting it
// (spec section 4.2: "(any state) --[owning tab closed]--> DROP without emit").
func (p *Pipeline) HandleTabClosed(ev TabClosed) {
	p.mu.Lock()
	for id, e := range p.pendingHTTP {
		if e.tabID == ev.TabID {
			delete(p.pendingHTTP, id)
		}
	}
	for id, c := range p.openWS {
		if c.tabID == ev.TabID {
			delete(p.openWS, id)
		}
	}
	p.mu.Unlock()
}
