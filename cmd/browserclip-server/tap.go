// tap.go — The /tap websocket transport: decodes inbound event frames into
// capturepipeline.Handle* calls, and implements the two interfaces the
// pipeline needs back out (BodyFetcher, TapAttacher) by sending outbound
// request frames over the same connection and waiting for their reply.
//
// One physical connection multiplexes every attached tab (the spec's "tap
// channel exists per tab" is realized here as one JSON stream tagged by
// tab_id, following the teacher's single /websocket-events endpoint
// (cmd/dev-console/v5_stubs.go and friends) rather than one socket per tab).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/browserclip/engine/internal/capturepipeline"
	"github.com/browserclip/engine/internal/model"
)

const tapRequestTimeout = 10 * time.Second

// tapSession owns one /tap connection and answers the pipeline's
// BodyFetcher/TapAttacher interfaces against it.
type tapSession struct {
	conn *websocket.Conn
	log  *logrus.Entry

	writeMu sync.Mutex

	nextID  int64
	pending sync.Map // int64 -> chan json.RawMessage
}

func newTapSession(conn *websocket.Conn, log *logrus.Entry) *tapSession {
	return &tapSession{conn: conn, log: log}
}

func (s *tapSession) send(v interface{}) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(v)
}

// call sends a frame carrying a fresh correlation id and blocks for the
// matching reply, or until ctx is cancelled.
func (s *tapSession) call(ctx context.Context, frame map[string]interface{}) (json.RawMessage, error) {
	id := atomic.AddInt64(&s.nextID, 1)
	frame["id"] = id

	replyCh := make(chan json.RawMessage, 1)
	s.pending.Store(id, replyCh)
	defer s.pending.Delete(id)

	if err := s.send(frame); err != nil {
		return nil, fmt.Errorf("tap: send %s: %w", frame["type"], err)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case reply := <-replyCh:
		return reply, nil
	}
}

// GetResponseBody implements capturepipeline.BodyFetcher.
func (s *tapSession) GetResponseBody(ctx context.Context, requestID string) (capturepipeline.ResponseBody, error) {
	ctx, cancel := context.WithTimeout(ctx, tapRequestTimeout)
	defer cancel()

	raw, err := s.call(ctx, map[string]interface{}{
		"type":       "get_response_body",
		"request_id": requestID,
	})
	if err != nil {
		return capturepipeline.ResponseBody{}, err
	}
	var body capturepipeline.ResponseBody
	if err := json.Unmarshal(raw, &body); err != nil {
		return capturepipeline.ResponseBody{}, fmt.Errorf("tap: decoding response body reply: %w", err)
	}
	return body, nil
}

// Attach implements capturepipeline.TapAttacher.
func (s *tapSession) Attach(tabID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), tapRequestTimeout)
	defer cancel()
	_, err := s.call(ctx, map[string]interface{}{"type": "attach", "tab_id": tabID})
	return err
}

// Detach implements capturepipeline.TapAttacher.
func (s *tapSession) Detach(tabID int) error {
	ctx, cancel := context.WithTimeout(context.Background(), tapRequestTimeout)
	defer cancel()
	_, err := s.call(ctx, map[string]interface{}{"type": "detach", "tab_id": tabID})
	return err
}

// readLoop dispatches every inbound frame: replies to an outstanding call()
// are routed by id, everything else is an event handed to the pipeline.
func (s *tapSession) readLoop(ctx context.Context, p *capturepipeline.Pipeline) {
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			s.log.WithError(err).Info("tap connection closed")
			return
		}

		var envelope struct {
			Type string `json:"type"`
			ID   int64  `json:"id,omitempty"`
		}
		if err := json.Unmarshal(data, &envelope); err != nil {
			s.log.WithError(err).Warn("tap: malformed frame")
			continue
		}

		if envelope.ID != 0 {
			if ch, ok := s.pending.Load(envelope.ID); ok {
				ch.(chan json.RawMessage) <- data
				continue
			}
		}

		if err := s.dispatchEvent(ctx, p, envelope.Type, data); err != nil {
			s.log.WithError(err).WithField("event_type", envelope.Type).Warn("tap: event handling failed")
		}
	}
}

func (s *tapSession) dispatchEvent(ctx context.Context, p *capturepipeline.Pipeline, eventType string, data []byte) error {
	switch eventType {
	case "request_will_be_sent":
		var ev capturepipeline.RequestWillBeSent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		p.HandleRequestWillBeSent(ctx, ev)
	case "response_received":
		var ev capturepipeline.ResponseReceived
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		p.HandleResponseReceived(ev)
	case "loading_finished":
		var ev capturepipeline.LoadingFinished
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		p.HandleLoadingFinished(ctx, ev)
	case "loading_failed":
		var ev capturepipeline.LoadingFailed
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		p.HandleLoadingFailed(ctx, ev)
	case "ws_created":
		var ev capturepipeline.WSCreated
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		p.HandleWSCreated(ev)
	case "ws_frame_sent":
		var ev capturepipeline.WSFrameEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		return p.HandleWSFrame(ctx, ev.RequestID, ev, model.WSDirectionSend)
	case "ws_frame_received":
		var ev capturepipeline.WSFrameEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		return p.HandleWSFrame(ctx, ev.RequestID, ev, model.WSDirectionReceive)
	case "ws_closed":
		var ev capturepipeline.WSClosed
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		p.HandleWSClosed(ev)
	case "sse_message":
		var ev capturepipeline.SSEMessage
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		return p.HandleSSEMessage(ev)
	case "tab_closed":
		var ev capturepipeline.TabClosed
		if err := json.Unmarshal(data, &ev); err != nil {
			return err
		}
		p.HandleTabClosed(ev)
	default:
		s.log.WithField("event_type", eventType).Debug("tap: unrecognized event type, ignoring")
	}
	return nil
}
