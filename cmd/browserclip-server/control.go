// control.go — The /control websocket: one JSON-RPC-shaped request/response
// pair per control-plane message (spec section 6), generalizing the
// teacher's stdio JSON-RPC loop (cmd/dev-console/main.go's JSONRPCRequest/
// JSONRPCResponse and method switch) onto gorilla/websocket frames instead
// of stdin/stdout lines.
package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/browserclip/engine/internal/buffer"
	"github.com/browserclip/engine/internal/clip"
	"github.com/browserclip/engine/internal/config"
	"github.com/browserclip/engine/internal/rpc"
	"github.com/browserclip/engine/internal/store"
	"github.com/browserclip/engine/internal/uploader"
)

// controlServer dispatches control-plane messages against the engine's
// components (spec section 6's named message list).
type controlServer struct {
	cfg      *config.Config
	store    *store.Store
	builder  *clip.Builder
	mgr      *buffer.Manager
	uploader *uploader.Uploader
	log      *logrus.Entry
}

func (c *controlServer) handleConn(conn *websocket.Conn) {
	defer conn.Close()
	for {
		var req rpc.Request
		if err := conn.ReadJSON(&req); err != nil {
			c.log.WithError(err).Info("control connection closed")
			return
		}
		resp := c.dispatch(req)
		if err := conn.WriteJSON(resp); err != nil {
			c.log.WithError(err).Warn("control: write reply failed")
			return
		}
	}
}

func (c *controlServer) dispatch(req rpc.Request) rpc.Response {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := c.call(ctx, req.Method, req.Params)
	if err != nil {
		return rpc.Response{ID: req.ID, Error: err.Error()}
	}
	return rpc.Response{ID: req.ID, Result: result}
}

func (c *controlServer) call(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case "getStatus":
		return c.getStatus()
	case "createClip":
		return c.createClip(ctx, params)
	case "pauseCapture":
		return nil, c.cfg.SetPaused(true)
	case "resumeCapture":
		return nil, c.cfg.SetPaused(false)
	case "clearBuffer":
		return nil, c.store.ClearAll()
	case "testSupabaseConnection":
		return c.testSupabaseConnection(ctx, params)
	case "getCaptureStatus":
		return map[string]bool{"paused": c.cfg.Snapshot().Paused}, nil
	case "getBufferStatus":
		return c.getBufferStatus()
	case "getStorageStatus":
		return c.getStorageStatus()
	case "runCleanup":
		return nil, c.mgr.RunPass(ctx)
	default:
		return nil, errUnknownMethod(method)
	}
}

type errUnknownMethod string

func (e errUnknownMethod) Error() string { return "unknown control method: " + string(e) }

func (c *controlServer) getStatus() (interface{}, error) {
	snap := c.cfg.Snapshot()
	span, err := c.mgr.BufferSpan()
	if err != nil {
		return nil, err
	}
	pressure, err := c.mgr.Pressure()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"paused":            snap.Paused,
		"storage_cap_class": snap.StorageCapClass,
		"default_scope":     snap.DefaultScope,
		"buffer_span_ms":    span.DurationMs,
		"pressure":          pressure,
	}, nil
}

func (c *controlServer) createClip(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		StartTime int64  `json:"startTime"`
		EndTime   int64  `json:"endTime"`
		TabIDs    []int  `json:"tabIds"`
		ClipName  string `json:"clipName"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	return c.builder.CreateClip(ctx, clip.Request{
		StartMs: req.StartTime,
		EndMs:   req.EndTime,
		Tabs:    req.TabIDs,
		Name:    req.ClipName,
	})
}

func (c *controlServer) testSupabaseConnection(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		URL string `json:"url"`
		Key string `json:"key"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, err
	}
	if req.URL != "" || req.Key != "" {
		if err := c.cfg.SetEndpoint(req.URL, req.Key); err != nil {
			return nil, err
		}
	}
	return c.uploader.TestConnection(ctx)
}

func (c *controlServer) getBufferStatus() (interface{}, error) {
	span, err := c.mgr.BufferSpan()
	if err != nil {
		return nil, err
	}
	truncated, err := c.mgr.Truncated()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"oldest_ts":   span.OldestTS,
		"newest_ts":   span.NewestTS,
		"duration_ms": span.DurationMs,
		"truncated":   truncated,
	}, nil
}

func (c *controlServer) getStorageStatus() (interface{}, error) {
	pressure, err := c.mgr.Pressure()
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"pressure":  pressure,
		"cap_class": c.cfg.Snapshot().StorageCapClass,
	}, nil
}
