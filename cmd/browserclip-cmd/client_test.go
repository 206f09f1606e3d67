package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/browserclip/engine/internal/rpc"
)

// fakeControlServer answers one /control request with a canned reply,
// enough to exercise callControl's dial/send/read roundtrip without
// pulling in the real controlServer and its store/config dependencies.
func fakeControlServer(t *testing.T, reply rpc.Response) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()

		var req rpc.Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		reply.ID = req.ID
		_ = conn.WriteJSON(reply)
	}))
	return srv
}

func TestCallControlRoundtrip(t *testing.T) {
	srv := fakeControlServer(t, rpc.Response{Result: map[string]interface{}{"paused": false}})
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	resp, err := callControl(addr, "getStatus", nil)
	if err != nil {
		t.Fatalf("callControl: %v", err)
	}

	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	if !strings.Contains(string(data), `"paused":false`) {
		t.Fatalf("unexpected result: %s", data)
	}
}

func TestCallControlSurfacesRemoteError(t *testing.T) {
	srv := fakeControlServer(t, rpc.Response{Error: "unknown control method: bogus"})
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	_, err := callControl(addr, "bogus", nil)
	if err == nil {
		t.Fatal("expected error from remote")
	}
	if !strings.Contains(err.Error(), "bogus") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCallControlEncodesParams(t *testing.T) {
	upgrader := websocket.Upgrader{}
	var gotParams json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Fatalf("upgrade: %v", err)
		}
		defer conn.Close()
		var req rpc.Request
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		gotParams = req.Params
		_ = conn.WriteJSON(rpc.Response{ID: req.ID, Result: "ok"})
	}))
	defer srv.Close()

	addr := strings.TrimPrefix(srv.URL, "http://")
	params := struct {
		StartTime int64 `json:"startTime"`
	}{StartTime: 123}
	if _, err := callControl(addr, "createClip", params); err != nil {
		t.Fatalf("callControl: %v", err)
	}
	if !strings.Contains(string(gotParams), `"startTime":123`) {
		t.Fatalf("params not encoded as expected: %s", gotParams)
	}
}
