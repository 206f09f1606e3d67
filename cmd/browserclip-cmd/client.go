package main

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/browserclip/engine/internal/rpc"
)

const dialTimeout = 5 * time.Second

// callControl dials the given server's /control endpoint, sends one
// request, reads the matching reply, and closes the connection — each CLI
// invocation is a single round-trip, not a persistent session.
func callControl(addr, method string, params interface{}) (rpc.Response, error) {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/control"}

	dialer := websocket.Dialer{HandshakeTimeout: dialTimeout}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return rpc.Response{}, fmt.Errorf("connecting to %s: %w", u.String(), err)
	}
	defer conn.Close()

	var raw json.RawMessage
	if params != nil {
		raw, err = json.Marshal(params)
		if err != nil {
			return rpc.Response{}, fmt.Errorf("encoding params: %w", err)
		}
	}

	req := rpc.Request{ID: 1, Method: method, Params: raw}
	if err := conn.WriteJSON(req); err != nil {
		return rpc.Response{}, fmt.Errorf("sending request: %w", err)
	}

	var resp rpc.Response
	if err := conn.ReadJSON(&resp); err != nil {
		return rpc.Response{}, fmt.Errorf("reading reply: %w", err)
	}
	if resp.Error != "" {
		return resp, fmt.Errorf("%s: %s", method, resp.Error)
	}
	return resp, nil
}

// printResult writes resp.Result as indented JSON to stdout.
func printResult(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
