// http.go — HTTP transaction state machine (spec section 4.2):
//
//	INIT --[request_will_be_sent]--> PENDING
//	PENDING --[response_received]--> PENDING_WITH_RESPONSE
//	PENDING_WITH_RESPONSE --[loading_finished]--> FINALIZED (emit)
//	PENDING|PENDING_WITH_RESPONSE --[loading_failed]--> FAILED (emit)
//	PENDING --[request_will_be_sent(redirect)]--> emit prior leg FINALIZED, start new leg
package capturepipeline

import (
	"context"

	"github.com/browserclip/engine/internal/model"
)

// HandleRequestWillBeSent starts a new transaction leg, or (on a redirect)
// finalizes the prior leg first and starts the next one in its place.
func (p *Pipeline) HandleRequestWillBeSent(ctx context.Context, ev RequestWillBeSent) {
	p.mu.Lock()
	prior, hadPrior := p.pendingHTTP[ev.RequestID]
	observed := nowFromSeconds(ev.TimestampSec)

	if hadPrior && ev.RedirectResponse != nil {
		// Emit the prior leg as FINALIZED with the redirect's response attached.
		prior.resp = ResponseInfo{
			Status:     ev.RedirectResponse.Status,
			StatusText: ev.RedirectResponse.StatusText,
			Headers:    ev.RedirectResponse.Headers,
			URL:        ev.RedirectResponse.URL,
		}
		prior.hasResp = true
		delete(p.pendingHTTP, ev.RequestID)
		p.mu.Unlock()
		p.emitFinalized(ctx, ev.RequestID, prior, prior.resp.EncodedLength())
	} else {
		p.mu.Unlock()
	}

	entry := &pendingEntry{
		state:        statePending,
		tabID:        ev.TabID,
		hostname:     ev.Hostname,
		observedAt:   observed,
		startedAt:    observed,
		req:          ev.Request,
		resourceType: ev.ResourceType,
	}

	p.mu.Lock()
	p.pendingHTTP[ev.RequestID] = entry
	p.mu.Unlock()
}

// EncodedLength is a convenience accessor so the redirect-leg synthetic
// ResponseInfo above satisfies the same body-size decision as a real one.
func (r ResponseInfo) EncodedLength() int64 { return r.EncodedDataLength }

// HandleResponseReceived transitions PENDING -> PENDING_WITH_RESPONSE.
func (p *Pipeline) HandleResponseReceived(ev ResponseReceived) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.pendingHTTP[ev.RequestID]
	if !ok {
		return
	}
	entry.resp = ev.Response
	entry.hasResp = true
	entry.state = statePendingWithResponse
}

// HandleLoadingFinished transitions to FINALIZED and emits the entry,
// fetching the response body first when it is within the size ceiling.
func (p *Pipeline) HandleLoadingFinished(ctx context.Context, ev LoadingFinished) {
	p.mu.Lock()
	entry, ok := p.pendingHTTP[ev.RequestID]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pendingHTTP, ev.RequestID)
	p.mu.Unlock()

	p.emitFinalized(ctx, ev.RequestID, entry, ev.EncodedDataLength)
}

// HandleLoadingFailed transitions to FAILED and emits the entry with the
// available response plus the error text (spec section 4.2).
func (p *Pipeline) HandleLoadingFailed(ctx context.Context, ev LoadingFailed) {
	p.mu.Lock()
	entry, ok := p.pendingHTTP[ev.RequestID]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.pendingHTTP, ev.RequestID)
	p.mu.Unlock()

	entry.resp.Error = ev.ErrorText
	if err := p.storeHTTPEntry(ctx, ev.RequestID, entry, nil, false); err != nil {
		p.log.WithError(err).WithField("request_id", ev.RequestID).Error("append failed entry")
	}
}

// emitFinalized fetches the body when eligible and appends the finished entry.
// Body-retrieval failure does not abort the transaction (spec section 4.2:
// failure semantics) — the record is still emitted, with the body omitted.
func (p *Pipeline) emitFinalized(ctx context.Context, requestID string, entry *pendingEntry, encodedLen int64) {
	var body *ResponseBody
	if encodedLen <= MaxInlineBodyBytes && p.bodies != nil {
		b, err := p.bodies.GetResponseBody(ctx, requestID)
		if err != nil {
			p.log.WithError(err).WithField("request_id", requestID).Debug("body retrieval failed")
		} else {
			body = &b
		}
	}
	if err := p.storeHTTPEntry(ctx, requestID, entry, body, true); err != nil {
		p.log.WithError(err).WithField("request_id", requestID).Error("append finalized entry")
	}
}

func toNameValues(h HeaderMap) []model.NameValue {
	out := make([]model.NameValue, 0, len(h))
	for k, v := range h {
		out = append(out, model.NameValue{Name: k, Value: v})
	}
	return out
}

func (p *Pipeline) storeHTTPEntry(ctx context.Context, requestID string, entry *pendingEntry, body *ResponseBody, ok bool) error {
	req := model.HTTPRequest{
		Method:      entry.req.Method,
		URL:         entry.req.URL,
		HTTPVersion: entry.req.HTTPVersion,
		Headers:     toNameValues(entry.req.Headers),
		QueryString: parseQueryString(entry.req.URL),
		HeadersSize: headerBytes(entry.req.Headers),
		BodySize:    len(entry.req.PostData),
	}
	if entry.req.PostData != "" {
		req.PostData = &model.PostData{MimeType: entry.req.PostDataMIME, Text: entry.req.PostData}
	}

	resp := model.HTTPResponse{
		Status:      entry.resp.Status,
		StatusText:  entry.resp.StatusText,
		HTTPVersion: entry.req.HTTPVersion,
		Headers:     toNameValues(entry.resp.Headers),
		HeadersSize: headerBytes(entry.resp.Headers),
		Error:       entry.resp.Error,
		Content: model.HTTPContent{
			MimeType: entry.resp.MimeType,
		},
	}
	if body != nil {
		resp.Content.Text = body.Body
		resp.Content.Size = len(body.Body)
		if body.Base64Encoded {
			resp.Content.Encoding = "base64"
		}
	} else if entry.hasResp {
		resp.Content.Size = int(entry.resp.EncodedDataLength)
	}
	resp.BodySize = resp.Content.Size

	httpEntry := model.HTTPEntry{
		Envelope: model.Envelope{
			Timestamp: entry.observedAt.UnixMilli(),
			TabID:     entry.tabID,
			Hostname:  entry.hostname,
		},
		StartedAt:    entry.startedAt.UTC().Format(isoLayout),
		Request:      req,
		Response:     resp,
		ElapsedMs:    elapsedMillis(entry.observedAt),
		ResourceType: entry.resourceType,
	}

	_, err := p.store.AppendHTTPEntry(httpEntry)
	return err
}
