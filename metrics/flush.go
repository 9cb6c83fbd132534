package metrics

import (
	"fmt"

	"github.com/pithecene-io/beacon/adapter"
	"github.com/pithecene-io/beacon/batch"
	"github.com/pithecene-io/beacon/monitor"
	"github.com/pithecene-io/beacon/types"
	"github.com/pithecene-io/beacon/validate"
)

// Flush sends every pending message now, superseding the scheduled flush.
func (l *Logger) Flush() {
	if !l.onLoop("flush") {
		return
	}
	l.flush(batch.FlushTriggerExplicit)
}

// flush drains the queue into one batch and hands it to the connection.
// The queue is cleared before the send; failed batches are not re-enqueued.
func (l *Logger) flush(trigger batch.FlushTrigger) {
	msgs := l.queue.Drain(trigger)
	l.collector.AbsorbQueueStats(l.queue.Stats())
	if len(msgs) == 0 {
		return
	}

	l.batchNumber++
	number := l.batchNumber
	ctx := monitor.Context{Kind: monitor.ContextBatch, Batch: number}
	// Built before the batch context opens so diagnostics only summarize
	// completed batches.
	req := l.buildRequest(msgs, number)

	l.monitor.Execute(ctx, func() {
		for _, err := range validate.Request(req) {
			l.reportError(err)
		}

		payload, rawSize, err := l.config.Encoder.EncodeRequest(req)
		if err != nil {
			l.counters.WithErrors++
			l.reportError(fmt.Errorf("%w: batch %d: %w", ErrEncode, number, err))
			return
		}

		l.monitor.WillLogData(payload)
		l.counters.Attempted++
		l.logger.Info("flushing batch", map[string]any{
			"trigger":      string(trigger),
			"batch_number": number,
			"messages":     len(msgs),
			"bytes":        len(payload),
			"raw_bytes":    rawSize,
		})

		l.sending = true
		l.config.Connection.Send(l.ctx, &adapter.Request{
			Payload:         payload,
			ContentType:     l.config.Encoder.ContentType(),
			ContentEncoding: l.config.Encoder.ContentEncoding(),
			BatchNumber:     number,
			MessageCount:    len(msgs),
		}, func(resp []byte, err error) {
			l.loop.Post(func() { l.handleResponse(number, resp, err) })
		})
		l.sending = false
		l.monitor.DidLog()
	})

	// Responses delivered synchronously by the connection are processed
	// once the batch context has unwound.
	deferred := l.responses
	l.responses = nil
	for _, fn := range deferred {
		fn()
	}
}

func (l *Logger) handleResponse(number int, resp []byte, err error) {
	if l.sending {
		l.responses = append(l.responses, func() { l.handleResponse(number, resp, err) })
		return
	}
	l.monitor.Execute(monitor.Context{Kind: monitor.ContextBatchResponse, Batch: number}, func() {
		if err != nil {
			l.counters.WithErrors++
			l.reportError(fmt.Errorf("%w: batch %d: %w", ErrSend, number, err))
			return
		}
		l.counters.Succeeded++
		l.logger.Debug("batch delivered", map[string]any{
			"batch_number":   number,
			"response_bytes": len(resp),
		})
	})
}

// buildRequest wraps msgs with user, client and device info, and the
// diagnostics sub-message when enabled.
func (l *Logger) buildRequest(msgs []types.Message, number int) *types.LogRequest {
	req := &types.LogRequest{
		UserInfo: types.UserInfo{
			UserID:    l.userID,
			LogUserID: l.logUserID.CurrentOrPending().Value,
		},
		ClientInfo: l.config.ClientInfo,
		Device:     l.deviceInfo(),
	}
	for _, m := range msgs {
		req.Add(m)
	}

	d := l.config.Diagnostics
	if !d.enabled() {
		return req
	}
	diag := &types.Diagnostics{
		ClientVersion:           types.Version,
		BatchesAttempted:        l.counters.Attempted,
		BatchesSentSuccessfully: l.counters.Succeeded,
		BatchesWithErrors:       l.counters.WithErrors,
	}
	if d.IncludeAncestorIDHistory {
		l.history.Record(IDLogUser, l.logUserID.CurrentOrPending(), number)
		diag.AncestorIDHistory = l.history.Message()
	}
	if d.IncludeBatchSummaries && l.config.Xray != nil {
		diag.BatchSummaries = l.config.Xray.Summaries()
	}
	req.Diagnostics = diag
	return req
}

// deviceInfo computes the device message once per process.
func (l *Logger) deviceInfo() *types.Device {
	if !l.deviceCached {
		l.deviceCached = true
		if l.config.Device != nil {
			l.device = l.config.Device()
		}
	}
	return l.device
}

func validateMessage(msg types.Message) []error {
	verrs := validate.Message(msg)
	if len(verrs) == 0 {
		return nil
	}
	out := make([]error, len(verrs))
	for i, e := range verrs {
		out[i] = e
	}
	return out
}
