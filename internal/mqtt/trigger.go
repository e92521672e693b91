package mqtt

import (
	"context"
	"time"

	"github.com/thomluther/anker-solix-api/internal/hexdata"
)

// Realtime trigger window bounds in seconds. Devices stop sending fast
// telemetry once the window expires, so callers re-arm it periodically.
const (
	TriggerMin     = 30 * time.Second
	TriggerMax     = 600 * time.Second
	TriggerDefault = 300 * time.Second
)

// RealtimeTrigger asks a device to publish realtime telemetry for the
// given window. A zero timeout uses the default window. The window is
// not renewed automatically.
func (b *Bridge) RealtimeTrigger(ctx context.Context, dev DeviceRef, timeout time.Duration) (*hexdata.Command, error) {
	if timeout == 0 {
		timeout = TriggerDefault
	}
	return b.SendCommand(ctx, dev, "realtime_trigger", map[string]any{
		"set_realtime_data": 1,
		"set_timeout":       int64(timeout / time.Second),
	})
}

// StopRealtime ends the realtime telemetry window early.
func (b *Bridge) StopRealtime(ctx context.Context, dev DeviceRef) (*hexdata.Command, error) {
	return b.SendCommand(ctx, dev, "realtime_trigger", map[string]any{
		"set_realtime_data": 0,
		"set_timeout":       int64(TriggerMin / time.Second),
	})
}
