package ws

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/objectstream/objectstream/server/internal/config"
)

// closeWait bounds the write of a close frame.
const closeWait = time.Second

// session is one connected stream client. run is the only writer of data
// frames; readPump only consumes control frames.
type session struct {
	conn   *websocket.Conn
	params Params
	src    Source
	cfg    config.StreamConfig
	cancel context.CancelFunc
	sent   func()
}

// draw returns one sample from N(mean, std²).
func (s *session) draw() float64 {
	return s.params.Mean + s.params.Std*s.src.NormFloat64()
}

// run draws a sample, waits one interval, sends it, and repeats until ctx is
// cancelled or a write fails. It also sends periodic pings so readPump can
// detect dead peers.
func (s *session) run(ctx context.Context) {
	ping := time.NewTicker(s.cfg.PingPeriod)
	defer ping.Stop()

	value := s.draw()
	wait := time.NewTimer(s.params.Interval)
	defer wait.Stop()

	for {
		select {
		case <-ctx.Done():
			s.sendClose(websocket.CloseNormalClosure, "")
			return

		case <-ping.C:
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)) //nolint:errcheck
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logEnd("ping", err)
				return
			}

		case <-wait.C:
			if math.IsNaN(value) || math.IsInf(value, 0) {
				slog.Warn("ws: sample is not finite, ending session",
					"mean", s.params.Mean, "std", s.params.Std, "value", fmt.Sprint(value))
				s.sendClose(websocket.CloseInternalServerErr, "sample out of range")
				return
			}
			s.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout)) //nolint:errcheck
			if err := s.conn.WriteJSON(Sample{Value: value}); err != nil {
				logEnd("write", err)
				return
			}
			s.sent()
			value = s.draw()
			wait.Reset(s.params.Interval)
		}
	}
}

// readPump reads frames to process pong and close control messages and to
// detect disconnects. It cancels the session when the connection ends.
func (s *session) readPump() {
	defer s.cancel()
	s.conn.SetReadLimit(readLimit)
	s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait)) //nolint:errcheck
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(s.cfg.PongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			logEnd("read", err)
			return
		}
	}
}

func (s *session) sendClose(code int, text string) {
	msg := websocket.FormatCloseMessage(code, text)
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeWait)) //nolint:errcheck
}

// logEnd records why a session stopped. Peer disconnects are the normal way
// for a stream to end and are logged as such.
func logEnd(stage string, err error) {
	if websocket.IsCloseError(err,
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	) || errors.Is(err, net.ErrClosed) {
		slog.Debug("ws: client disconnected", "stage", stage)
		return
	}
	slog.Debug("ws: session ended", "stage", stage, "err", err)
}
