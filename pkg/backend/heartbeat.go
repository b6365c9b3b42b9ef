package backend

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"k8s.io/apimachinery/pkg/util/wait"
)

const heartbeatJitter = .1

// StartHeartbeatDaemon pings the live store handle on an interval until done
// closes. A failed ping moves the connection into the error state; it does not
// reconnect.
func (b *backend) StartHeartbeatDaemon(done <-chan struct{}) {
	if b.heartbeatInterval <= 0 {
		logrus.Info("store heartbeat disabled")
		return
	}

	logrus.Infof("starting store heartbeat. Interval: %v", b.heartbeatInterval)
	wait.JitterUntil(b.heartbeat, b.heartbeatInterval, heartbeatJitter, true, done)
}

func (b *backend) heartbeat() {
	timeout := b.heartbeatInterval
	if timeout > 5*time.Second {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := b.conn.Ping(ctx); err != nil {
		b.log.WithError(err).WithField("state", b.conn.State().String()).Warn("store heartbeat failed")
		return
	}
	b.log.WithField("state", b.conn.State().String()).Trace("store heartbeat")
}
