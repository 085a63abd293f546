package membership

import (
	"time"

	kitlog "github.com/go-kit/log"
	"github.com/google/uuid"
)

type Config struct {
	// ID identifies this process. A random one is generated when not set.
	ID uuid.UUID
	// Logger receives view changes and identity collisions.
	Logger kitlog.Logger
	// HeartbeatInterval is the time between two heartbeats of the local node.
	HeartbeatInterval time.Duration
	// Timeout is the time after which a silent member is left out of the view.
	Timeout time.Duration
	// ForgetAfter is the time after which a silent member is removed from
	// the roster altogether.
	ForgetAfter time.Duration
	// BitsetWidth is the number of slots of the membership bitset.
	BitsetWidth int
	// Preferred is advertised to other members in every heartbeat.
	Preferred bool
	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

func DefaultConfig() Config {
	return Config{
		Logger:            kitlog.NewNopLogger(),
		HeartbeatInterval: 1 * time.Second,
		Timeout:           10 * time.Second,
		ForgetAfter:       1 * time.Hour,
		BitsetWidth:       256,
		Clock:             time.Now,
	}
}
