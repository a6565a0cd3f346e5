package outbox

import (
	"math/rand"
	"time"

	"github.com/sirupsen/logrus"
)

type RelayOptions struct {
	PollInterval time.Duration
	BatchSize    int
	// LockTTL is how long a claimed row stays invisible to other relays.
	// It must exceed DispatchTimeout or a slow import gets delivered twice.
	LockTTL         time.Duration
	MaxAttempts     int
	SingleActive    bool
	BaseBackoff     time.Duration
	MaxBackoff      time.Duration
	JitterMax       time.Duration
	LastErrorMaxLen int
	DispatchTimeout time.Duration

	ObserveQueueDepthEvery time.Duration

	Logger *logrus.Entry
	Rand   *rand.Rand
}

func (o *RelayOptions) setDefaults() {
	if o.PollInterval == 0 {
		o.PollInterval = time.Second
	}
	if o.BatchSize == 0 {
		o.BatchSize = 10
	}
	if o.DispatchTimeout == 0 {
		o.DispatchTimeout = 10 * time.Minute
	}
	if o.LockTTL == 0 {
		o.LockTTL = o.DispatchTimeout + time.Minute
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = 25
	}
	if o.BaseBackoff == 0 {
		o.BaseBackoff = time.Second
	}
	if o.MaxBackoff == 0 {
		o.MaxBackoff = 10 * time.Minute
	}
	if o.JitterMax == 0 {
		o.JitterMax = 500 * time.Millisecond
	}
	if o.LastErrorMaxLen == 0 {
		o.LastErrorMaxLen = 2048
	}
	if o.ObserveQueueDepthEvery == 0 {
		o.ObserveQueueDepthEvery = 30 * time.Second
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec
	}
}

func (o RelayOptions) validate() error {
	if o.BatchSize < 0 || o.MaxAttempts < 0 {
		return invalidConfig("batch size and max attempts must be positive")
	}
	if o.LockTTL <= o.DispatchTimeout {
		return invalidConfig("lock ttl %s must exceed dispatch timeout %s", o.LockTTL, o.DispatchTimeout)
	}
	return nil
}

type CleanerOptions struct {
	Interval  time.Duration
	Retention time.Duration
	// DeadRetention prunes rows that exhausted MaxAttempts. Zero keeps them.
	DeadRetention time.Duration
	MaxAttempts   int

	Logger *logrus.Entry
}

func (o *CleanerOptions) setDefaults() {
	if o.Interval == 0 {
		o.Interval = time.Minute
	}
	if o.Retention == 0 {
		o.Retention = 7 * 24 * time.Hour
	}
	if o.Logger == nil {
		o.Logger = discardLogger()
	}
}

func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}
