package engine

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"sync"
	"sync/atomic"

	"github.com/netengine/netengine/internal/engine/admission"
	"github.com/netengine/netengine/internal/engine/transfer"
)

// engineState is the STOPPED/STARTED/STOPPING machine of spec.md §3.
type engineState int32

const (
	stateStopped engineState = iota
	stateStarted
	stateStopping
)

// Engine is the multiplexed HTTP client core. The zero value is not usable;
// construct with New.
type Engine struct {
	cfg Config

	// initMu serializes Initialize/Deinitialize (spec.md §5).
	initMu sync.Mutex

	// mu is the single event mutex guarding state, the event queue, every
	// handle slot's metadata, and the request-id counter (spec.md §5).
	mu     sync.Mutex
	state  int32 // engineState, accessed via atomic for Ready()'s fast path
	events []event
	wakeup chan struct{}

	handles           []*handle
	staticHandleCount int
	nextID            RequestId

	client  *transfer.Client
	limiter *admission.Limiter

	workerDone chan struct{}
}

// New constructs an Engine. The worker goroutine is not started until the
// first Send (or an explicit Initialize).
func New(cfg Config) *Engine {
	cfg.setDefaults()

	bundle := cfg.CABundle
	if bundle == nil && cfg.CABundleLocator != nil {
		if path, ok := cfg.CABundleLocator(); ok {
			if pool, err := loadCABundle(path); err == nil {
				bundle = pool
			} else if cfg.Logger != nil {
				cfg.Logger.Printf("engine: ignoring CA bundle at %s: %v", path, err)
			}
		}
	}
	var tlsCfg *tls.Config
	if bundle != nil {
		tlsCfg = &tls.Config{RootCAs: bundle}
	}

	e := &Engine{
		cfg:               cfg,
		wakeup:            make(chan struct{}, 1),
		staticHandleCount: cfg.staticHandleCount(),
		nextID:            RequestIdMin,
		client:            transfer.NewClient(cfg.InsecureSkipVerify, tlsCfg, cfg.TimeProvider),
	}
	if cfg.AdmissionCapacity > 0 {
		e.limiter = admission.NewLimiter(cfg.AdmissionCapacity, cfg.AdmissionRefillRate, cfg.AdmissionRefillInterval)
	}
	return e
}

// loadCABundle reads and parses a PEM-encoded CA bundle from path, the
// fallback path when Config.CABundle isn't set directly but a
// CABundleLocator names one (spec.md §6, "CA bundle location").
func loadCABundle(path string) (*x509.CertPool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	pool.AppendCertsFromPEM(data)
	return pool, nil
}

func (e *Engine) getState() engineState {
	return engineState(atomic.LoadInt32(&e.state))
}

func (e *Engine) setStateLocked(s engineState) {
	atomic.StoreInt32(&e.state, int32(s))
}

func (e *Engine) logf(format string, args ...interface{}) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Printf(format, args...)
	}
}

func (e *Engine) tracef(format string, args ...interface{}) {
	if e.cfg.Verbose && e.cfg.Logger != nil {
		e.cfg.Logger.Printf(format, args...)
	}
}
