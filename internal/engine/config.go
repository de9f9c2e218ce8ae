package engine

import (
	"crypto/x509"
	"log"
	"time"
)

// kHandleReuseTimeout is how long an idle, non-resident slot's native
// transfer object survives before being destroyed (spec.md §3 invariant 3).
const kHandleReuseTimeout = 120 * time.Second

// kHandleLostTimeout is the heuristic lost-handle deadline (spec.md §4.3
// step 6): an in-use handle attached longer than this with no measurable
// transfer time is presumed stuck and completed with a timeout result.
const kHandleLostTimeout = 30 * time.Second

// CABundleLocator discovers a CA bundle path by well-known names. The core
// consumes only this interface (spec.md §1) — it never walks a filesystem
// itself.
type CABundleLocator func() (path string, ok bool)

// Config configures one Engine instance (spec.md §6, "Configuration
// knobs").
type Config struct {
	// MaxRequestsCount sizes the handle pool. Must be >= 1.
	MaxRequestsCount int

	// Verbose enables protocol tracing through Logger.
	Verbose bool
	Logger  *log.Logger

	// InsecureSkipVerify disables TLS peer+host verification. Defaults to
	// false — see SPEC_FULL.md §9, "sys_dont_verify_certificate" open
	// question.
	InsecureSkipVerify bool

	// CABundle, if set, supplies a custom CA pool; CABundleLocator is
	// consulted only when CABundle is nil.
	CABundle        *x509.CertPool
	CABundleLocator CABundleLocator

	// TimeProvider is consulted for the optional certificate-time override
	// (spec.md §4.4, TLS). Defaults to time.Now.
	TimeProvider func() time.Time

	// AdmissionCapacity, AdmissionRefillRate, and AdmissionRefillInterval
	// configure the optional admission.Limiter (SPEC_FULL.md §4.8).
	// AdmissionCapacity == 0 disables the limiter entirely, matching
	// spec.md's default behavior (overload is signalled only by pool
	// exhaustion).
	AdmissionCapacity       int64
	AdmissionRefillRate     int64
	AdmissionRefillInterval time.Duration
}

func (c *Config) setDefaults() {
	if c.MaxRequestsCount <= 0 {
		c.MaxRequestsCount = 32
	}
	if c.TimeProvider == nil {
		c.TimeProvider = time.Now
	}
}

// staticHandleCount mirrors spec.md §3: static_handle_count = max(1, N/4).
func (c *Config) staticHandleCount() int {
	n := c.MaxRequestsCount / 4
	if n < 1 {
		n = 1
	}
	return n
}
