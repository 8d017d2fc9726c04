package bulk

import "time"

// RetryPolicy applies to throttled writes. MaxAttempts counts every write attempt,
// including the first.
type RetryPolicy struct {
	MaxRetryWait time.Duration
	MaxAttempts  int
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetryWait: DEFAULT_MAX_RETRY_WAIT,
		MaxAttempts:  DEFAULT_MAX_RETRY_ATTEMPTS,
	}
}

func (p RetryPolicy) normalize() RetryPolicy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.MaxRetryWait < 0 {
		p.MaxRetryWait = 0
	}
	return p
}

type Options struct {
	RetryPolicy                  RetryPolicy
	EnableUpsert                 bool
	DisableAutomaticIDGeneration bool
	MaxConcurrencyPerRange       int
	MaxBatchElements             int
	MaxBatchBytes                int
	// RetryBaseWait drives exponential backoff when a throttle carries no suggested delay.
	RetryBaseWait time.Duration
	// OnOutcome, when set, observes every batch outcome. It is called from writer goroutines.
	OnOutcome func(Outcome)
}

// NewOptions reads options from the environment and settings file.
func NewOptions() Options {
	cfg := NewConf()
	return Options{
		RetryPolicy: RetryPolicy{
			MaxRetryWait: cfg.MaxRetryWait(),
			MaxAttempts:  cfg.MaxRetryAttempts(),
		},
		EnableUpsert:                 cfg.EnableUpsert(),
		DisableAutomaticIDGeneration: cfg.DisableAutomaticIDGeneration(),
		MaxConcurrencyPerRange:       cfg.MaxConcurrencyPerRange(),
		MaxBatchElements:             cfg.MaxBatchElements(),
		MaxBatchBytes:                cfg.MaxBatchBytes(),
		RetryBaseWait:                cfg.RetryBaseWait(),
	}
}

func DefaultOptions() Options {
	return Options{
		RetryPolicy:                  DefaultRetryPolicy(),
		EnableUpsert:                 DEFAULT_ENABLE_UPSERT,
		DisableAutomaticIDGeneration: DEFAULT_DISABLE_AUTOMATIC_ID_GENERATION,
		MaxConcurrencyPerRange:       DEFAULT_MAX_CONCURRENCY_PER_RANGE,
		MaxBatchElements:             DEFAULT_MAX_BATCH_ELEMENTS,
		MaxBatchBytes:                DEFAULT_MAX_BATCH_BYTES,
		RetryBaseWait:                DEFAULT_RETRY_BASE_WAIT,
	}
}

func (o Options) normalize() Options {
	o.RetryPolicy = o.RetryPolicy.normalize()
	if o.MaxConcurrencyPerRange < 1 {
		o.MaxConcurrencyPerRange = DEFAULT_MAX_CONCURRENCY_PER_RANGE
	}
	if o.MaxBatchElements < 1 {
		o.MaxBatchElements = DEFAULT_MAX_BATCH_ELEMENTS
	}
	if o.MaxBatchBytes < 1 {
		o.MaxBatchBytes = DEFAULT_MAX_BATCH_BYTES
	}
	if o.RetryBaseWait < 0 {
		o.RetryBaseWait = 0
	}
	return o
}
