// Package selftest exercises the signing engine on every registered curve
// with a pool of parallel workers. Each work item generates a fresh key and
// checks the signing properties the engine guarantees.
package selftest

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/detecdsa"
	"github.com/mahdiidarabi/ecdsa-deterministic/pkg/logging"
)

// Property names a checked guarantee.
type Property string

const (
	RoundTrip     Property = "round-trip"
	Determinism   Property = "determinism"
	TamperR       Property = "tamper-r"
	TamperMessage Property = "tamper-message"
	Malformed     Property = "malformed"
	CrossCurve    Property = "cross-curve"
	Encoding      Property = "encoding"
)

// Options configures Run.
type Options struct {
	Curves  []*detecdsa.Curve // Curves to test (default: the whole registry)
	Rounds  int               // Keys per curve (default: 1)
	Workers int               // Parallel workers (0 = number of CPUs)
	Engine  *detecdsa.Engine  // Engine under test (default: detecdsa.NewEngine())
	Rand    io.Reader         // Key source (default: crypto/rand.Reader)
	Logger  logging.Logger    // Progress logger (default: discard)
}

// Failure records one property that did not hold.
type Failure struct {
	Curve    string
	Round    int
	Property Property
	Detail   string
}

func (f Failure) String() string {
	return fmt.Sprintf("%s round %d: %s: %s", f.Curve, f.Round, f.Property, f.Detail)
}

// Report summarizes a run.
type Report struct {
	Items    int64
	Checks   int64
	Failures []Failure
	Elapsed  time.Duration
}

// OK reports whether every check passed.
func (r *Report) OK() bool {
	return len(r.Failures) == 0
}

type workItem struct {
	curve *detecdsa.Curve
	round int
}

// Run checks every curve Rounds times. It returns ctx.Err() if the context is
// cancelled before all work items finish; the partial report is still
// returned.
func Run(ctx context.Context, opts Options) (*Report, error) {
	curves := opts.Curves
	if len(curves) == 0 {
		curves = detecdsa.Curves()
	}
	rounds := opts.Rounds
	if rounds <= 0 {
		rounds = 1
	}
	numWorkers := opts.Workers
	if numWorkers <= 0 {
		numWorkers = runtime.NumCPU()
	}
	engine := opts.Engine
	if engine == nil {
		engine = detecdsa.NewEngine()
	}
	random := opts.Rand
	if random == nil {
		random = rand.Reader
	}
	log := opts.Logger
	if log == nil {
		log = logging.Discard()
	}

	log.Info(ctx, "selftest starting", "curves", len(curves), "rounds", rounds, "workers", numWorkers)
	start := time.Now()

	workChan := make(chan workItem, numWorkers*10)
	failChan := make(chan Failure, numWorkers)

	var items, checks int64
	c := &checker{engine: engine, all: curves, random: &lockedReader{r: random}, checks: &checks}

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case work, ok := <-workChan:
					if !ok {
						return
					}
					atomic.AddInt64(&items, 1)
					for _, f := range c.run(work) {
						select {
						case failChan <- f:
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}()
	}

	go func() {
		defer close(workChan)
		for round := 0; round < rounds; round++ {
			for _, curve := range curves {
				select {
				case <-ctx.Done():
					return
				case workChan <- workItem{curve: curve, round: round}:
				}
			}
		}
	}()

	go func() {
		wg.Wait()
		close(failChan)
	}()

	report := &Report{}
	for f := range failChan {
		log.Warn(ctx, "selftest property failed", "curve", f.Curve, "round", f.Round, "property", string(f.Property), "detail", f.Detail)
		report.Failures = append(report.Failures, f)
	}

	report.Items = atomic.LoadInt64(&items)
	report.Checks = atomic.LoadInt64(&checks)
	report.Elapsed = time.Since(start)
	log.Info(ctx, "selftest finished", "items", report.Items, "checks", report.Checks, "failures", len(report.Failures), "elapsed", report.Elapsed)

	return report, ctx.Err()
}

type checker struct {
	engine *detecdsa.Engine
	all    []*detecdsa.Curve
	random io.Reader
	checks *int64
}

func (c *checker) run(work workItem) []Failure {
	var failures []Failure
	fail := func(p Property, format string, args ...any) {
		failures = append(failures, Failure{
			Curve:    work.curve.Name(),
			Round:    work.round,
			Property: p,
			Detail:   fmt.Sprintf(format, args...),
		})
	}
	check := func(p Property, ok bool, detail string) {
		atomic.AddInt64(c.checks, 1)
		if !ok {
			fail(p, "%s", detail)
		}
	}

	curve := work.curve
	key, err := detecdsa.GenerateKey(curve, c.random)
	if err != nil {
		fail(RoundTrip, "key generation: %v", err)
		return failures
	}
	defer key.Zeroize()
	pub := key.PublicKey()

	msg := []byte(fmt.Sprintf("selftest %s round %d", curve.Name(), work.round))
	if work.round == 0 {
		msg = []byte{}
	}

	sig, err := c.engine.Sign(msg, key.D(), curve)
	if err != nil {
		fail(RoundTrip, "sign: %v", err)
		return failures
	}
	check(RoundTrip, sig.InRange(curve), "signature component out of range")
	check(RoundTrip, c.engine.Verify(msg, sig, pub, curve), "valid signature rejected")

	again, err := c.engine.Sign(msg, key.D(), curve)
	check(Determinism, err == nil && sig.Equal(again), "repeated signature differs")

	tampered := &detecdsa.Signature{R: new(big.Int).Sub(sig.R, big.NewInt(1)), S: sig.S}
	check(TamperR, !c.engine.Verify(msg, tampered, pub, curve), "signature with r-1 accepted")
	check(TamperMessage, !c.engine.Verify(append(msg, '!'), sig, pub, curve), "signature accepted for altered message")

	n := curve.Order()
	for _, bad := range []*detecdsa.Signature{
		{R: big.NewInt(0), S: sig.S},
		{R: n, S: sig.S},
		{R: sig.R, S: big.NewInt(0)},
		{R: sig.R, S: n},
	} {
		check(Malformed, !c.engine.Verify(msg, bad, pub, curve), "out-of-range signature accepted: "+bad.String())
	}

	for _, other := range c.all {
		if other.Name() == curve.Name() {
			continue
		}
		check(CrossCurve, !c.engine.Verify(msg, sig, pub, other), "signature accepted on "+other.Name())
	}

	parsed, err := detecdsa.ParseDERSignature(curve, sig.Serialize())
	check(Encoding, err == nil && sig.Equal(parsed), "DER round trip failed")
	fixed, err := sig.SerializeFixed(curve)
	if err == nil {
		parsed, err = detecdsa.ParseFixedSignature(curve, fixed)
	}
	check(Encoding, err == nil && sig.Equal(parsed), "fixed-width round trip failed")
	encoded, err := detecdsa.MarshalPublicKey(curve, pub)
	var decoded *detecdsa.PublicKey
	if err == nil {
		decoded, err = detecdsa.ParsePublicKey(curve, encoded)
	}
	check(Encoding, err == nil && decoded.Equal(pub), "public key round trip failed")

	return failures
}

// lockedReader serializes reads so workers can share one key source.
type lockedReader struct {
	mu sync.Mutex
	r  io.Reader
}

func (l *lockedReader) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Read(p)
}
