package sim

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Delivery is one frame handed to the receiver, with its verdict.
type Delivery struct {
	Step    int     `json:"step"`
	Frame   Frame   `json:"frame"`
	Verdict Verdict `json:"verdict"`
}

// SimulateOneRun executes one full session: legitimate traffic, replays and
// the channel in between. The run is seeded from cfg.Seed, or from the clock
// when no seed is set; the seed used is reported in the result.
func SimulateOneRun(cfg SimulationConfig) (RunResult, error) {
	return SimulateOneRunObserved(cfg, nil)
}

// SimulateOneRunObserved is SimulateOneRun with a hook called for every
// frame the receiver processes, in delivery order.
func SimulateOneRunObserved(cfg SimulationConfig, observe func(Delivery)) (RunResult, error) {
	seed := timeSeed()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	res, err := simulate(cfg, NewRand(seed), observe)
	res.Seed = seed
	return res, err
}

// run holds the fresh protocol entities of one session.
type run struct {
	cfg      SimulationConfig
	rng      RandomSource
	sender   *Sender
	receiver *Receiver
	attacker *Attacker
	channel  *Channel
	observe  func(Delivery)

	result RunResult
	step   int
}

func simulate(cfg SimulationConfig, rng RandomSource, observe func(Delivery)) (RunResult, error) {
	receiver, err := NewReceiver(cfg.Mode, cfg.SharedKey, cfg.MACLength, cfg.WindowSize)
	if err != nil {
		return RunResult{Mode: cfg.Mode}, err
	}
	r := &run{
		cfg:      cfg,
		rng:      rng,
		sender:   NewSender(cfg.Mode, cfg.SharedKey, cfg.MACLength),
		receiver: receiver,
		attacker: NewAttacker(cfg.AttackerRecordLoss, cfg.TargetCommands),
		channel:  NewChannel(cfg.PLoss, cfg.PReorder, rng),
		observe:  observe,
		result: RunResult{
			Mode:           cfg.Mode,
			LegitVerdicts:  make(map[Reason]int),
			AttackVerdicts: make(map[Reason]int),
		},
	}
	return r.execute()
}

func (r *run) execute() (RunResult, error) {
	commands := r.cfg.commands()
	budget := r.cfg.NumReplay
	if budget < 0 {
		budget = 0
	}
	burst := r.cfg.InlineAttackBurst
	if burst < 1 {
		burst = 1
	}

	for i := 0; i < r.cfg.NumLegit; i++ {
		if err := r.sendLegit(commands[i%len(commands)]); err != nil {
			return r.result, err
		}
		if r.cfg.AttackTiming != AttackInline || budget == 0 {
			continue
		}
		if draw(r.cfg.InlineAttackProbability, r.rng) {
			budget -= r.replay(min(burst, budget))
		}
	}

	// Post timing spends the whole budget here; inline spends what is left.
	r.replay(budget)

	r.deliver(r.channel.Flush())
	r.result.ChannelDropped = r.channel.Stats().Dropped
	return r.result, nil
}

func (r *run) sendLegit(command string) error {
	var nonce string
	if r.cfg.Mode == ModeChallenge {
		// The legitimate sender learns the nonce over an authenticated side channel.
		n, err := r.receiver.IssueNonce(r.rng, r.cfg.nonceBits())
		if err != nil {
			return err
		}
		nonce = n
	}

	frame, err := r.sender.NextFrame(command, nonce)
	if err != nil {
		return err
	}
	r.result.LegitSent++
	r.attacker.Observe(frame, r.rng)
	r.deliver(r.channel.Send(frame))
	return nil
}

// replay injects up to n recorded frames and returns how many were sent.
func (r *run) replay(n int) int {
	for i := 0; i < n; i++ {
		frame, ok := r.attacker.PickFrame(r.rng)
		if !ok {
			return i
		}
		frame.IsAttack = true
		r.result.AttackAttempts++
		r.deliver(r.channel.Send(frame))
	}
	return n
}

func (r *run) deliver(frames []Frame) {
	for _, f := range frames {
		v := r.receiver.Process(f)
		if f.IsAttack {
			r.result.AttackVerdicts[v.Reason]++
			if v.Accepted {
				r.result.AttackAccepted++
			}
		} else {
			r.result.LegitVerdicts[v.Reason]++
			if v.Accepted {
				r.result.LegitAccepted++
			}
		}
		r.step++
		if r.observe != nil {
			r.observe(Delivery{Step: r.step, Frame: f, Verdict: v})
		}
	}
}

// ExperimentOptions tunes RunManyExperiments.
type ExperimentOptions struct {
	// Seed overrides the base config seed. Without either, runs are seeded
	// from the clock and are not reproducible.
	Seed *int64
	// Workers bounds parallel runs; <= 0 uses GOMAXPROCS.
	Workers int
	// Progress is called after each finished run. Calls are serialized.
	Progress func(done, total int)
	// Observe receives every finished run. Calls are serialized but arrive in
	// completion order.
	Observe func(RunResult)
}

// RunManyExperiments runs every mode runs times and aggregates each mode.
// Run r of every mode is seeded with base seed + r, and results are
// aggregated by run index, so the output never depends on scheduling.
// Cancelling ctx stops new runs from starting.
func RunManyExperiments(ctx context.Context, base SimulationConfig, modes []Mode, runs int, opts ExperimentOptions) ([]AggregateStats, error) {
	if runs < 0 {
		return nil, fmt.Errorf("runs must be >= 0, got %d", runs)
	}

	baseSeed := timeSeed()
	switch {
	case opts.Seed != nil:
		baseSeed = *opts.Seed
	case base.Seed != nil:
		baseSeed = *base.Seed
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]RunResult, len(modes))
	for i := range results {
		results[i] = make([]RunResult, runs)
	}

	var (
		mu    sync.Mutex
		done  int
		total = len(modes) * runs
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

schedule:
	for mi, mode := range modes {
		cfg := base.WithMode(mode)
		for ri := 0; ri < runs; ri++ {
			if gctx.Err() != nil {
				break schedule
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				seed := RunSeed(baseSeed, ri)
				res, err := simulate(cfg, NewRand(seed), nil)
				if err != nil {
					return fmt.Errorf("mode %s run %d: %w", mode, ri, err)
				}
				res.RunIndex = ri
				res.Seed = seed
				results[mi][ri] = res

				mu.Lock()
				defer mu.Unlock()
				done++
				if opts.Observe != nil {
					opts.Observe(res)
				}
				if opts.Progress != nil {
					opts.Progress(done, total)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := make([]AggregateStats, len(modes))
	for mi, mode := range modes {
		stats[mi] = Aggregate(mode, results[mi])
	}
	return stats, nil
}
