package sim

// Core value types for the replay-defense simulation.

// Mode identifies a replay-defense mechanism.
type Mode string

const (
	ModeNoDefense  Mode = "no_def"
	ModeRollingMAC Mode = "rolling"
	ModeWindow     Mode = "window"
	ModeChallenge  Mode = "challenge"
)

// AllModes lists every defense mode in report order.
var AllModes = []Mode{ModeNoDefense, ModeRollingMAC, ModeWindow, ModeChallenge}

// AttackTiming controls where replays are placed relative to legitimate traffic.
type AttackTiming string

const (
	// AttackPostRun appends all replays after the legitimate stream.
	AttackPostRun AttackTiming = "post"
	// AttackInline splices replays into the legitimate stream while it is sent.
	AttackInline AttackTiming = "inline"
)

// DefaultCommands is the toy command set used when no trace is configured.
var DefaultCommands = []string{"FWD", "BACK", "LEFT", "RIGHT", "STOP"}

// Frame is one protocol message as seen on the wire.
// Optional fields are nil when absent.
type Frame struct {
	Command  string  `json:"command"`
	Counter  *int64  `json:"counter,omitempty"`
	MAC      *string `json:"mac,omitempty"`
	Nonce    *string `json:"nonce,omitempty"`
	IsAttack bool    `json:"is_attack"`
}

// Clone returns a copy that shares no memory with f.
func (f Frame) Clone() Frame {
	out := Frame{Command: f.Command, IsAttack: f.IsAttack}
	if f.Counter != nil {
		c := *f.Counter
		out.Counter = &c
	}
	if f.MAC != nil {
		m := *f.MAC
		out.MAC = &m
	}
	if f.Nonce != nil {
		n := *f.Nonce
		out.Nonce = &n
	}
	return out
}

// ReceiverState is the per-connection verification state owned by a Receiver.
type ReceiverState struct {
	// LastCounter is -1 until the first counter is accepted.
	LastCounter   int64
	ExpectedNonce *string
}

func newReceiverState() ReceiverState {
	return ReceiverState{LastCounter: -1}
}

// SimulationConfig describes one experiment. It is treated as an immutable value.
type SimulationConfig struct {
	Mode               Mode
	AttackTiming       AttackTiming
	NumLegit           int
	NumReplay          int
	PLoss              float64
	PReorder           float64
	AttackerRecordLoss float64
	WindowSize         int
	SharedKey          string
	MACLength          int
	NonceBits          int
	Seed               *int64

	// Inline timing only: chance of injecting a burst after each legitimate
	// frame, and the largest burst.
	InlineAttackProbability float64
	InlineAttackBurst       int

	// Commands is cycled to label legitimate frames.
	Commands []string
	// TargetCommands restricts which recorded frames the attacker replays.
	TargetCommands []string
}

// DefaultSimulationConfig returns the stock experiment parameters.
func DefaultSimulationConfig() SimulationConfig {
	return SimulationConfig{
		Mode:                    ModeNoDefense,
		AttackTiming:            AttackPostRun,
		NumLegit:                20,
		NumReplay:               100,
		WindowSize:              5,
		SharedKey:               "iot-shared-key",
		MACLength:               8,
		NonceBits:               32,
		InlineAttackProbability: 0.3,
		InlineAttackBurst:       1,
	}
}

// WithMode returns a copy of c running under mode.
func (c SimulationConfig) WithMode(mode Mode) SimulationConfig {
	c.Mode = mode
	return c
}

// WithSeed returns a copy of c pinned to seed.
func (c SimulationConfig) WithSeed(seed int64) SimulationConfig {
	c.Seed = &seed
	return c
}

func (c SimulationConfig) commands() []string {
	if len(c.Commands) == 0 {
		return DefaultCommands
	}
	return c.Commands
}

func (c SimulationConfig) nonceBits() int {
	if c.NonceBits == 0 {
		return 32
	}
	return c.NonceBits
}

// RunResult holds the tallies of one Monte Carlo run.
type RunResult struct {
	Mode           Mode           `json:"mode"`
	RunIndex       int            `json:"run_index"`
	Seed           int64          `json:"seed"`
	LegitSent      int            `json:"legit_sent"`
	LegitAccepted  int            `json:"legit_accepted"`
	AttackAttempts int            `json:"attack_attempts"`
	AttackAccepted int            `json:"attack_accepted"`
	ChannelDropped int            `json:"channel_dropped"`
	LegitVerdicts  map[Reason]int `json:"legit_verdicts,omitempty"`
	AttackVerdicts map[Reason]int `json:"attack_verdicts,omitempty"`
}

// LegitRate returns accepted/sent, and false when nothing was sent.
func (r RunResult) LegitRate() (float64, bool) {
	if r.LegitSent == 0 {
		return 0, false
	}
	return float64(r.LegitAccepted) / float64(r.LegitSent), true
}

// AttackRate returns accepted/attempted, and false when no replay was attempted.
func (r RunResult) AttackRate() (float64, bool) {
	if r.AttackAttempts == 0 {
		return 0, false
	}
	return float64(r.AttackAccepted) / float64(r.AttackAttempts), true
}

// AggregateStats summarizes many runs of one mode.
type AggregateStats struct {
	Mode          Mode    `json:"mode"`
	Runs          int     `json:"runs"`
	LegitSamples  int     `json:"legit_samples"`
	AttackSamples int     `json:"attack_samples"`
	AvgLegitRate  float64 `json:"avg_legit_rate"`
	StdLegitRate  float64 `json:"std_legit_rate"`
	AvgAttackRate float64 `json:"avg_attack_rate"`
	StdAttackRate float64 `json:"std_attack_rate"`
}

// AsMap flattens the stats into primitive values for API and CLI consumers.
func (s AggregateStats) AsMap() map[string]any {
	return map[string]any{
		"mode":            string(s.Mode),
		"runs":            s.Runs,
		"legit_samples":   s.LegitSamples,
		"attack_samples":  s.AttackSamples,
		"avg_legit_rate":  s.AvgLegitRate,
		"std_legit_rate":  s.StdLegitRate,
		"avg_attack_rate": s.AvgAttackRate,
		"std_attack_rate": s.StdAttackRate,
	}
}
