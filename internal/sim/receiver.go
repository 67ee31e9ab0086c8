package sim

import "fmt"

// Reason explains a verification outcome.
type Reason string

const (
	ReasonNoDefenseAccept        Reason = "no_defense_accept"
	ReasonMissingSecurityFields  Reason = "missing_security_fields"
	ReasonMACMismatch            Reason = "mac_mismatch"
	ReasonCounterReplay          Reason = "counter_replay"
	ReasonRollingAccept          Reason = "rolling_accept"
	ReasonWindowAcceptInitial    Reason = "window_accept_initial"
	ReasonWindowAccept           Reason = "window_accept"
	ReasonCounterOutOfWindow     Reason = "counter_out_of_window"
	ReasonMissingChallengeFields Reason = "missing_challenge_fields"
	ReasonNoOutstandingChallenge Reason = "no_outstanding_challenge"
	ReasonChallengeMismatch      Reason = "challenge_mismatch"
	ReasonChallengeAccept        Reason = "challenge_accept"
)

// Verdict is the result of processing one frame. Rejections are ordinary
// outcomes, not errors.
type Verdict struct {
	Accepted bool   `json:"accepted"`
	Reason   Reason `json:"reason"`
}

func accept(r Reason) Verdict { return Verdict{Accepted: true, Reason: r} }
func reject(r Reason) Verdict { return Verdict{Accepted: false, Reason: r} }

type macParams struct {
	key    string
	length int
}

// validMAC recomputes the MAC over token and compares in constant time.
func (p macParams) validMAC(token, command string, got *string) bool {
	expected, err := ComputeMAC(token, command, p.key, p.length)
	if err != nil {
		return false
	}
	return ConstantTimeCompare(&expected, got)
}

// verifier is implemented once per defense mode.
type verifier interface {
	verify(frame Frame, state *ReceiverState) Verdict
}

type noDefenseVerifier struct{}

func (noDefenseVerifier) verify(Frame, *ReceiverState) Verdict {
	return accept(ReasonNoDefenseAccept)
}

type rollingVerifier struct {
	mac macParams
}

func (v rollingVerifier) verify(frame Frame, state *ReceiverState) Verdict {
	if frame.Counter == nil || frame.MAC == nil {
		return reject(ReasonMissingSecurityFields)
	}
	counter := *frame.Counter
	if !v.mac.validMAC(CounterToken(counter), frame.Command, frame.MAC) {
		return reject(ReasonMACMismatch)
	}
	if counter <= state.LastCounter {
		return reject(ReasonCounterReplay)
	}
	state.LastCounter = counter
	return accept(ReasonRollingAccept)
}

type windowVerifier struct {
	mac  macParams
	size int64
}

func (v windowVerifier) verify(frame Frame, state *ReceiverState) Verdict {
	if frame.Counter == nil || frame.MAC == nil {
		return reject(ReasonMissingSecurityFields)
	}
	counter := *frame.Counter
	if !v.mac.validMAC(CounterToken(counter), frame.Command, frame.MAC) {
		return reject(ReasonMACMismatch)
	}
	if state.LastCounter < 0 {
		state.LastCounter = counter
		return accept(ReasonWindowAcceptInitial)
	}
	if counter <= state.LastCounter {
		return reject(ReasonCounterReplay)
	}
	if counter > state.LastCounter+v.size {
		return reject(ReasonCounterOutOfWindow)
	}
	state.LastCounter = counter
	return accept(ReasonWindowAccept)
}

type challengeVerifier struct {
	mac macParams
}

func (v challengeVerifier) verify(frame Frame, state *ReceiverState) Verdict {
	if frame.Nonce == nil || frame.MAC == nil {
		return reject(ReasonMissingChallengeFields)
	}
	if state.ExpectedNonce == nil {
		return reject(ReasonNoOutstandingChallenge)
	}
	if *frame.Nonce != *state.ExpectedNonce {
		return reject(ReasonChallengeMismatch)
	}
	if !v.mac.validMAC(*frame.Nonce, frame.Command, frame.MAC) {
		return reject(ReasonMACMismatch)
	}
	state.ExpectedNonce = nil
	return accept(ReasonChallengeAccept)
}

// Receiver verifies incoming frames under one defense mode.
type Receiver struct {
	mode     Mode
	verifier verifier
	state    ReceiverState
}

// NewReceiver selects the verification strategy for mode. windowSize is only
// checked, and must be >= 1, in window mode.
func NewReceiver(mode Mode, key string, macLength, windowSize int) (*Receiver, error) {
	params := macParams{key: key, length: macLength}

	var v verifier
	switch mode {
	case ModeNoDefense:
		v = noDefenseVerifier{}
	case ModeRollingMAC:
		v = rollingVerifier{mac: params}
	case ModeWindow:
		if windowSize < 1 {
			return nil, ErrInvalidWindow
		}
		v = windowVerifier{mac: params, size: int64(windowSize)}
	case ModeChallenge:
		v = challengeVerifier{mac: params}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	return &Receiver{mode: mode, verifier: v, state: newReceiverState()}, nil
}

// Process verifies frame and updates the receiver state on acceptance.
func (r *Receiver) Process(frame Frame) Verdict {
	return r.verifier.verify(frame, &r.state)
}

// IssueNonce draws a fresh challenge of bits random bits, stores it as the
// outstanding nonce and returns it as fixed-width hex.
func (r *Receiver) IssueNonce(rng RandomSource, bits int) (string, error) {
	if r.mode != ModeChallenge {
		return "", ErrNonceOutsideChallenge
	}
	if bits < 1 || bits > 64 {
		return "", ErrInvalidNonceBits
	}

	value := rng.Uint64()
	if bits < 64 {
		value &= (uint64(1) << uint(bits)) - 1
	}
	nonce := fmt.Sprintf("%0*x", (bits+3)/4, value)
	r.state.ExpectedNonce = &nonce
	return nonce, nil
}

// Mode returns the configured defense mode.
func (r *Receiver) Mode() Mode {
	return r.mode
}

// State returns a copy of the current state.
func (r *Receiver) State() ReceiverState {
	s := r.state
	if s.ExpectedNonce != nil {
		n := *s.ExpectedNonce
		s.ExpectedNonce = &n
	}
	return s
}

// Reset restores the initial state.
func (r *Receiver) Reset() {
	r.state = newReceiverState()
}
