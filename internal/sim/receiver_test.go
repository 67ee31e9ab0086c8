package sim

import (
	"errors"
	"testing"
)

const testKey = "test-key"

func newTestReceiver(t *testing.T, mode Mode, window int) *Receiver {
	t.Helper()
	r, err := NewReceiver(mode, testKey, 8, window)
	if err != nil {
		t.Fatalf("NewReceiver(%s): %v", mode, err)
	}
	return r
}

// counterFrame builds a correctly authenticated counter frame.
func counterFrame(t *testing.T, counter int64, command string) Frame {
	t.Helper()
	mac, err := ComputeMAC(CounterToken(counter), command, testKey, 8)
	if err != nil {
		t.Fatalf("ComputeMAC: %v", err)
	}
	return Frame{Command: command, Counter: &counter, MAC: &mac}
}

func TestNoDefenseAcceptsEverything(t *testing.T) {
	r := newTestReceiver(t, ModeNoDefense, 0)
	frames := []Frame{{Command: "FWD"}, {Command: "FWD"}, counterFrame(t, 1, "X"), {Command: ""}}
	for i, f := range frames {
		v := r.Process(f)
		if !v.Accepted || v.Reason != ReasonNoDefenseAccept {
			t.Fatalf("frame %d: %+v", i, v)
		}
	}
}

func TestRollingReceiver(t *testing.T) {
	r := newTestReceiver(t, ModeRollingMAC, 0)
	bad := "deadbeef"
	c := int64(1)

	steps := []struct {
		name  string
		frame Frame
		want  Verdict
	}{
		{"first", counterFrame(t, 1, "FWD"), accept(ReasonRollingAccept)},
		{"replay", counterFrame(t, 1, "FWD"), reject(ReasonCounterReplay)},
		{"gap is fine", counterFrame(t, 9, "FWD"), accept(ReasonRollingAccept)},
		{"older", counterFrame(t, 4, "FWD"), reject(ReasonCounterReplay)},
		{"tampered", Frame{Command: "FWD", Counter: &c, MAC: &bad}, reject(ReasonMACMismatch)},
		{"missing mac", Frame{Command: "FWD", Counter: &c}, reject(ReasonMissingSecurityFields)},
		{"missing counter", Frame{Command: "FWD", MAC: &bad}, reject(ReasonMissingSecurityFields)},
		{"next", counterFrame(t, 10, "STOP"), accept(ReasonRollingAccept)},
	}
	for _, step := range steps {
		if got := r.Process(step.frame); got != step.want {
			t.Fatalf("%s: got %+v, want %+v", step.name, got, step.want)
		}
	}
	if r.State().LastCounter != 10 {
		t.Fatalf("last counter = %d", r.State().LastCounter)
	}
}

func TestRollingMACCheckedBeforeCounter(t *testing.T) {
	r := newTestReceiver(t, ModeRollingMAC, 0)
	r.Process(counterFrame(t, 5, "FWD"))

	// Stale counter with a bad MAC reports the MAC failure.
	f := counterFrame(t, 2, "FWD")
	f.Command = "BACK"
	if got := r.Process(f); got.Reason != ReasonMACMismatch {
		t.Fatalf("got %s, want mac_mismatch", got.Reason)
	}
}

func TestRollingRejectionLeavesStateAlone(t *testing.T) {
	r := newTestReceiver(t, ModeRollingMAC, 0)
	r.Process(counterFrame(t, 3, "FWD"))
	before := r.State()

	r.Process(counterFrame(t, 2, "FWD"))
	f := counterFrame(t, 50, "FWD")
	f.Command = "LEFT"
	r.Process(f)

	if r.State() != before {
		t.Fatalf("rejected frames changed state: %+v -> %+v", before, r.State())
	}
}

func TestWindowReceiver(t *testing.T) {
	r := newTestReceiver(t, ModeWindow, 5)

	steps := []struct {
		counter int64
		want    Verdict
	}{
		{7, accept(ReasonWindowAcceptInitial)},
		{8, accept(ReasonWindowAccept)},
		{8, reject(ReasonCounterReplay)},
		{7, reject(ReasonCounterReplay)},
		{13, accept(ReasonWindowAccept)},
		{19, reject(ReasonCounterOutOfWindow)},
		{18, accept(ReasonWindowAccept)},
	}
	for i, step := range steps {
		if got := r.Process(counterFrame(t, step.counter, "FWD")); got != step.want {
			t.Fatalf("step %d (counter %d): got %+v, want %+v", i, step.counter, got, step.want)
		}
	}
}

func TestWindowInitialAcceptsAnyCounter(t *testing.T) {
	r := newTestReceiver(t, ModeWindow, 1)
	if got := r.Process(counterFrame(t, 1000, "FWD")); got.Reason != ReasonWindowAcceptInitial {
		t.Fatalf("got %+v", got)
	}
	if got := r.Process(counterFrame(t, 1001, "FWD")); got.Reason != ReasonWindowAccept {
		t.Fatalf("got %+v", got)
	}
	if got := r.Process(counterFrame(t, 1003, "FWD")); got.Reason != ReasonCounterOutOfWindow {
		t.Fatalf("got %+v", got)
	}
}

func TestWindowMissingFieldsAndMAC(t *testing.T) {
	r := newTestReceiver(t, ModeWindow, 5)
	if got := r.Process(Frame{Command: "FWD"}); got.Reason != ReasonMissingSecurityFields {
		t.Fatalf("got %+v", got)
	}

	c := int64(1)
	mac, _ := ComputeMAC(CounterToken(c), "FWD", "wrong-key", 8)
	if got := r.Process(Frame{Command: "FWD", Counter: &c, MAC: &mac}); got.Reason != ReasonMACMismatch {
		t.Fatalf("got %+v", got)
	}
	if r.State().LastCounter != -1 {
		t.Fatalf("rejected frame initialized state")
	}
}

func TestWindowToleratesSmallReorder(t *testing.T) {
	r := newTestReceiver(t, ModeWindow, 5)
	accepted := 0
	for _, c := range []int64{1, 3, 2, 4, 5} {
		if r.Process(counterFrame(t, c, "FWD")).Accepted {
			accepted++
		}
	}
	// 2 arrives after 3 and is treated as stale.
	if accepted != 4 {
		t.Fatalf("accepted %d, want 4", accepted)
	}
}

func TestNewReceiverWindowValidation(t *testing.T) {
	for _, w := range []int{0, -1} {
		if _, err := NewReceiver(ModeWindow, testKey, 8, w); !errors.Is(err, ErrInvalidWindow) {
			t.Fatalf("window %d: expected ErrInvalidWindow, got %v", w, err)
		}
	}
	// Window size only matters in window mode.
	for _, mode := range []Mode{ModeNoDefense, ModeRollingMAC, ModeChallenge} {
		if _, err := NewReceiver(mode, testKey, 8, 0); err != nil {
			t.Fatalf("%s with window 0: %v", mode, err)
		}
	}
}

func TestNewReceiverUnknownMode(t *testing.T) {
	_, err := NewReceiver(Mode("sliding"), testKey, 8, 5)
	if !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode, got %v", err)
	}
}

func TestChallengeReceiver(t *testing.T) {
	r := newTestReceiver(t, ModeChallenge, 0)
	s := NewSender(ModeChallenge, testKey, 8)
	rng := NewRand(21)

	early, _ := s.NextFrame("FWD", "abcd1234")
	if got := r.Process(early); got.Reason != ReasonNoOutstandingChallenge {
		t.Fatalf("frame before any challenge: %+v", got)
	}

	nonce, err := r.IssueNonce(rng, 32)
	if err != nil {
		t.Fatalf("IssueNonce: %v", err)
	}
	legit, _ := s.NextFrame("FWD", nonce)
	if got := r.Process(legit); got != accept(ReasonChallengeAccept) {
		t.Fatalf("legit frame: %+v", got)
	}
	if r.State().ExpectedNonce != nil {
		t.Fatalf("nonce still outstanding after acceptance")
	}

	// Replay of the consumed nonce.
	if got := r.Process(legit); got.Reason != ReasonNoOutstandingChallenge {
		t.Fatalf("replay with no challenge: %+v", got)
	}

	// Replay of an old nonce while a new one is outstanding.
	fresh, _ := r.IssueNonce(rng, 32)
	if fresh == nonce {
		t.Fatalf("nonce repeated")
	}
	if got := r.Process(legit); got.Reason != ReasonChallengeMismatch {
		t.Fatalf("stale nonce: %+v", got)
	}
	if r.State().ExpectedNonce == nil || *r.State().ExpectedNonce != fresh {
		t.Fatalf("rejection cleared the outstanding nonce")
	}

	// Right nonce, wrong MAC.
	tampered, _ := s.NextFrame("FWD", fresh)
	tampered.Command = "BACK"
	if got := r.Process(tampered); got.Reason != ReasonMACMismatch {
		t.Fatalf("tampered frame: %+v", got)
	}

	if got := r.Process(Frame{Command: "FWD", Nonce: &fresh}); got.Reason != ReasonMissingChallengeFields {
		t.Fatalf("missing mac: %+v", got)
	}
}

func TestIssueNonceErrors(t *testing.T) {
	rng := NewRand(1)
	for _, mode := range []Mode{ModeNoDefense, ModeRollingMAC, ModeWindow} {
		r := newTestReceiver(t, mode, 5)
		if _, err := r.IssueNonce(rng, 32); !errors.Is(err, ErrNonceOutsideChallenge) {
			t.Fatalf("%s: expected ErrNonceOutsideChallenge, got %v", mode, err)
		}
	}

	r := newTestReceiver(t, ModeChallenge, 0)
	for _, bits := range []int{0, -8, 65} {
		if _, err := r.IssueNonce(rng, bits); !errors.Is(err, ErrInvalidNonceBits) {
			t.Fatalf("bits %d: expected ErrInvalidNonceBits, got %v", bits, err)
		}
	}
}

func TestIssueNonceWidth(t *testing.T) {
	r := newTestReceiver(t, ModeChallenge, 0)
	rng := NewRand(8)

	tests := []struct {
		bits  int
		width int
	}{
		{1, 1},
		{4, 1},
		{5, 2},
		{16, 4},
		{32, 8},
		{64, 16},
	}
	for _, tt := range tests {
		for i := 0; i < 20; i++ {
			n, err := r.IssueNonce(rng, tt.bits)
			if err != nil {
				t.Fatalf("IssueNonce(%d): %v", tt.bits, err)
			}
			if len(n) != tt.width {
				t.Fatalf("bits %d: nonce %q has width %d, want %d", tt.bits, n, len(n), tt.width)
			}
		}
	}
}

func TestReceiverReset(t *testing.T) {
	r := newTestReceiver(t, ModeRollingMAC, 0)
	r.Process(counterFrame(t, 4, "FWD"))
	r.Reset()
	if got := r.Process(counterFrame(t, 1, "FWD")); !got.Accepted {
		t.Fatalf("counter 1 after reset: %+v", got)
	}
}
