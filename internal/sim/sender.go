package sim

// Sender builds outgoing frames for one sender identity.
type Sender struct {
	mode      Mode
	key       string
	macLength int
	counter   int64
}

// NewSender creates a sender with a zeroed counter.
func NewSender(mode Mode, key string, macLength int) *Sender {
	return &Sender{mode: mode, key: key, macLength: macLength}
}

// NextFrame builds the next frame for command. nonce is only used, and then
// required, in challenge mode.
func (s *Sender) NextFrame(command, nonce string) (Frame, error) {
	switch s.mode {
	case ModeNoDefense:
		return Frame{Command: command}, nil

	case ModeChallenge:
		if nonce == "" {
			return Frame{}, ErrMissingNonce
		}
		mac, err := ComputeMAC(nonce, command, s.key, s.macLength)
		if err != nil {
			return Frame{}, err
		}
		n := nonce
		return Frame{Command: command, Nonce: &n, MAC: &mac}, nil

	case ModeRollingMAC, ModeWindow:
		s.counter++
		counter := s.counter
		mac, err := ComputeMAC(CounterToken(counter), command, s.key, s.macLength)
		if err != nil {
			return Frame{}, err
		}
		return Frame{Command: command, Counter: &counter, MAC: &mac}, nil
	}
	return Frame{}, ErrUnknownMode
}

// Counter returns the last counter value emitted.
func (s *Sender) Counter() int64 {
	return s.counter
}

// Reset zeroes the counter so the next frame carries 1 again.
func (s *Sender) Reset() {
	s.counter = 0
}
