package sim

// Attacker is a passive eavesdropper that can replay what it recorded.
// It never forges counters, MACs or nonces.
type Attacker struct {
	recordLoss float64
	targets    map[string]bool
	recorded   []Frame
}

// NewAttacker creates an attacker that misses each observation with
// probability recordLoss. A non-empty targetCommands restricts replays to
// frames carrying one of those commands.
func NewAttacker(recordLoss float64, targetCommands []string) *Attacker {
	a := &Attacker{recordLoss: recordLoss}
	if len(targetCommands) > 0 {
		a.targets = make(map[string]bool, len(targetCommands))
		for _, cmd := range targetCommands {
			a.targets[cmd] = true
		}
	}
	return a
}

// Observe records a copy of frame unless the observation is lost.
func (a *Attacker) Observe(frame Frame, rng RandomSource) {
	if a.recordLoss > 0 && rng.Float64() < a.recordLoss {
		return
	}
	a.recorded = append(a.recorded, frame.Clone())
}

// PickFrame returns a copy of a uniformly chosen eligible recording.
func (a *Attacker) PickFrame(rng RandomSource) (Frame, bool) {
	if len(a.recorded) == 0 {
		return Frame{}, false
	}
	if a.targets == nil {
		return a.recorded[rng.Intn(len(a.recorded))].Clone(), true
	}

	eligible := make([]int, 0, len(a.recorded))
	for i, f := range a.recorded {
		if a.targets[f.Command] {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return Frame{}, false
	}
	return a.recorded[eligible[rng.Intn(len(eligible))]].Clone(), true
}

// Recorded returns how many frames are stored.
func (a *Attacker) Recorded() int {
	return len(a.recorded)
}

// Clear forgets all recordings.
func (a *Attacker) Clear() {
	a.recorded = nil
}
