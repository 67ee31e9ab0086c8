package sim

import "testing"

func TestAttackerRecordsEverythingWithoutLoss(t *testing.T) {
	a := NewAttacker(0, nil)
	rng := NewRand(1)
	for i := 0; i < 25; i++ {
		a.Observe(labeled(i), rng)
	}
	if a.Recorded() != 25 {
		t.Fatalf("recorded %d, want 25", a.Recorded())
	}
}

func TestAttackerTotalRecordLoss(t *testing.T) {
	a := NewAttacker(1, nil)
	rng := NewRand(1)
	for i := 0; i < 25; i++ {
		a.Observe(labeled(i), rng)
	}
	if a.Recorded() != 0 {
		t.Fatalf("recorded %d, want 0", a.Recorded())
	}
	if _, ok := a.PickFrame(rng); ok {
		t.Fatalf("PickFrame succeeded with nothing recorded")
	}
}

func TestAttackerPartialRecordLoss(t *testing.T) {
	a := NewAttacker(0.5, nil)
	rng := NewRand(9)
	for i := 0; i < 1000; i++ {
		a.Observe(labeled(i), rng)
	}
	if n := a.Recorded(); n < 400 || n > 600 {
		t.Fatalf("recorded %d of 1000 at 50%% loss", n)
	}
}

func TestAttackerTargetCommands(t *testing.T) {
	a := NewAttacker(0, []string{"UNLOCK"})
	rng := NewRand(2)
	for _, cmd := range []string{"LOCK", "UNLOCK", "STATUS", "UNLOCK"} {
		a.Observe(Frame{Command: cmd}, rng)
	}
	for i := 0; i < 50; i++ {
		f, ok := a.PickFrame(rng)
		if !ok {
			t.Fatalf("PickFrame found nothing")
		}
		if f.Command != "UNLOCK" {
			t.Fatalf("picked %q outside the target set", f.Command)
		}
	}
}

func TestAttackerTargetCommandsNoMatch(t *testing.T) {
	a := NewAttacker(0, []string{"OPEN"})
	rng := NewRand(2)
	a.Observe(Frame{Command: "LOCK"}, rng)
	if _, ok := a.PickFrame(rng); ok {
		t.Fatalf("PickFrame returned a frame outside the target set")
	}
}

func TestAttackerPickReturnsCopy(t *testing.T) {
	a := NewAttacker(0, nil)
	rng := NewRand(3)
	a.Observe(labeled(5), rng)

	f, _ := a.PickFrame(rng)
	*f.Counter = 1000
	f.IsAttack = true

	g, _ := a.PickFrame(rng)
	if *g.Counter != 5 || g.IsAttack {
		t.Fatalf("mutating a picked frame changed the recording: %+v", g)
	}
}

func TestAttackerObserveStoresCopy(t *testing.T) {
	a := NewAttacker(0, nil)
	rng := NewRand(3)
	f := labeled(5)
	a.Observe(f, rng)
	*f.Counter = 6

	g, _ := a.PickFrame(rng)
	if *g.Counter != 5 {
		t.Fatalf("recording aliases the observed frame")
	}
}

func TestAttackerClear(t *testing.T) {
	a := NewAttacker(0, nil)
	rng := NewRand(4)
	a.Observe(labeled(1), rng)
	a.Clear()
	if a.Recorded() != 0 {
		t.Fatalf("Clear left %d recordings", a.Recorded())
	}
}
