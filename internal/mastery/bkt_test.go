package mastery

import (
	"math"
	"testing"
)

func TestUpdate_FirstCorrectFromPrior(t *testing.T) {
	got := Update(0.1, true, DefaultParams())
	if math.Abs(got-0.5) > 1e-9 {
		t.Errorf("Update(0.1, correct) = %f, want 0.5", got)
	}
}

func TestUpdate_FirstIncorrectFromPrior(t *testing.T) {
	// posterior = 0.01 / (0.01 + 0.675) ≈ 0.0146; final = 0.0146 + 0.9854*0.3
	got := Update(0.1, false, DefaultParams())
	want := 0.01/0.685 + (1-0.01/0.685)*0.3
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Update(0.1, incorrect) = %f, want %f", got, want)
	}
}

func TestUpdate_Bounded(t *testing.T) {
	params := DefaultParams()
	for _, p := range []float64{MinMastery, 0.1, 0.25, 0.5, 0.75, 0.9, MaxMastery} {
		for _, correct := range []bool{true, false} {
			got := Update(p, correct, params)
			if got < MinMastery || got > MaxMastery {
				t.Errorf("Update(%f, %v) = %f, outside [%f, %f]", p, correct, got, MinMastery, MaxMastery)
			}
		}
	}
}

func TestUpdate_CorrectNeverLowersMastery(t *testing.T) {
	params := DefaultParams()
	for p := MinMastery; p <= MaxMastery; p += 0.01 {
		if got := Update(p, true, params); got < p-1e-12 {
			t.Errorf("Update(%f, correct) = %f, lowered mastery", p, got)
		}
	}
}

func TestUpdate_CorrectBeatsIncorrect(t *testing.T) {
	params := DefaultParams()
	for p := MinMastery; p <= MaxMastery; p += 0.05 {
		up, down := Update(p, true, params), Update(p, false, params)
		if up < down {
			t.Errorf("p=%f: correct=%f < incorrect=%f", p, up, down)
		}
	}
}

func TestUpdate_ConvergesToCeiling(t *testing.T) {
	p := DefaultParams().PInit
	for i := 0; i < 50; i++ {
		p = Update(p, true, DefaultParams())
	}
	if p != MaxMastery {
		t.Errorf("after 50 correct answers mastery = %f, want %f", p, MaxMastery)
	}
}

func TestUpdate_Deterministic(t *testing.T) {
	params := DefaultParams()
	seq := []bool{true, false, true, true, false, true}
	run := func() float64 {
		p := params.PInit
		for _, c := range seq {
			p = Update(p, c, params)
		}
		return p
	}
	if a, b := run(), run(); a != b {
		t.Errorf("same sequence produced %f and %f", a, b)
	}
}

// With the default parameters a wrong answer still carries a 0.3 learning
// transition, so an all-incorrect run settles at the fixed point of
// p = post(p) + (1-post(p))*0.3, which solves 0.65p² - 0.875p + 0.225 = 0.
const incorrectFixedPoint = 9.0 / 26

func TestUpdate_AllIncorrectSettlesAtFixedPoint(t *testing.T) {
	params := DefaultParams()

	t.Run("from prior", func(t *testing.T) {
		p := params.PInit
		for i := 0; i < 60; i++ {
			next := Update(p, false, params)
			if next <= MinMastery {
				t.Fatalf("step %d: mastery %f reached the floor", i, next)
			}
			if next < p-1e-12 || next > incorrectFixedPoint+1e-9 {
				t.Fatalf("step %d: %f -> %f, want a rise bounded by %f", i, p, next, incorrectFixedPoint)
			}
			p = next
		}
		if math.Abs(p-incorrectFixedPoint) > 1e-6 {
			t.Errorf("after 60 incorrect answers mastery = %f, want %f", p, incorrectFixedPoint)
		}
	})

	t.Run("from above", func(t *testing.T) {
		p := MaxMastery
		for i := 0; i < 60; i++ {
			next := Update(p, false, params)
			if next > p+1e-12 {
				t.Fatalf("step %d: %f -> %f, mastery rose on a wrong answer", i, p, next)
			}
			if next < incorrectFixedPoint-1e-9 {
				t.Fatalf("step %d: %f fell below %f", i, next, incorrectFixedPoint)
			}
			p = next
		}
		if math.Abs(p-incorrectFixedPoint) > 1e-6 {
			t.Errorf("after 60 incorrect answers mastery = %f, want %f", p, incorrectFixedPoint)
		}
	})
}
