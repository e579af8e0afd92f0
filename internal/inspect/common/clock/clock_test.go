package clock

import (
	"sync"
	"testing"
	"time"
)

func TestRealClock_Now(t *testing.T) {
	clock := RealClock{}

	before := time.Now()
	now := clock.Now()
	after := time.Now()

	if now.Before(before) || now.After(after) {
		t.Errorf("clock time %v outside [%v, %v]", now, before, after)
	}
}

func TestMockClock_Now_Consistent(t *testing.T) {
	fixedTime := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &MockClock{CurrentTime: fixedTime}

	first := clock.Now()
	second := clock.Now()

	if !first.Equal(fixedTime) || !second.Equal(fixedTime) {
		t.Errorf("mock clock should stay fixed: first=%v second=%v", first, second)
	}
}

func TestMockClock_Advance(t *testing.T) {
	fixedTime := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &MockClock{CurrentTime: fixedTime}

	clock.Advance(90 * time.Second)

	if got := clock.Now(); !got.Equal(fixedTime.Add(90 * time.Second)) {
		t.Errorf("expected %v, got %v", fixedTime.Add(90*time.Second), got)
	}
}

func TestMockClock_Step(t *testing.T) {
	fixedTime := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	clock := &MockClock{CurrentTime: fixedTime, Step: 1500 * time.Microsecond}

	start := clock.Now()
	end := clock.Now()

	if d := end.Sub(start); d != 1500*time.Microsecond {
		t.Errorf("expected step of 1.5ms, got %v", d)
	}
}

func TestMockClock_ConcurrentNow(t *testing.T) {
	clock := &MockClock{CurrentTime: time.Unix(0, 0), Step: time.Nanosecond}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				_ = clock.Now()
			}
		}()
	}
	wg.Wait()

	if got := clock.Now(); !got.Equal(time.Unix(0, 8000)) {
		t.Errorf("expected 8000 steps, clock at %v", got)
	}
}
