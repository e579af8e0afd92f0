package bloom

import (
	"fmt"
	"sync"
	"testing"
)

func TestSize_CommonCases(t *testing.T) {
	// n=1, p=1% → m≈10, k≈7
	m, k := size(1, 0.01)
	if m < 10 || k != 7 {
		t.Fatalf("n=1,p=0.01: got m=%d k=%d; want m>=10 k=7", m, k)
	}

	// n=1e6, p=1% → m≈9.585e6 bits, k≈7
	m, k = size(1_000_000, 0.01)
	if m < 9_500_000 || m > 9_700_000 {
		t.Fatalf("n=1e6,p=0.01: unexpected m=%d (expected around 9.6e6)", m)
	}
	if k != 7 {
		t.Fatalf("n=1e6,p=0.01: k=%d; want 7", k)
	}

	// p=0.5 → k rounds to 1
	if _, k = size(10_000, 0.5); k != 1 {
		t.Fatalf("p=0.5: k=%d; want 1", k)
	}
}

func TestSize_ClampingAndDefaults(t *testing.T) {
	if m, k := size(0, 0); m == 0 || k == 0 {
		t.Fatalf("n=0,p=0: expected m>=1 and k>=1; got m=%d k=%d", m, k)
	}
	m1, k1 := size(100, 1.0)
	m2, k2 := size(100, 0.01)
	if m1 != m2 || k1 != k2 {
		t.Fatalf("p>=1 should default to 1%%: got (%d,%d) want (%d,%d)", m1, k1, m2, k2)
	}
}

func TestFactory_AddAndTest(t *testing.T) {
	bf := NewFactory().New(128, 0.01)
	key := []byte("10.0.0.1")

	if bf.MightContain(key) {
		t.Fatalf("unexpected positive before add")
	}
	bf.Add(key)
	if !bf.MightContain(key) {
		t.Fatalf("expected maybe after add")
	}
}

func TestFactory_ZeroCapacity(t *testing.T) {
	bf := NewFactory().New(0, 0)
	key := []byte("evil.com")
	bf.Add(key)
	if !bf.MightContain(key) {
		t.Fatalf("expected maybe after add with default-sized bloom")
	}
}

func TestFilter_ConcurrentAddsThenParallelReads(t *testing.T) {
	f := NewFactory().New(256, 0.01)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 64; i++ {
				f.Add([]byte(fmt.Sprintf("w%d-%d", w, i)))
			}
		}(w)
	}
	wg.Wait()

	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := 0; w < 4; w++ {
				for i := 0; i < 64; i++ {
					if !f.MightContain([]byte(fmt.Sprintf("w%d-%d", w, i))) {
						t.Errorf("false negative for w%d-%d", w, i)
						return
					}
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkBloom_Negative(b *testing.B) {
	const n = 1000
	bf := NewFactory().New(n, 0.01)
	for i := 0; i < n; i++ {
		bf.Add([]byte(fmt.Sprintf("10.0.%d.%d", i/256, i%256)))
	}
	key := []byte("192.168.1.1")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bf.MightContain(key)
	}
}
