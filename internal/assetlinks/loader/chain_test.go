package loader

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aspect-build/linktrust/internal/assetlinks"
	"github.com/aspect-build/linktrust/internal/authdomain"
)

// stubLoader returns a fixed result or error and records invocations.
type stubLoader struct {
	targets authdomain.Set
	err     error
	calls   int
}

func (s *stubLoader) Relations(ctx context.Context, relationType string, source authdomain.AuthDomain) (authdomain.Set, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.targets.Clone(), nil
}

func TestChain_FirstSuccessWins(t *testing.T) {
	target := mustDomain(t, "https://target.example.com")
	first := &stubLoader{targets: authdomain.NewSet(target)}
	second := &stubLoader{targets: authdomain.NewSet(mustDomain(t, "https://other.example.com"))}

	chain := NewChain(first, second)
	got, err := chain.Relations(context.Background(), testRelation, mustDomain(t, "https://s.example.com"))
	if err != nil {
		t.Fatalf("Relations: %v", err)
	}
	if !got.Equal(authdomain.NewSet(target)) {
		t.Errorf("Relations = %v", got.Sorted())
	}
	if second.calls != 0 {
		t.Error("second loader called despite first succeeding")
	}
}

func TestChain_FallsThroughOnFetchAndUnsupported(t *testing.T) {
	target := mustDomain(t, "https://target.example.com")
	unsupported := &stubLoader{err: fmt.Errorf("%w: wrong kind", ErrUnsupportedDomain)}
	unreachable := &stubLoader{err: fmt.Errorf("%w: connection refused", ErrFetch)}
	working := &stubLoader{targets: authdomain.NewSet(target)}

	chain := NewChain(unsupported, unreachable, working)
	got, err := chain.Relations(context.Background(), testRelation, mustDomain(t, "https://s.example.com"))
	if err != nil {
		t.Fatalf("Relations: %v", err)
	}
	if !got.Equal(authdomain.NewSet(target)) {
		t.Errorf("Relations = %v", got.Sorted())
	}
}

func TestChain_NeverSwallowsMalformedData(t *testing.T) {
	malformed := &stubLoader{err: fmt.Errorf("%w: bad declaration", assetlinks.ErrMalformedData)}
	fallback := &stubLoader{targets: authdomain.NewSet(mustDomain(t, "https://t.example.com"))}

	chain := NewChain(malformed, fallback)
	_, err := chain.Relations(context.Background(), testRelation, mustDomain(t, "https://s.example.com"))
	if !errors.Is(err, assetlinks.ErrMalformedData) {
		t.Fatalf("err = %v, want ErrMalformedData", err)
	}
	if fallback.calls != 0 {
		t.Error("fallback consulted after a reachable source returned malformed data")
	}
}

func TestChain_NeverSwallowsDomainMismatch(t *testing.T) {
	mismatched := &stubLoader{err: fmt.Errorf("%w: spoofed", ErrDomainMismatch)}
	fallback := &stubLoader{targets: authdomain.NewSet(mustDomain(t, "https://t.example.com"))}

	chain := NewChain(mismatched, fallback)
	_, err := chain.Relations(context.Background(), testRelation, mustDomain(t, "https://s.example.com"))
	if !errors.Is(err, ErrDomainMismatch) {
		t.Fatalf("err = %v, want ErrDomainMismatch", err)
	}
	if fallback.calls != 0 {
		t.Error("fallback consulted after a domain mismatch")
	}
}

func TestChain_AllFail(t *testing.T) {
	fetchErr := fmt.Errorf("%w: down", ErrFetch)
	chain := NewChain(&stubLoader{err: fetchErr}, &stubLoader{err: fetchErr})

	if _, err := chain.Relations(context.Background(), testRelation, mustDomain(t, "https://s.example.com")); !errors.Is(err, ErrFetch) {
		t.Errorf("err = %v, want ErrFetch", err)
	}
}

func TestChain_Empty(t *testing.T) {
	chain := NewChain()
	if _, err := chain.Relations(context.Background(), testRelation, mustDomain(t, "https://s.example.com")); !errors.Is(err, ErrUnsupportedDomain) {
		t.Errorf("err = %v, want ErrUnsupportedDomain", err)
	}
}
