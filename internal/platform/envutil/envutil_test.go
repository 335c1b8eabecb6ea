package envutil

import (
	"testing"
	"time"
)

func TestDuration(t *testing.T) {
	t.Setenv("OGDASH_TEST_DURATION", "30")
	if got := Duration("OGDASH_TEST_DURATION", time.Second); got != 30*time.Second {
		t.Fatalf("bare seconds: want=30s got=%v", got)
	}
	t.Setenv("OGDASH_TEST_DURATION", "1m30s")
	if got := Duration("OGDASH_TEST_DURATION", time.Second); got != 90*time.Second {
		t.Fatalf("go syntax: want=1m30s got=%v", got)
	}
	t.Setenv("OGDASH_TEST_DURATION", "soon")
	if got := Duration("OGDASH_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("garbage: want default got=%v", got)
	}
}

func TestBoolAndFloat(t *testing.T) {
	t.Setenv("OGDASH_TEST_BOOL", "Yes")
	if !Bool("OGDASH_TEST_BOOL", false) {
		t.Fatalf("Bool yes: want=true")
	}
	t.Setenv("OGDASH_TEST_BOOL", "maybe")
	if !Bool("OGDASH_TEST_BOOL", true) {
		t.Fatalf("Bool garbage: want default")
	}
	t.Setenv("OGDASH_TEST_FLOAT", "0.25")
	if got := Float("OGDASH_TEST_FLOAT", 1); got != 0.25 {
		t.Fatalf("Float: want=0.25 got=%v", got)
	}
}
