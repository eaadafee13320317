package envutil

import (
	"testing"
	"time"
)

func TestIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_INT", "abc")
	if got := Int("ENVUTIL_TEST_INT", 7, nil); got != 7 {
		t.Fatalf("Int: want=7 got=%d", got)
	}
	t.Setenv("ENVUTIL_TEST_INT", " 12 ")
	if got := Int("ENVUTIL_TEST_INT", 7, nil); got != 12 {
		t.Fatalf("Int: want=12 got=%d", got)
	}
}

func TestDurationAcceptsBothForms(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_DUR", "30")
	if got := Duration("ENVUTIL_TEST_DUR", time.Second, time.Second, nil); got != 30*time.Second {
		t.Fatalf("Duration int: got=%s", got)
	}
	t.Setenv("ENVUTIL_TEST_DUR", "250ms")
	if got := Duration("ENVUTIL_TEST_DUR", time.Second, time.Second, nil); got != 250*time.Millisecond {
		t.Fatalf("Duration string: got=%s", got)
	}
}

func TestBoolAndStringDefaults(t *testing.T) {
	t.Setenv("ENVUTIL_TEST_BOOL", "off")
	if Bool("ENVUTIL_TEST_BOOL", true, nil) {
		t.Fatalf("Bool: want=false")
	}
	t.Setenv("ENVUTIL_TEST_STR", "")
	if got := String("ENVUTIL_TEST_STR", "dflt", nil); got != "dflt" {
		t.Fatalf("String: want=dflt got=%q", got)
	}
}

func TestSecretReturnsValue(t *testing.T) {
	t.Setenv("LR_TEST_SECRET", " sk-abc ")
	if got := Secret("LR_TEST_SECRET", nil); got != "sk-abc" {
		t.Fatalf("Secret: got=%q", got)
	}
}
