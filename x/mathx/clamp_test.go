package mathx

import (
	"testing"
	"time"
)

func TestClamp(t *testing.T) {
	if Clamp(5, 1, 10) != 5 || Clamp(-1, 1, 10) != 1 || Clamp(11, 1, 10) != 10 {
		t.Fatal("int clamp")
	}
	if Clamp(0, 10, 1) != 1 {
		t.Fatal("swapped bounds")
	}
	if Clamp(100*time.Millisecond, time.Second, time.Hour) != time.Second {
		t.Fatal("duration clamp")
	}
}
