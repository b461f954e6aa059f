package jsonx

import "testing"

type params struct {
	Pin  int    `json:"pin"`
	Name string `json:"name"`
}

func TestDecodeShapes(t *testing.T) {
	want := params{Pin: 15, Name: "dht0"}
	for _, in := range []any{
		want,
		&want,
		[]byte(`{"pin":15,"name":"dht0"}`),
		`{"pin":15,"name":"dht0"}`,
		map[string]any{"pin": 15, "name": "dht0"},
	} {
		var got params
		if err := Decode(in, &got); err != nil {
			t.Fatalf("%T: %v", in, err)
		}
		if got != want {
			t.Fatalf("%T: got %+v", in, got)
		}
	}
}

func TestDecodeNilKeepsDst(t *testing.T) {
	got := params{Pin: 4}
	if err := Decode(nil, &got); err != nil || got.Pin != 4 {
		t.Fatalf("got %+v err=%v", got, err)
	}
}

func TestDecodeBadJSON(t *testing.T) {
	var got params
	if err := Decode(`{"pin":`, &got); err == nil {
		t.Fatal("expected error")
	}
	if err := Decode(func() {}, &got); err == nil {
		t.Fatal("expected marshal error")
	}
}
