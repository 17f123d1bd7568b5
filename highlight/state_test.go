package highlight

import "testing"

func TestStateRoundTrip(t *testing.T) {
	depths := []int{0, 1, 2, 255, 4096, MaxRegionDepth}
	states := []ObservableState{Default, WillContinue, Continued, PersistentsStart, 100, MaxObservable}
	for _, d := range depths {
		for _, o := range states {
			in := BlockState{RegionDepth: d, Observable: o}
			if got := DecodeState(in.Encode()); got != in {
				t.Fatalf("DecodeState(Encode(%v)) = %v", in, got)
			}
		}
	}
}

func TestStateLayout(t *testing.T) {
	if got := (BlockState{}).Encode(); got != 0 {
		t.Errorf("zero state = %d, want 0", got)
	}
	if got, want := (BlockState{RegionDepth: 1, Observable: PersistentsStart}).Encode(), 1<<12|3; got != want {
		t.Errorf("Encode(depth 1, first persistent) = %#x, want %#x", got, want)
	}
	if ObservableMask != 0xFFF {
		t.Errorf("ObservableMask = %#x, want 0xfff", ObservableMask)
	}

	top := BlockState{RegionDepth: MaxRegionDepth, Observable: MaxObservable}.Encode()
	if top <= 0 || top > 1<<31-1 {
		t.Errorf("largest state = %d, want a positive int32", top)
	}
}

func TestStateClamps(t *testing.T) {
	tests := []struct {
		in   BlockState
		want BlockState
	}{
		{BlockState{RegionDepth: MaxRegionDepth + 10, Observable: -4}, BlockState{RegionDepth: MaxRegionDepth}},
		{BlockState{RegionDepth: -1, Observable: MaxObservable + 1}, BlockState{Observable: MaxObservable}},
	}
	for _, tt := range tests {
		if got := DecodeState(tt.in.Encode()); got != tt.want {
			t.Errorf("DecodeState(Encode(%+v)) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestObservableString(t *testing.T) {
	if got := WillContinue.String(); got != "WillContinue" {
		t.Errorf("WillContinue.String() = %q", got)
	}
	if got := ObservableState(7).String(); got != "Persistent(7)" {
		t.Errorf("ObservableState(7).String() = %q", got)
	}
	if !(BlockState{Observable: 3}).Persistent() {
		t.Error("observable 3 should be persistent")
	}
	if (BlockState{Observable: Continued}).Persistent() {
		t.Error("Continued should not be persistent")
	}
}

func TestIndentationColumn(t *testing.T) {
	ts := TabSettings{TabSize: 4, IndentSize: 2}
	tests := []struct {
		text string
		want int
	}{
		{"x", 0},
		{"  x", 2},
		{"\tx", 4},
		{"  \tx", 4},
		{"\t  x", 6},
		{"　x", 2},
		{"    ", 4},
	}
	for _, tt := range tests {
		if got := ts.IndentationColumn(tt.text); got != tt.want {
			t.Errorf("IndentationColumn(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
	if got := ts.IndentLevel(6); got != 3 {
		t.Errorf("IndentLevel(6) = %d, want 3", got)
	}
}
