package broadcast

import (
	"testing"
	"time"
)

func readyFragment(t *testing.T, now time.Time) *Fragment {
	t.Helper()
	f := newFragment()
	f.SetAttr("tick", "100")
	f.SetAttr("endtick", "200")
	f.SetBlob(FieldFull, Blob{Data: []byte{1, 2}, RawLen: 4, Compressed: true})
	f.SetBlob(FieldDelta, Blob{Data: []byte{3}, RawLen: 2, Compressed: true})
	f.MarkReceived(now)
	return f
}

func TestParseScalarCoercion(t *testing.T) {
	cases := []struct {
		in    string
		num   int64
		isNum bool
	}{
		{"64", 64, true},
		{"-3", -3, true},
		{"0", 0, true},
		{"1.5", 0, false},
		{"064", 0, false},
		{"64abc", 0, false},
		{"de_dust2", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		s := ParseScalar(c.in)
		if s.IsNum != c.isNum {
			t.Fatalf("ParseScalar(%q): isNum=%v want %v", c.in, s.IsNum, c.isNum)
		}
		if s.IsNum && s.Num != c.num {
			t.Fatalf("ParseScalar(%q): num=%d want %d", c.in, s.Num, c.num)
		}
		if !s.IsNum && s.Text != c.in {
			t.Fatalf("ParseScalar(%q): text=%q", c.in, s.Text)
		}
	}
}

func TestSyncReadyRequiresAllFields(t *testing.T) {
	now := time.Now()
	f := newFragment()
	if f.SyncReady(now) {
		t.Fatalf("empty fragment must not be ready")
	}
	f.SetBlob(FieldFull, Blob{Data: []byte{1}})
	f.SetBlob(FieldDelta, Blob{Data: []byte{2}})
	f.SetAttr("tick", "10")
	f.SetAttr("endtick", "20")
	if f.SyncReady(now) {
		t.Fatalf("fragment without timestamp must not be ready")
	}
	f.MarkReceived(now)
	if !f.SyncReady(now) {
		t.Fatalf("fragment with all fields set must be ready")
	}
}

func TestSyncReadyMonotonic(t *testing.T) {
	now := time.Now()
	f := readyFragment(t, now)
	if !f.SyncReady(now) {
		t.Fatalf("not ready")
	}
	// later writes never retract readiness
	f.SetAttr("tick", "101")
	f.SetBlob(FieldFull, Blob{Data: []byte{9}})
	if !f.SyncReady(now.Add(time.Minute)) {
		t.Fatalf("readiness must be monotonic")
	}
}

func TestDelayGate(t *testing.T) {
	base := time.Now()
	f := readyFragment(t, base)
	f.SetCDNDelay(5000 * time.Millisecond)
	if f.SyncReady(base.Add(4999 * time.Millisecond)) {
		t.Fatalf("must not be ready before delay elapses")
	}
	if f.DelayElapsed(base.Add(4 * time.Second)) {
		t.Fatalf("delay gate must hold before the deadline")
	}
	if !f.SyncReady(base.Add(5 * time.Second)) {
		t.Fatalf("must become ready at the deadline")
	}
}

func TestDelayWithoutTimestampNeverServes(t *testing.T) {
	f := newFragment()
	f.SetBlob(FieldFull, Blob{Data: []byte{1}})
	f.SetCDNDelay(time.Millisecond)
	if f.DelayElapsed(time.Now().Add(time.Hour)) {
		t.Fatalf("delayed fragment without timestamp must never pass the gate")
	}
}

func TestCDNDelayOverwriteNeverCleared(t *testing.T) {
	f := newFragment()
	f.SetCDNDelay(3 * time.Second)
	f.SetCDNDelay(time.Second)
	if got := f.CDNDelay(); got != time.Second {
		t.Fatalf("last delay must win, got %v", got)
	}
	f.SetCDNDelay(0)
	if got := f.CDNDelay(); got != time.Second {
		t.Fatalf("delay must never be cleared, got %v", got)
	}
}

func TestSetAttrReservedTimestamp(t *testing.T) {
	f := newFragment()
	f.SetAttr("timestamp", "12345")
	if !f.Received().IsZero() {
		t.Fatalf("attribute must not assign the receive timestamp")
	}
	if _, ok := f.Scalar("timestamp"); ok {
		t.Fatalf("reserved name must not land in extras")
	}
}

func TestDescribe(t *testing.T) {
	now := time.Now()
	f := newFragment()
	f.SetAttr("tick", "100")
	f.SetAttr("tps", "64")
	f.SetAttr("map", "de_dust2")
	f.SetBlob(FieldFull, Blob{Data: []byte("xxxxxxxxxxxxxxxxxxxxx"), RawLen: 1, Compressed: true})
	f.SetBlob("meta", Blob{Data: []byte("raw")})
	f.MarkReceived(now)

	d := f.Describe()
	if d["tick"] != 100 || d["tps"] != 64 {
		t.Fatalf("numeric fields must pass through: %v", d)
	}
	if _, ok := d["map"]; ok {
		t.Fatalf("text scalars must be omitted: %v", d)
	}
	if d[FieldFull] != 1 {
		t.Fatalf("compressed blob must report original length, got %d", d[FieldFull])
	}
	if d["full_ungzlen"] != 1 {
		t.Fatalf("ungzlen marker missing: %v", d)
	}
	if d["meta"] != 3 {
		t.Fatalf("raw blob must report stored length, got %d", d["meta"])
	}
	if d["timestamp"] != now.UnixMilli() {
		t.Fatalf("timestamp mismatch")
	}
}
