package probe

import (
	"strings"
	"testing"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

func reply(t *testing.T, id, seq int) []byte {
	t.Helper()
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEchoReply,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: []byte("measnet")},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestIsReply(t *testing.T) {
	if !isReply(reply(t, 7, 3), 7, 3) {
		t.Fatal("matching reply rejected")
	}
	if isReply(reply(t, 7, 4), 7, 3) {
		t.Fatal("wrong sequence accepted")
	}
	if isReply(reply(t, 8, 3), 7, 3) {
		t.Fatal("wrong id accepted")
	}

	req, err := echoRequest(7, 3)
	if err != nil {
		t.Fatal(err)
	}
	if isReply(req, 7, 3) {
		t.Fatal("our own request is not a reply")
	}
	if isReply([]byte{0x00}, 7, 3) {
		t.Fatal("garbage accepted")
	}
}

func TestStats(t *testing.T) {
	s := Stats{
		Sent:     4,
		Received: 3,
		RTTs:     []time.Duration{20 * time.Millisecond, 10 * time.Millisecond, 30 * time.Millisecond},
	}
	if s.Loss() != 25 {
		t.Fatalf("want 25%% loss, got %v", s.Loss())
	}
	if s.Min() != 10*time.Millisecond || s.Max() != 30*time.Millisecond || s.Avg() != 20*time.Millisecond {
		t.Fatalf("unexpected min/avg/max %s/%s/%s", s.Min(), s.Avg(), s.Max())
	}
	want := "4 packets transmitted, 3 received, 25% packet loss\nrtt min/avg/max = 10.000/20.000/30.000 ms"
	if got := s.String(); got != want {
		t.Fatalf("unexpected summary:\n%s", got)
	}

	var empty Stats
	if empty.Loss() != 0 || empty.Avg() != 0 || strings.Contains(empty.String(), "rtt") {
		t.Fatalf("empty stats misreported: %s", empty)
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{}.withDefaults()
	if o.Count != 1 || o.Interval != time.Second || o.Timeout != time.Second {
		t.Fatalf("unexpected defaults %+v", o)
	}
	o = Options{Count: 5, Timeout: 100 * time.Millisecond}.withDefaults()
	if o.Count != 5 || o.Timeout != 100*time.Millisecond {
		t.Fatalf("explicit values overwritten: %+v", o)
	}
}
