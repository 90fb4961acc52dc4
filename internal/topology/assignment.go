package topology

import (
	"fmt"
	"time"
)

// AssignmentName names the measurement topology.
const AssignmentName = "assignment"

// Assignment builds the measurement topology: five hosts, each behind its
// own switch, and a star of shaped links from s1 to the other switches.
//
//	h1 - s1 -+- 10Mbit 40ms - s2 - h2
//	         +- 20Mbit 30ms - s3 - h3
//	         +- 30Mbit 20ms - s4 - h4
//	         +- 40Mbit 10ms - s5 - h5
func Assignment() *Topology {
	t := NewTopology(AssignmentName)

	for i := 1; i <= 5; i++ {
		must(t.AddHost(fmt.Sprintf("h%d", i)))
	}
	for i := 1; i <= 5; i++ {
		must(t.AddSwitch(fmt.Sprintf("s%d", i)))
	}
	for i := 1; i <= 5; i++ {
		must(t.AddLink(fmt.Sprintf("h%d", i), fmt.Sprintf("s%d", i)))
	}

	must(t.AddLink("s1", "s2", WithBandwidth(10), WithDelay(40*time.Millisecond)))
	must(t.AddLink("s1", "s3", WithBandwidth(20), WithDelay(30*time.Millisecond)))
	must(t.AddLink("s1", "s4", WithBandwidth(30), WithDelay(20*time.Millisecond)))
	must(t.AddLink("s1", "s5", WithBandwidth(40), WithDelay(10*time.Millisecond)))

	return t
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}
