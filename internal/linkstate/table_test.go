package linkstate_test

import (
	"net/netip"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/glidewire/hotmesh/internal/linkstate"
	"github.com/glidewire/hotmesh/internal/netaddr"
	"github.com/glidewire/hotmesh/internal/wire"
)

func mustWAN(ip string, port uint16) netaddr.Endpoint {
	addr, err := netip.ParseAddr(ip)
	Expect(err).NotTo(HaveOccurred())
	scoped, err := netaddr.NewWAN(addr)
	Expect(err).NotTo(HaveOccurred())
	return netaddr.Endpoint{Addr: scoped, Port: port}
}

var local = mustWAN("2001:db8::1", 9000)

var _ = Describe("Table", func() {
	var scheduler *linkstate.ResumeScheduler
	var table *linkstate.Table

	BeforeEach(func() {
		scheduler = linkstate.NewResumeScheduler()
		table = linkstate.New(scheduler, nil)
	})

	AfterEach(func() {
		scheduler.Close()
	})

	It("reports BondNotFound for a host with no recorded path", func() {
		_, err := table.Assign("unknown-host")
		Expect(err).To(HaveOccurred())

		var lerr *linkstate.Error
		Expect(err).To(BeAssignableToTypeOf(lerr))
		Expect(err.(*linkstate.Error).Kind).To(Equal(linkstate.BondNotFound))
	})

	It("assigns the sole recorded path for a freshly discovered host", func() {
		remote := mustWAN("2001:db8::2", 9000)
		table.Update("host-a", local, remote, 10)

		assigned, err := table.Assign("host-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(assigned.Local).To(Equal(local))
		Expect(assigned.Remote).To(Equal(remote))
	})

	It("does not duplicate a path already recorded for the same endpoints", func() {
		remote := mustWAN("2001:db8::2", 9000)
		table.Update("host-a", local, remote, 10)
		table.Update("host-a", local, remote, 99)

		assigned, err := table.Assign("host-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(assigned.Remote).To(Equal(remote))
	})

	It("escalates a failing link through back-off and finally evicts it", func() {
		remote := mustWAN("2001:db8::2", 9000)
		table.Update("host-a", local, remote, 100)

		assigned, err := table.Assign("host-a")
		Expect(err).NotTo(HaveOccurred())

		// failure_count -> 1, recovery scheduled, link stays in the bond.
		Expect(assigned.Solve()).To(Succeed())
		// failure_count -> 2.
		Expect(assigned.Solve()).To(Succeed())
		// failure_count -> 3.
		Expect(assigned.Solve()).To(Succeed())
		// failure_count -> 4: evict the link, and the now-empty bond.
		Expect(assigned.Solve()).To(Succeed())

		_, err = table.Assign("host-a")
		Expect(err).To(HaveOccurred())
		Expect(err.(*linkstate.Error).Kind).To(Equal(linkstate.BondNotFound))
	})

	It("reports LinkRefInvalid when Solve is called again after eviction", func() {
		remote := mustWAN("2001:db8::2", 9000)
		table.Update("host-a", local, remote, 100)

		assigned, _ := table.Assign("host-a")
		for i := 0; i < 4; i++ {
			Expect(assigned.Solve()).To(Succeed())
		}

		err := assigned.Solve()
		Expect(err).To(HaveOccurred())
		Expect(err.(*linkstate.Error).Kind).To(Equal(linkstate.LinkRefInvalid))
	})

	It("assigns a path recorded after the host's previous link was evicted", func() {
		remoteA := mustWAN("2001:db8::2", 9000)
		remoteB := mustWAN("2001:db8::3", 9000)
		table.Update("host-a", local, remoteA, 10)

		assignedA, err := table.Assign("host-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(assignedA.Remote).To(Equal(remoteA))
		for i := 0; i < 4; i++ {
			Expect(assignedA.Solve()).To(Succeed())
		}

		// Only after remoteA is fully evicted do we add remoteB, so host-a
		// must resolve exclusively to it.
		table.Update("host-a", local, remoteB, 10)

		assignedB, err := table.Assign("host-a")
		Expect(err).NotTo(HaveOccurred())
		Expect(assignedB.Remote).To(Equal(remoteB))
	})

	It("favors the lower-metric link under repeated weighted selection", func() {
		cheap := mustWAN("2001:db8::2", 9000)
		costly := mustWAN("2001:db8::3", 9000)
		table.Update("host-a", local, cheap, 1)
		table.Update("host-a", local, costly, 999)

		var cheapCount int
		const draws = 500
		for i := 0; i < draws; i++ {
			assigned, err := table.Assign("host-a")
			Expect(err).NotTo(HaveOccurred())
			if assigned.Remote == cheap {
				cheapCount++
			}
		}

		// The cheap link's weight dwarfs the costly one's, so it should
		// dominate the draws without needing an exact ratio check.
		Expect(cheapCount).To(BeNumerically(">", draws/2))
	})
})
