package hotfile_test

import (
	"os"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/glidewire/hotmesh/internal/hotfile"
	"github.com/glidewire/hotmesh/internal/xrange"
)

// openTemp creates a backing file seeded with contents. The caller must
// invoke the returned cleanup func itself (ginkgo v1 has no DeferCleanup).
func openTemp(contents string) (*hotfile.HotFile, func()) {
	f, err := os.CreateTemp("", "hotfile-*.bin")
	Expect(err).NotTo(HaveOccurred())

	if contents != "" {
		_, err := f.WriteString(contents)
		Expect(err).NotTo(HaveOccurred())
	}

	hf, err := hotfile.Open(f, nil)
	Expect(err).NotTo(HaveOccurred())

	cleanup := func() {
		f.Close()
		os.Remove(f.Name())
	}
	return hf, cleanup
}

func maskOf(ranges ...xrange.Range) *xrange.MultiRange {
	m := xrange.New()
	for _, r := range ranges {
		m.Add(r)
	}
	return m
}

func concat(pieces []hotfile.Piece) string {
	var out []byte
	for _, p := range pieces {
		out = append(out, p.Data...)
	}
	return string(out)
}

var _ = Describe("HotFile", func() {
	It("reads the dirty-over-disk mix described by the reference scenario", func() {
		hf, cleanup := openTemp("ABCDEFGHIJKL")
		defer cleanup()

		hf.Write([]byte("1234"), 2)
		hf.Write([]byte("zz"), 9)

		pieces, err := hf.Read(maskOf(mustRange(0, 12)))
		Expect(err).NotTo(HaveOccurred())
		Expect(concat(pieces)).To(Equal("AB1234GHIzzL"))
	})

	It("buffers writes without touching disk until Sync", func() {
		f, err := os.CreateTemp("", "hotfile-*.bin")
		Expect(err).NotTo(HaveOccurred())
		defer func() {
			f.Close()
			os.Remove(f.Name())
		}()

		hf, err := hotfile.Open(f, nil)
		Expect(err).NotTo(HaveOccurred())

		hf.Write([]byte("payload"), 0)

		onDisk := make([]byte, 7)
		n, _ := f.ReadAt(onDisk, 0)
		Expect(n).To(Equal(0))

		Expect(hf.Sync()).To(Succeed())

		n, err = f.ReadAt(onDisk, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(onDisk[:n])).To(Equal("payload"))
	})

	It("extends the file on Sync when a write grows the logical length", func() {
		hf, cleanup := openTemp("")
		defer cleanup()

		hf.Write([]byte("grown"), 10)
		Expect(hf.LogicalLength()).To(BeEquivalentTo(15))

		Expect(hf.Sync()).To(Succeed())

		pieces, err := hf.Read(maskOf(mustRange(0, 15)))
		Expect(err).NotTo(HaveOccurred())
		Expect(concat(pieces)).To(Equal(string(make([]byte, 10)) + "grown"))
	})

	It("merges overlapping and touching writes into one dirty entry", func() {
		hf, cleanup := openTemp("")
		defer cleanup()

		hf.Write([]byte("AAAA"), 0)
		hf.Write([]byte("BBBB"), 4)
		hf.Write([]byte("CC"), 2)

		pieces, err := hf.Read(maskOf(mustRange(0, 8)))
		Expect(err).NotTo(HaveOccurred())
		Expect(concat(pieces)).To(Equal("AACCBBBB"))
	})

	It("rejects reads past the logical length", func() {
		hf, cleanup := openTemp("short")
		defer cleanup()

		_, err := hf.Read(maskOf(mustRange(0, 100)))
		Expect(err).To(HaveOccurred())

		var herr *hotfile.Error
		Expect(err).To(BeAssignableToTypeOf(herr))
	})

	It("hashes identical byte sequences identically", func() {
		h1 := hotfile.Hash([][]byte{[]byte("abc"), []byte("def")})
		h2 := hotfile.Hash([][]byte{[]byte("abcdef")})
		Expect(h1).To(Equal(h2))

		h3 := hotfile.Hash([][]byte{[]byte("abcdeg")})
		Expect(h3).NotTo(Equal(h1))
	})
})

func mustRange(start, end uint64) xrange.Range {
	r, err := xrange.New(start, end)
	Expect(err).NotTo(HaveOccurred())
	return r
}
