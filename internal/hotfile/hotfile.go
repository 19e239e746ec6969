// Package hotfile implements a write-back cache over a random-access file:
// a sparse dirty map, merge-on-write, atomic-per-range sync, and range-set
// reads that prefer dirty bytes over disk.
package hotfile

import (
	"io"
	"os"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/glidewire/hotmesh/internal/nlog"
	"github.com/glidewire/hotmesh/internal/stats"
	"github.com/glidewire/hotmesh/internal/xrange"
)

// buf is the dirty map's byte holder. Go's GC makes manual refcounting
// unnecessary; this wrapper exists so dirtyEntry compares by identity
// (pointer equality) in removeSnapshotted rather than by slice contents.
type buf struct {
	b []byte
}

func newBuf(b []byte) *buf { return &buf{b: b} }

// dirtyEntry is one (Range, buf) pair held in the dirty map.
type dirtyEntry struct {
	rng Range
	buf *buf
}

// Range is a local alias kept for readability in this package's public
// surface; it is exactly xrange.Range.
type Range = xrange.Range

// HotFile layers a dirty-range map over a random-access file; Write and
// Sync keep that map in canonical form (ascending, non-overlapping,
// non-adjacent) and keep logicalLength/onDiskLength consistent with it.
type HotFile struct {
	file *os.File

	dirtyMu sync.Mutex
	dirty   []dirtyEntry // ascending, non-overlapping, non-adjacent

	diskMu sync.Mutex

	logicalLength atomic.Uint64
	onDiskLength  atomic.Uint64 // best-effort cache; authoritative source is Stat under diskMu

	stats *stats.Registry
}

// Open wraps an already-opened random-access file handle. The caller owns
// naming/creation; HotFile only reads its current size to seed
// logicalLength/onDiskLength.
func Open(f *os.File, reg *stats.Registry) (*HotFile, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	hf := &HotFile{file: f, stats: reg, dirty: make([]dirtyEntry, 0, 8)}
	hf.logicalLength.Store(uint64(fi.Size()))
	hf.onDiskLength.Store(uint64(fi.Size()))
	return hf, nil
}

// LogicalLength returns the atomically-tracked logical length.
func (hf *HotFile) LogicalLength() uint64 { return hf.logicalLength.Load() }

// Write buffers data at offset without touching disk.
func (hf *HotFile) Write(data []byte, offset uint64) {
	if len(data) == 0 {
		return
	}
	w := Range{Start: offset, End: offset + uint64(len(data))}

	hf.dirtyMu.Lock()
	defer hf.dirtyMu.Unlock()

	// Collect entries overlapping or touching w. dirty is sorted by Start
	// so this is a contiguous sub-slice; touching means Rng.End == w.Start
	// or Rng.Start == w.End, which the Search predicates below fold in by
	// using w.Start/w.End as inclusive touchpoints (same left/right scan
	// as MultiRange.Add).
	left := sort.Search(len(hf.dirty), func(i int) bool { return hf.dirty[i].rng.End >= w.Start })
	right := sort.Search(len(hf.dirty), func(i int) bool { return hf.dirty[i].rng.Start > w.End })

	mStart, mEnd := w.Start, w.End
	for i := left; i < right; i++ {
		mStart = minU(mStart, hf.dirty[i].rng.Start)
		mEnd = maxU(mEnd, hf.dirty[i].rng.End)
	}
	merged := make([]byte, mEnd-mStart)
	for i := left; i < right; i++ {
		e := hf.dirty[i]
		copy(merged[e.rng.Start-mStart:], e.buf.b)
	}
	// incoming write wins any overlap: copied last, on top
	copy(merged[offset-mStart:], data)

	newEntry := dirtyEntry{rng: Range{Start: mStart, End: mEnd}, buf: newBuf(merged)}
	hf.dirty = append(hf.dirty[:left], append([]dirtyEntry{newEntry}, hf.dirty[right:]...)...)

	if mEnd > hf.logicalLength.Load() {
		hf.logicalLength.Store(mEnd)
	}
	if hf.stats != nil {
		hf.stats.WriteBytes.Add(float64(len(data)))
		hf.stats.DirtyBytes.Set(float64(hf.dirtySize()))
		hf.stats.DirtyRanges.Set(float64(len(hf.dirty)))
	}
}

// dirtySize must be called with dirtyMu held.
func (hf *HotFile) dirtySize() int {
	n := 0
	for _, e := range hf.dirty {
		n += len(e.buf.b)
	}
	return n
}

// Sync drains the dirty map to disk. On I/O error the snapshotted entries
// are left in the dirty map for the next Sync to retry.
func (hf *HotFile) Sync() error {
	var done func()
	if hf.stats != nil {
		done = stats.Timer(hf.stats.SyncDuration)
		defer done()
	}

	hf.dirtyMu.Lock()
	snapshot := make([]dirtyEntry, len(hf.dirty))
	copy(snapshot, hf.dirty)
	targetLen := hf.logicalLength.Load()
	hf.dirtyMu.Unlock()

	hf.diskMu.Lock()
	err := hf.flush(snapshot, targetLen)
	hf.diskMu.Unlock()

	if err != nil {
		if hf.stats != nil {
			hf.stats.SyncErrors.Inc()
		}
		return err
	}

	hf.dirtyMu.Lock()
	hf.removeSnapshotted(snapshot)
	if hf.stats != nil {
		hf.stats.DirtyBytes.Set(float64(hf.dirtySize()))
		hf.stats.DirtyRanges.Set(float64(len(hf.dirty)))
	}
	hf.dirtyMu.Unlock()
	return nil
}

// flush stats/extends the file, writes every snapshotted range, and
// fsyncs, all under diskMu.
func (hf *HotFile) flush(snapshot []dirtyEntry, targetLen uint64) error {
	fi, err := hf.file.Stat()
	if err != nil {
		return newIOErr("stat", err)
	}
	if uint64(fi.Size()) < targetLen {
		if err := hf.file.Truncate(int64(targetLen)); err != nil {
			return newIOErr("extend", err)
		}
	}
	for _, e := range snapshot {
		if _, err := hf.file.WriteAt(e.buf.b, int64(e.rng.Start)); err != nil {
			return newIOErr(e.rng.String(), err)
		}
	}
	if err := hf.file.Sync(); err != nil {
		return newIOErr("fsync", err)
	}
	hf.onDiskLength.Store(maxU(uint64(fi.Size()), targetLen))
	return nil
}

// removeSnapshotted deletes exactly the snapshotted keys (not whatever is
// currently in the map for that position) so concurrent writes that
// re-populated a range during the flush survive. Must be called with
// dirtyMu held.
func (hf *HotFile) removeSnapshotted(snapshot []dirtyEntry) {
	if len(snapshot) == 0 {
		return
	}
	keep := hf.dirty[:0]
	for _, cur := range hf.dirty {
		removed := false
		for _, s := range snapshot {
			if s.rng == cur.rng && s.buf == cur.buf {
				removed = true
				break
			}
		}
		if !removed {
			keep = append(keep, cur)
		}
	}
	hf.dirty = keep
}

// Piece is one contiguous slice of an answered read: no boundary
// guarantees across pieces, only that their concatenation equals the
// requested mask.
type Piece struct {
	Rng  Range
	Data []byte
}

// Read answers mask in ascending order, preferring dirty bytes over disk
// wherever both exist.
func (hf *HotFile) Read(mask *xrange.MultiRange) ([]Piece, error) {
	var out []Piece
	for _, s := range mask.Ranges() {
		pieces, err := hf.readOne(s)
		if err != nil {
			return nil, err
		}
		out = append(out, pieces...)
	}
	if hf.stats != nil {
		var n int
		for _, p := range out {
			n += len(p.Data)
		}
		hf.stats.ReadBytes.Add(float64(n))
	}
	return out, nil
}

func (hf *HotFile) readOne(s Range) ([]Piece, error) {
	hf.dirtyMu.Lock()
	var dirtyPieces []Piece
	dirtyMask := xrange.New()
	for _, e := range hf.dirty {
		ov, ok := xrange.Intersect(e.rng, s)
		if !ok {
			continue
		}
		data := e.buf.b[ov.Start-e.rng.Start : ov.End-e.rng.Start]
		dirtyPieces = append(dirtyPieces, Piece{Rng: ov, Data: data})
		dirtyMask.Add(ov)
	}
	logicalLen := hf.logicalLength.Load()
	hf.dirtyMu.Unlock()

	if s.End > logicalLen {
		return nil, newOutOfFile(s.String())
	}

	diskMask := xrange.FromRange(s).Subtract(dirtyMask)
	diskPieces, err := hf.readDisk(diskMask.Ranges())
	if err != nil {
		return nil, err
	}

	all := append(dirtyPieces, diskPieces...)
	sort.Slice(all, func(i, j int) bool { return all[i].Rng.Less(all[j].Rng) })
	return all, nil
}

// readDisk issues the disk reads for diskMask concurrently. Each range
// reads up to min(End, on-disk length); any tail beyond that is returned
// as zeros.
func (hf *HotFile) readDisk(ranges []Range) ([]Piece, error) {
	if len(ranges) == 0 {
		return nil, nil
	}
	pieces := make([]Piece, len(ranges))
	errs := make([]error, len(ranges))

	var wg sync.WaitGroup
	for i, r := range ranges {
		wg.Add(1)
		go func(i int, r Range) {
			defer wg.Done()
			pieces[i], errs[i] = hf.readDiskOne(r)
		}(i, r)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return pieces, nil
}

func (hf *HotFile) readDiskOne(r Range) (Piece, error) {
	onDisk := hf.onDiskLength.Load()
	data := make([]byte, r.Len())
	if r.Start >= onDisk {
		return Piece{Rng: r, Data: data}, nil // entirely past on-disk length: all zeros
	}
	readEnd := minU(r.End, onDisk)
	n, err := hf.file.ReadAt(data[:readEnd-r.Start], int64(r.Start))
	if err != nil && err != io.EOF {
		return Piece{}, newIOErr(r.String(), err)
	}
	if uint64(n) < readEnd-r.Start {
		nlog.Warningf("hotfile: short read at %s: got %d want %d", r, n, readEnd-r.Start)
	}
	return Piece{Rng: r, Data: data}, nil
}

// Hash streams chunks through xxhash (standing in for XXH3-64; see
// DESIGN.md) to fingerprint a set of ranges for verification.
func Hash(chunks [][]byte) uint64 {
	d := xxhash.New()
	for _, c := range chunks {
		d.Write(c)
	}
	return d.Sum64()
}

func minU(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}

func maxU(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}
