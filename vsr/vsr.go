// Package vsr implements the virtual system resource namespace: a
// per-process table of domains, each a hashtable of named capsules
// holding a global payload plus a copy-on-write per-process shadow.
package vsr

import (
	"hash/fnv"
	"sync"

	"hyra/defs"
	"hyra/hashtable"
)

// Domain tags. Only VSR_FILE is defined at present, but the namespace
// supports more.
const (
	DomainFile = 0
)

// Access-mode bits governing whether reads/writes touch the capsule's
// global payload or only the process-local shadow.
const (
	ModeGlobWrite = 1 << 0
	ModeGlobRead  = 1 << 1
	ModeGlobCred  = 1 << 2
)

const capsuleBuckets = 32

/// Capsule_t is one named virtual system resource: a global payload
/// plus a lazily created, copy-on-write per-process shadow.
type Capsule_t struct {
	sync.Mutex
	Name      string
	Tag       uint32 // FNV-1 hash of Name, stable identity for ctlfs introspection
	Data      interface{}
	shadow    interface{}
	hasShadow bool
	Mode      uint32
}

/// Read returns the capsule's current value: the global payload if
/// ModeGlobRead is set or no shadow has been created yet, otherwise the
/// process-local shadow.
func (c *Capsule_t) Read() interface{} {
	c.Lock()
	defer c.Unlock()
	if c.Mode&ModeGlobRead != 0 || !c.hasShadow {
		return c.Data
	}
	return c.shadow
}

/// Write stores val, either into the global payload (ModeGlobWrite) or
/// into the process-local shadow, creating it on first write.
func (c *Capsule_t) Write(val interface{}) {
	c.Lock()
	defer c.Unlock()
	if c.Mode&ModeGlobWrite != 0 {
		c.Data = val
		return
	}
	c.shadow = val
	c.hasShadow = true
}

/// Domain_t is a per-process table of capsules for one domain tag,
/// indexed by capsule name through a hashtable.Hashtable_t, which
/// hashes keys with FNV-1a (the FNV-1 value is kept only as Tag).
type Domain_t struct {
	Type     int
	capsules *hashtable.Hashtable_t
}

func newDomain(tag int) *Domain_t {
	return &Domain_t{Type: tag, capsules: hashtable.MkHash(capsuleBuckets)}
}

/// NewCapsule creates and inserts a capsule named name into d.
func (d *Domain_t) NewCapsule(name string) (*Capsule_t, defs.Err_t) {
	if name == "" {
		return nil, defs.EINVAL
	}
	if _, exists := d.capsules.Get(name); exists {
		return nil, defs.EEXIST
	}
	cap := &Capsule_t{Name: name, Tag: fnv1(name)}
	d.capsules.Set(name, cap)
	return cap, 0
}

/// LookupCapsule finds a previously created capsule by name.
func (d *Domain_t) LookupCapsule(name string) (*Capsule_t, defs.Err_t) {
	v, ok := d.capsules.Get(name)
	if !ok {
		return nil, defs.ENOENT
	}
	return v.(*Capsule_t), 0
}

/// Dup duplicates c for a forked child: both the global payload and the
/// per-process shadow are copied by value into a new capsule, so the
/// child's subsequent writes never mutate the parent's. The global
/// payload is not shared after Dup: a ModeGlobWrite write through one
/// capsule changes only that capsule's Data, unless Data holds a
/// pointer that both copies reach.
func (c *Capsule_t) Dup() *Capsule_t {
	c.Lock()
	defer c.Unlock()
	return &Capsule_t{
		Name:      c.Name,
		Tag:       c.Tag,
		Data:      c.Data,
		shadow:    c.shadow,
		hasShadow: c.hasShadow,
		Mode:      c.Mode,
	}
}

/// dup duplicates every capsule in d into a freshly allocated domain.
func (d *Domain_t) dup() *Domain_t {
	nd := newDomain(d.Type)
	for _, pair := range d.capsules.Elems() {
		c := pair.Value.(*Capsule_t)
		nd.capsules.Set(c.Name, c.Dup())
	}
	return nd
}

/// Table_t is a process's full VSR namespace: one domain per tag,
/// created lazily on first use.
type Table_t struct {
	sync.Mutex
	domains map[int]*Domain_t
}

/// InitDomains lazily allocates t's domain map. Safe to call more than
/// once.
func InitDomains(t *Table_t) {
	t.Lock()
	defer t.Unlock()
	if t.domains == nil {
		t.domains = make(map[int]*Domain_t)
	}
}

/// NewDomain creates (or returns the existing) domain for tag.
func (t *Table_t) NewDomain(tag int) *Domain_t {
	t.Lock()
	defer t.Unlock()
	if t.domains == nil {
		t.domains = make(map[int]*Domain_t)
	}
	if d, ok := t.domains[tag]; ok {
		return d
	}
	d := newDomain(tag)
	t.domains[tag] = d
	return d
}

/// NewCapsule allocates a capsule named name under domain tag,
/// creating the domain on demand.
func (t *Table_t) NewCapsule(tag int, name string) (*Capsule_t, defs.Err_t) {
	return t.NewDomain(tag).NewCapsule(name)
}

/// LookupCapsule finds a capsule named name under domain tag.
func (t *Table_t) LookupCapsule(tag int, name string) (*Capsule_t, defs.Err_t) {
	t.Lock()
	d, ok := t.domains[tag]
	t.Unlock()
	if !ok {
		return nil, defs.ENOENT
	}
	return d.LookupCapsule(name)
}

/// Dup duplicates t into dst, cloning every domain and every capsule
/// within it (each capsule's per-process shadow and global payload are
/// copied — see Capsule_t.Dup). Used by fork to give a child
/// its own VSR namespace instead of sharing the parent's.
func (t *Table_t) Dup(dst *Table_t) {
	t.Lock()
	domains := t.domains
	t.Unlock()

	dst.Lock()
	defer dst.Unlock()
	dst.domains = make(map[int]*Domain_t, len(domains))
	for tag, d := range domains {
		dst.domains[tag] = d.dup()
	}
}

// fnv1 is kept for callers that want the raw hash (e.g. debug/ctlfs
// introspection) rather than going through the hashtable directly.
func fnv1(name string) uint32 {
	h := fnv.New32()
	h.Write([]byte(name))
	return h.Sum32()
}
