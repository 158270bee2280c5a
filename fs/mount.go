package fs

import "sync"

/// Mount_t describes one mounted filesystem instance.
type Mount_t struct {
	Root      *Vnode_t
	Fstype    string
	MountedOn *Vnode_t // the covered vnode in the parent filesystem; nil for the root mount
}

/// Mountlist_t is the system-wide list of active mounts. Namei does not
/// walk it: mount crossings follow Vnode_t.MountedHere and
/// Mount_t.MountedOn.
type Mountlist_t struct {
	sync.RWMutex
	mounts []*Mount_t
}

/// Mountlist is the global mount table.
var Mountlist = &Mountlist_t{}

/// Add registers a new mount.
func (ml *Mountlist_t) Add(m *Mount_t) {
	ml.Lock()
	defer ml.Unlock()
	ml.mounts = append(ml.mounts, m)
}

/// Remove unregisters a mount previously added with Add.
func (ml *Mountlist_t) Remove(m *Mount_t) {
	ml.Lock()
	defer ml.Unlock()
	for i, cur := range ml.mounts {
		if cur == m {
			ml.mounts = append(ml.mounts[:i], ml.mounts[i+1:]...)
			return
		}
	}
}

/// All returns a snapshot of the currently mounted filesystems.
func (ml *Mountlist_t) All() []*Mount_t {
	ml.RLock()
	defer ml.RUnlock()
	out := make([]*Mount_t, len(ml.mounts))
	copy(out, ml.mounts)
	return out
}
