package fs

import (
	"hyra/defs"
	"hyra/ustr"
)

/// Namei resolves path to a vnode, starting from root for an absolute
/// path or from cwd for a relative one. Each component lookup is
/// dispatched through the current directory's Ops.Lookup; crossing into
/// a mounted filesystem (via Effective) and crossing back out of one
/// (".." from a mount's root) are both handled here, independent of the
/// backing filesystem.
func Namei(path ustr.Ustr, root, cwd *Vnode_t) (*Vnode_t, defs.Err_t) {
	comps, ok := path.Components()
	if !ok {
		return nil, defs.ENAMETOOLONG
	}
	var cur *Vnode_t
	if path.IsAbsolute() || cwd == nil {
		cur = root
	} else {
		cur = cwd
	}
	cur = cur.Effective()

	for _, c := range comps {
		if cur.Type != VDIR {
			return nil, defs.ENOTDIR
		}
		if c.Isdotdot() && cur.Mount != nil && cur.Mount.Root == cur && cur.Mount.MountedOn != nil {
			cur = cur.Mount.MountedOn
		}
		next, err := cur.Ops.Lookup(cur, c)
		if err != 0 {
			return nil, err
		}
		cur = next.Effective()
	}
	return cur, 0
}

/// NameiParent resolves path down to its final component's parent
/// directory, returning that directory and the final component name
/// unresolved — used by create/mkdir/unlink, which need the containing
/// directory rather than the target itself.
func NameiParent(path ustr.Ustr, root, cwd *Vnode_t) (*Vnode_t, ustr.Ustr, defs.Err_t) {
	comps, ok := path.Components()
	if !ok || len(comps) == 0 {
		return nil, nil, defs.ENOENT
	}
	last := comps[len(comps)-1]
	var cur *Vnode_t
	if path.IsAbsolute() || cwd == nil {
		cur = root
	} else {
		cur = cwd
	}
	cur = cur.Effective()
	for _, c := range comps[:len(comps)-1] {
		if cur.Type != VDIR {
			return nil, nil, defs.ENOTDIR
		}
		if c.Isdotdot() && cur.Mount != nil && cur.Mount.Root == cur && cur.Mount.MountedOn != nil {
			cur = cur.Mount.MountedOn
		}
		next, err := cur.Ops.Lookup(cur, c)
		if err != 0 {
			return nil, nil, err
		}
		cur = next.Effective()
	}
	if cur.Type != VDIR {
		return nil, nil, defs.ENOTDIR
	}
	return cur, last, 0
}
