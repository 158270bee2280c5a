// Package bpath canonicalizes kernel paths: it resolves "." and ".."
// components and collapses repeated slashes into a normal form usable
// directly by namei.
package bpath

import "hyra/ustr"

/// Canonicalize resolves "." and ".." components of an absolute path and
/// collapses duplicate slashes. The result always begins with '/'.
func Canonicalize(p ustr.Ustr) ustr.Ustr {
	comps, ok := p.Components()
	if !ok {
		// too long to canonicalize meaningfully; return as-is and let
		// namei reject it with ENAMETOOLONG.
		return p
	}
	out := make([]ustr.Ustr, 0, len(comps))
	for _, c := range comps {
		switch {
		case c.Isdot():
			continue
		case c.Isdotdot():
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		default:
			out = append(out, c)
		}
	}
	ret := ustr.Ustr{'/'}
	for i, c := range out {
		if i > 0 {
			ret = append(ret, '/')
		}
		ret = append(ret, c...)
	}
	return ret
}
