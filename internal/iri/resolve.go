// Package iri resolves relative IRI references (RFC 3986 section 5.2).
package iri

import "strings"

// IsAbsolute reports whether ref starts with a scheme.
func IsAbsolute(ref string) bool {
	for i := 0; i < len(ref); i++ {
		ch := ref[i]
		switch {
		case ch == ':':
			return i > 0
		case (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z'):
		case i > 0 && ((ch >= '0' && ch <= '9') || ch == '+' || ch == '-' || ch == '.'):
		default:
			return false
		}
	}
	return false
}

type parts struct {
	scheme, authority, path, query, fragment string
	hasAuthority, hasQuery, hasFragment      bool
}

func split(ref string) parts {
	var p parts
	if IsAbsolute(ref) {
		i := strings.IndexByte(ref, ':')
		p.scheme, ref = ref[:i], ref[i+1:]
	}
	if i := strings.IndexByte(ref, '#'); i >= 0 {
		p.fragment, p.hasFragment = ref[i+1:], true
		ref = ref[:i]
	}
	if i := strings.IndexByte(ref, '?'); i >= 0 {
		p.query, p.hasQuery = ref[i+1:], true
		ref = ref[:i]
	}
	if strings.HasPrefix(ref, "//") {
		ref = ref[2:]
		i := strings.IndexByte(ref, '/')
		if i < 0 {
			i = len(ref)
		}
		p.authority, p.hasAuthority = ref[:i], true
		ref = ref[i:]
	}
	p.path = ref
	return p
}

func (p parts) String() string {
	var b strings.Builder
	if p.scheme != "" {
		b.WriteString(p.scheme)
		b.WriteByte(':')
	}
	if p.hasAuthority {
		b.WriteString("//")
		b.WriteString(p.authority)
	}
	b.WriteString(p.path)
	if p.hasQuery {
		b.WriteByte('?')
		b.WriteString(p.query)
	}
	if p.hasFragment {
		b.WriteByte('#')
		b.WriteString(p.fragment)
	}
	return b.String()
}

// Resolve resolves ref against base. An empty base leaves ref unchanged.
func Resolve(base, ref string) string {
	if base == "" {
		return ref
	}
	r := split(ref)
	if r.scheme != "" {
		r.path = removeDotSegments(r.path)
		return r.String()
	}
	b := split(base)
	t := parts{scheme: b.scheme, fragment: r.fragment, hasFragment: r.hasFragment}
	switch {
	case r.hasAuthority:
		t.authority, t.hasAuthority = r.authority, true
		t.path = removeDotSegments(r.path)
		t.query, t.hasQuery = r.query, r.hasQuery
	case r.path == "":
		t.authority, t.hasAuthority = b.authority, b.hasAuthority
		t.path = b.path
		if r.hasQuery {
			t.query, t.hasQuery = r.query, true
		} else {
			t.query, t.hasQuery = b.query, b.hasQuery
		}
	default:
		t.authority, t.hasAuthority = b.authority, b.hasAuthority
		if strings.HasPrefix(r.path, "/") {
			t.path = removeDotSegments(r.path)
		} else {
			t.path = removeDotSegments(merge(b, r.path))
		}
		t.query, t.hasQuery = r.query, r.hasQuery
	}
	return t.String()
}

func merge(base parts, path string) string {
	if base.hasAuthority && base.path == "" {
		return "/" + path
	}
	i := strings.LastIndexByte(base.path, '/')
	if i < 0 {
		return path
	}
	return base.path[:i+1] + path
}

// removeDotSegments implements RFC 3986 section 5.2.4.
func removeDotSegments(path string) string {
	if !strings.Contains(path, ".") {
		return path
	}
	var out []string
	in := path
	for in != "" {
		switch {
		case strings.HasPrefix(in, "../"):
			in = in[3:]
		case strings.HasPrefix(in, "./"):
			in = in[2:]
		case strings.HasPrefix(in, "/./"):
			in = in[2:]
		case in == "/.":
			in = "/"
		case strings.HasPrefix(in, "/../"):
			in = in[3:]
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case in == "/..":
			in = "/"
			if len(out) > 0 {
				out = out[:len(out)-1]
			}
		case in == "." || in == "..":
			in = ""
		default:
			start := 0
			if in[0] == '/' {
				start = 1
			}
			end := strings.IndexByte(in[start:], '/')
			if end < 0 {
				end = len(in)
			} else {
				end += start
			}
			out = append(out, in[:end])
			in = in[end:]
		}
	}
	return strings.Join(out, "")
}
