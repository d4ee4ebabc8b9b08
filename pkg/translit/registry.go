package translit

// Factory builds a fresh Method instance for one configured input
// method name. Unknown names fall back to NoIME rather than failing
// the whole Set, since an unrecognized method is a configuration
// mismatch, not a fatal error (consistent with keymap's "surfaced, not
// fatal" posture for bad bindings).
func Factory(name string) Method {
	switch name {
	case "NoIME", "":
		return NoIME{}
	case "hi-itrans":
		return NewITRANSDevanagari()
	default:
		log.Warnf("unknown input method %q, falling back to NoIME", name)
		return NoIME{}
	}
}

// BuildSet constructs a Set from the configured input-method names in
// priority order (spec §6 "inputmethod" option).
func BuildSet(names []string) *Set {
	methods := make([]Method, 0, len(names))
	for _, n := range names {
		methods = append(methods, Factory(n))
	}
	if len(methods) == 0 {
		methods = append(methods, NoIME{})
	}
	return NewSet(methods...)
}
