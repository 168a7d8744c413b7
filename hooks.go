package errplain

var hooks []Option

// AddHooks installs a global set of Options which are applied to every call to Flatten,
// before the options passed to the call.  Integration packages use this to register
// Inspectors and MarshalFuncs for the error libraries they understand, e.g.
//
//	func init() {
//		pkgerrors.Install()
//	}
//
// This function is not thread safe, and should only be called very early in program
// initialization.
func AddHooks(hook ...Option) {
	hooks = append(hooks, hook...)
}

// ClearHooks removes all installed hooks.
//
// This function is not thread safe, and should only be called very early in program
// initialization.
func ClearHooks() {
	hooks = nil
}
