// Package derive is the runtime imported by code that oderive generates.
//
// It is intentionally small. Generated builders keep every field in an Opt
// holder so "was a value supplied" is tracked separately from "is absence a
// legal final value", and report missing required fields as *UnsetFieldError.
// Generated Format methods delegate to DebugStruct so every record renders with
// the same named-struct layout:
//
//	Point { x: 1, y: 2 }
//
// or, with the '#' flag, the multi-line alternate form:
//
//	Point {
//	    x: 1,
//	    y: 2,
//	}
//
// Nothing here uses reflection for wiring; generated code calls these helpers
// with concrete types.
//
// Import
//
//	"github.com/sghaida/oderive/derive"
package derive
