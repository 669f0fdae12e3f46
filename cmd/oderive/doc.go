// Command oderive generates builders and structured Format methods for
// annotated Go structs.
//
// Mark a struct with a //derive: line in its doc comment and add a
// //go:generate directive to the same file:
//
//	//go:generate oderive generate
//
//	//derive:builder debug
//	type Command struct {
//		executable string //derive:debug = "%q"
//		//derive:builder(each = "arg")
//		args []string
//		currentDir *string
//	}
//
// go generate then writes command_derive.gen.go next to the source with:
//
//   - CommandBuilder, NewCommandBuilder and one setter per field, taking
//     string for currentDir
//   - Arg(string), appending one element to args, next to the bulk Args
//   - Build, which fails with *derive.UnsetFieldError for an unset plain
//     field, and MustBuild, which panics instead
//   - Command.Format, so fmt.Printf("%v", cmd) prints
//     Command { executable: "ls", args: [-l], currentDir: <nil> }
//     and "%#v" prints one field per line
//
// Field shapes
//
// A *T field is optional: its setter takes a T and Build leaves it nil when
// unset. A []T field is a sequence: Build yields an empty slice when unset
// and an each accessor appends to it.
// Any other field is required.
//
// Generic records
//
// For a generic record, every type parameter used directly, or through one
// pointer, slice or configured wrapper, is a bound of the Format method: its
// values are rendered. The bound is debug.bound, "any" by default, which every
// constraint satisfies. The generated doc comment lists these bounds; with a
// stricter bound such as fmt.Formatter, generate warns when a declared
// constraint does not embed it (debug.strict_bounds turns the warning into an
// error).
// A parameter reached only through other generic types, as in Marker[T], is
// not a bound.
//
// Record specs
//
// Inputs ending in .yaml, .yml or .json are record specs: a package name,
// its imports, and records with name, derive, params and fields (name, type,
// annotations). They produce the same output as the equivalent Go source.
//
// Commands
//
//	oderive generate [file|dir]...   write *_derive.gen.go files
//	oderive explain <file>...        describe records without writing
//	oderive watch [dir]...           regenerate on change
//	oderive version
//
// Configuration
//
// Settings come from ./.oderive.yaml (or --config), ODERIVE_* environment
// variables and flags, later sources winning:
//
//	runtime_import: github.com/sghaida/oderive/derive
//	out_suffix: _derive.gen.go
//	builder:
//	  suffix: Builder
//	  constructor_prefix: New
//	  must_build: true
//	debug:
//	  bound: any
//	  strict_bounds: false
//	  wrappers: [Option]
//	log:
//	  level: info
//	  format: console
//	jobs: 0
//
// Exit status is 0 on success, 1 when generation fails and 2 on usage errors.
package main
