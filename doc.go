// Package oderive generates builders and structured debug formatting for
// annotated Go structs.
//
// The repository is laid out as:
//
//   - derive: the small runtime generated code calls into (Opt holders,
//     UnsetFieldError, DebugStruct)
//   - cmd/oderive: the generator command, run from //go:generate
//   - internal/*: the generation pipeline, from extraction through directive
//     parsing, shape classification and bound inference to synthesis
//   - examples/*: annotated structs with their checked-in generated code
//
// Annotate a struct:
//
//	//derive:builder debug
//	type Point struct {
//		x int
//		//derive:debug = "%b"
//		y int
//	}
//
// and go generate produces NewPointBuilder().X(3).Y(5).Build() together with
// a Format method printing Point { x: 3, y: 101 }.
package oderive
