// Package types defines the shared vocabulary of the flist toolkit: typed
// errors, field identifiers, coordinates and poids.
//
// A field identifier carries its data kind in the high byte, the same way the
// billing engine encodes it, so the kind of any field can be derived without
// a catalog lookup:
//
//	fld := types.MakeField(types.KindPoid, 16) // PIN_FLD_POID
//	fld.Kind()                                 // KindPoid
//
// Errors are classified by ErrKind. Engine failures surface as *NativeError,
// which always carries the engine's location, class, code and field.
//
// This package has no dependencies beyond the standard library.
package types
