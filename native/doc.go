// Package native declares the boundary to the billing engine: opaque
// container handles, the error-state slot, and the session interfaces used
// for connection and opcode dispatch.
//
// Nothing in this package allocates engine memory. Implementations live
// elsewhere; native/mem is an in-process engine with allocation accounting.
package native
