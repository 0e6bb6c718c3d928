// Package typesys holds implementations of jitlayout.TypeSystem.
//
//	static/  classes described in YAML, any pointer size
//	witsys/  WebAssembly Interface Types, 32-bit canonical ABI
package typesys
