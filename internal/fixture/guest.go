// Package fixture builds reference zigpkg modules for tests: an in-memory
// WASM guest module and a fake native library.
//
// Both implement the same transforms: compute(n) = n+2, add(n) = n+2 and
// addFoo(n) = n+1, overflowing when the result exceeds 32 bits.
package fixture

// Guest export names.
const (
	ExportCompute = "compute"
	ExportAdd     = "add"
	ExportAddFoo  = "add_foo"
)

// function indices; 0 is the imported env.overflow
const (
	funcOverflow = iota
	funcCompute
	funcAdd
	funcAddFoo
)

const (
	secType     = 0x01
	secImport   = 0x02
	secFunction = 0x03
	secExport   = 0x07
	secCode     = 0x0A

	kindFunc = 0x00
	valI32   = 0x7F
	valI64   = 0x7E
	funcForm = 0x60
)

type export struct {
	name string
	idx  uint32
}

// Guest returns a guest module exporting the named entry points. With no
// names it exports compute, add and add_foo:
//
//	(module
//	  (import "env" "overflow" (func $overflow))
//	  (func $compute (param i32) (result i32) ...)  ;; n+2, see addBody
//	  (func $add (param i32) (result i32) ...)      ;; n+2
//	  (func $add_foo (param i32) (result i32) ...)  ;; n+1
//	  (export "compute" (func $compute))
//	  (export "add" (func $add))
//	  (export "add_foo" (func $add_foo)))
func Guest(exports ...string) []byte {
	if len(exports) == 0 {
		exports = []string{ExportCompute, ExportAdd, ExportAddFoo}
	}
	var exps []export
	for _, name := range exports {
		switch name {
		case ExportCompute:
			exps = append(exps, export{name, funcCompute})
		case ExportAdd:
			exps = append(exps, export{name, funcAdd})
		case ExportAddFoo:
			exps = append(exps, export{name, funcAddFoo})
		}
	}
	return encodeModule(exps)
}

// GuestWrongSignature returns a module whose "compute" export is the
// re-exported overflow import, typed () -> (), next to a valid "add":
//
//	(module
//	  (import "env" "overflow" (func $overflow))
//	  ...
//	  (export "compute" (func $overflow))
//	  (export "add" (func $add)))
func GuestWrongSignature() []byte {
	return encodeModule([]export{
		{ExportCompute, funcOverflow},
		{ExportAdd, funcAdd},
	})
}

// MalformedGuest returns bytes that are readable but not a valid module: a
// correct header followed by a type section cut off after its count.
func MalformedGuest() []byte {
	return []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00, secType, 0x05, 0x01}
}

func encodeModule(exports []export) []byte {
	out := []byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}

	// type 0: () -> (), type 1: (i32) -> i32
	out = appendSection(out, secType, []byte{
		0x02,
		funcForm, 0x00, 0x00,
		funcForm, 0x01, valI32, 0x01, valI32,
	})

	var imp []byte
	imp = append(imp, 0x01)
	imp = appendName(imp, "env")
	imp = appendName(imp, "overflow")
	imp = append(imp, kindFunc, 0x00)
	out = appendSection(out, secImport, imp)

	out = appendSection(out, secFunction, []byte{0x03, 0x01, 0x01, 0x01})

	var exp []byte
	exp = appendULEB(exp, uint32(len(exports)))
	for _, e := range exports {
		exp = appendName(exp, e.name)
		exp = append(exp, kindFunc)
		exp = appendULEB(exp, e.idx)
	}
	out = appendSection(out, secExport, exp)

	var code []byte
	code = append(code, 0x03)
	for _, k := range []byte{2, 2, 1} {
		body := addBody(k)
		code = appendULEB(code, uint32(len(body)))
		code = append(code, body...)
	}
	return appendSection(out, secCode, code)
}

// addBody encodes the body of an n+k transform:
//
//	(func (param i32) (result i32)
//	  (local $r i64)
//	  (local.set $r (i64.add (i64.extend_i32_u (local.get 0)) (i64.const k)))
//	  (if (i64.gt_u (local.get $r) (i64.const 0xFFFFFFFF))
//	    (then (call $overflow) unreachable))
//	  (i32.wrap_i64 (local.get $r)))
func addBody(k byte) []byte {
	return []byte{
		// (local $r i64)
		0x01, 0x01, valI64,
		// local.get 0, i64.extend_i32_u, i64.const k, i64.add
		0x20, 0x00, 0xAD, 0x42, k, 0x7C,
		// local.tee $r, i64.const 0xFFFFFFFF, i64.gt_u
		0x22, 0x01, 0x42, 0xFF, 0xFF, 0xFF, 0xFF, 0x0F, 0x56,
		// if, call $overflow, unreachable, end
		0x04, 0x40, 0x10, funcOverflow, 0x00, 0x0B,
		// local.get $r, i32.wrap_i64, end
		0x20, 0x01, 0xA7, 0x0B,
	}
}

func appendSection(out []byte, id byte, content []byte) []byte {
	out = append(out, id)
	out = appendULEB(out, uint32(len(content)))
	return append(out, content...)
}

func appendName(out []byte, s string) []byte {
	out = appendULEB(out, uint32(len(s)))
	return append(out, s...)
}

func appendULEB(out []byte, v uint32) []byte {
	for {
		b := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			out = append(out, b|0x80)
			continue
		}
		return append(out, b)
	}
}
