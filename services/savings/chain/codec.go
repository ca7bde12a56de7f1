package savingschain

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// accountDiscriminator is the eight byte prefix the program writes before
// every account of the named type.
func accountDiscriminator(name string) bin.TypeID {
	return bin.SighashTypeID(bin.SIGHASH_ACCOUNT_NAMESPACE, name)
}

// instructionDiscriminator prefixes the arguments of the named instruction.
func instructionDiscriminator(name string) bin.TypeID {
	return bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, name)
}

// =============================================================================
// Encoding
// =============================================================================

// argWriter Borsh-encodes fields in declaration order. The first error is
// kept and reported by bytes.
type argWriter struct {
	buf bytes.Buffer
	enc *bin.Encoder
	err error
}

func newArgWriter(disc bin.TypeID) *argWriter {
	w := &argWriter{}
	w.enc = bin.NewBorshEncoder(&w.buf)
	return w.raw(disc[:])
}

func (w *argWriter) do(fn func() error) *argWriter {
	if w.err == nil {
		w.err = fn()
	}
	return w
}

func (w *argWriter) raw(b []byte) *argWriter {
	return w.do(func() error { return w.enc.WriteBytes(b, false) })
}

func (w *argWriter) u8(v uint8) *argWriter {
	return w.do(func() error { return w.enc.WriteUint8(v) })
}

func (w *argWriter) u64(v uint64) *argWriter {
	return w.do(func() error { return w.enc.WriteUint64(v, bin.LE) })
}

func (w *argWriter) i64(v int64) *argWriter {
	return w.do(func() error { return w.enc.WriteInt64(v, bin.LE) })
}

// str writes a u32 length prefix followed by the UTF-8 bytes.
func (w *argWriter) str(s string) *argWriter {
	return w.do(func() error { return w.enc.WriteString(s) })
}

func (w *argWriter) optionU8(v *uint8) *argWriter {
	w.do(func() error { return w.enc.WriteOption(v != nil) })
	if v != nil {
		w.u8(*v)
	}
	return w
}

func (w *argWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

// =============================================================================
// Decoding
// =============================================================================

// errShortAccount is returned when account data ends before the layout does.
var errShortAccount = errors.New("unexpected end of account data")

// accountReader decodes a Borsh account after checking its discriminator.
// Reads after the first failure return zero values; check err once at the end.
type accountReader struct {
	dec *bin.Decoder
	err error
}

func newAccountReader(data []byte, name string) *accountReader {
	r := &accountReader{dec: bin.NewBorshDecoder(data)}
	want := accountDiscriminator(name)
	got, err := r.dec.ReadTypeID()
	switch {
	case err != nil:
		r.err = fmt.Errorf("%w: %v", errShortAccount, err)
	case got != want:
		r.err = fmt.Errorf("account discriminator mismatch: got %x, want %x", got[:], want[:])
	}
	return r
}

func readField[T any](r *accountReader, fn func() (T, error)) T {
	var zero T
	if r.err != nil {
		return zero
	}
	v, err := fn()
	if err != nil {
		r.err = fmt.Errorf("%w: %v", errShortAccount, err)
		return zero
	}
	return v
}

func (r *accountReader) u8() uint8 {
	return readField(r, r.dec.ReadUint8)
}

func (r *accountReader) u16() uint16 {
	return readField(r, func() (uint16, error) { return r.dec.ReadUint16(bin.LE) })
}

func (r *accountReader) u32() uint32 {
	return readField(r, func() (uint32, error) { return r.dec.ReadUint32(bin.LE) })
}

func (r *accountReader) u64() uint64 {
	return readField(r, func() (uint64, error) { return r.dec.ReadUint64(bin.LE) })
}

func (r *accountReader) i64() int64 {
	return readField(r, func() (int64, error) { return r.dec.ReadInt64(bin.LE) })
}

// boolean accepts only 0 and 1.
func (r *accountReader) boolean() bool {
	b := r.u8()
	if r.err == nil && b > 1 {
		r.err = fmt.Errorf("invalid bool byte %d", b)
	}
	return b == 1
}

func (r *accountReader) str() string {
	s := readField(r, r.dec.ReadString)
	if r.err == nil && !utf8.ValidString(s) {
		r.err = errors.New("string is not valid UTF-8")
	}
	return s
}

func (r *accountReader) pubkey() solana.PublicKey {
	raw := readField(r, func() ([]byte, error) { return r.dec.ReadNBytes(solana.PublicKeyLength) })
	if r.err != nil {
		return solana.PublicKey{}
	}
	return solana.PublicKeyFromBytes(raw)
}

// optionU8 reads a Borsh Option<u8>: a 0/1 tag, then the value when present.
func (r *accountReader) optionU8() *uint8 {
	tag := r.u8()
	if r.err != nil {
		return nil
	}
	switch tag {
	case 0:
		return nil
	case 1:
		v := r.u8()
		if r.err != nil {
			return nil
		}
		return &v
	default:
		r.err = fmt.Errorf("invalid option tag %d", tag)
		return nil
	}
}
