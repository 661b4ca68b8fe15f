package rlp

import "errors"

// Decode failures, named to match the ten variants the core's RLP
// decoder is specified to surface.
var (
	ErrRlpIsTooShort               = errors.New("rlp: input is too short")
	ErrRlpIsTooBig                 = errors.New("rlp: input is too big")
	ErrRlpExpectedToBeList         = errors.New("rlp: expected list")
	ErrRlpExpectedToBeData         = errors.New("rlp: expected data")
	ErrRlpIncorrectListLen         = errors.New("rlp: incorrect list length")
	ErrRlpDataLenWithZeroPrefix    = errors.New("rlp: data length with leading zero byte")
	ErrRlpListLenWithZeroPrefix    = errors.New("rlp: list length with leading zero byte")
	ErrRlpInvalidIndirection       = errors.New("rlp: invalid indirection (non-minimal integer encoding)")
	ErrRlpInconsistentLengthAndData = errors.New("rlp: trailing bytes after the encoded value")
	ErrRlpInvalidLength            = errors.New("rlp: invalid length header")
)
