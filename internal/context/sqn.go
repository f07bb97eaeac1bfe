package context

import "encoding/binary"

// Annex33102SqnManager is a minimal TS 33.102 Annex C freshness policy: a
// received SQN is fresh if it is strictly greater than the last accepted
// one, interpreted as a 48-bit big-endian counter. Accepting a SQN advances
// the stored value. This is a single-index scheme (the USIM here tracks one
// current SQN, not the multi-index array some Annex C implementation
// variants use) — adequate for the black-box contract the core requires.
type Annex33102SqnManager struct {
	sqn uint64
}

// NewAnnex33102SqnManager seeds the manager with the USIM's initial SQN.
func NewAnnex33102SqnManager(initial [6]byte) *Annex33102SqnManager {
	return &Annex33102SqnManager{sqn: sqnToUint64(initial)}
}

func (m *Annex33102SqnManager) GetSqn() [6]byte {
	return uint64ToSqn(m.sqn)
}

func (m *Annex33102SqnManager) CheckSqn(received [6]byte) bool {
	v := sqnToUint64(received)
	if v <= m.sqn {
		return false
	}
	m.sqn = v
	return true
}

func sqnToUint64(sqn [6]byte) uint64 {
	var buf [8]byte
	copy(buf[2:], sqn[:])
	return binary.BigEndian.Uint64(buf[:])
}

func uint64ToSqn(v uint64) [6]byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	var sqn [6]byte
	copy(sqn[:], buf[2:])
	return sqn
}
