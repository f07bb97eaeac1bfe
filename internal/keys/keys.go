// Package keys implements the TS 33.501/33.402 Annex A key-derivation
// functions the authentication core needs. The FC-keyed derivations
// (KAUSF for 5G-AKA, CK'/IK', RES*, KSEAF, KAMF) are grounded on
// github.com/free5gc/util/ueauth's generic KDF machinery, used the same
// way by free5gc/udm and free5gc/n3iwue. The EAP-AKA' PRF'/MK construction
// and the AT_MAC HMAC have no FC-keyed form in 33.501 and are grounded
// directly on free5gc/ausf's own eapAkaPrimePrf/CalculateAtMAC, which
// compute the identical primitives from the network side of the exchange.
package keys

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"regexp"

	"github.com/pkg/errors"

	"github.com/free5gc/util/ueauth"

	"github.com/free5gc/nasauth/internal/context"
)

// ConstructServingNetworkName builds the SNN ASCII string of §3: MNC is
// rendered with a leading zero when it is a two-digit code.
func ConstructServingNetworkName(plmn context.Plmn) string {
	mnc := plmn.Mnc
	if len(mnc) == 2 {
		mnc = "0" + mnc
	}
	return fmt.Sprintf("5G:mnc%s.mcc%s.3gppnetwork.org", mnc, plmn.Mcc)
}

// CalculateKAusfFor5gAka derives KAUSF for the 5G-AKA method per §4.2.
func CalculateKAusfFor5gAka(ck, ik []byte, snn string, sqnXorAk []byte) ([]byte, error) {
	key := append(append([]byte{}, ck...), ik...)
	p0 := []byte(snn)
	kAusf, err := ueauth.GetKDFValue(key, ueauth.FC_FOR_KAUSF_DERIVATION, p0, ueauth.KDFLen(p0), sqnXorAk, ueauth.KDFLen(sqnXorAk))
	if err != nil {
		return nil, errors.Wrap(err, "KAUSF (5G-AKA) derivation")
	}
	return kAusf, nil
}

// CalculateCkPrimeIkPrime derives CK'/IK' for EAP-AKA' per §4.2.
func CalculateCkPrimeIkPrime(ck, ik []byte, snn string, sqnXorAk []byte) (ckPrime, ikPrime []byte, err error) {
	key := append(append([]byte{}, ck...), ik...)
	p0 := []byte(snn)
	kdfVal, err := ueauth.GetKDFValue(key, ueauth.FC_FOR_CK_PRIME_IK_PRIME_DERIVATION, p0, ueauth.KDFLen(p0), sqnXorAk, ueauth.KDFLen(sqnXorAk))
	if err != nil {
		return nil, nil, errors.Wrap(err, "CK'/IK' derivation")
	}
	half := len(kdfVal) / 2
	return kdfVal[:half], kdfVal[half:], nil
}

var supiDigits = regexp.MustCompile(`(?:imsi|supi)-([0-9]{5,15})`)

func stripSupiPrefix(supi string) string {
	if m := supiDigits.FindStringSubmatch(supi); m != nil {
		return m[1]
	}
	return supi
}

// CalculateMk runs the RFC 5448 PRF' over CK'/IK' and SUPI, returning at
// least 208 bytes of master key material (MK[0:16)=K_encr, MK[16:48)=KAUT,
// MK[48:80)=K_re, MK[80:144)=MSK, MK[144:208)=EMSK).
func CalculateMk(ckPrime, ikPrime []byte, supi string) []byte {
	key := append(append([]byte{}, ikPrime...), ckPrime...)
	sBase := append([]byte("EAP-AKA'"), []byte(stripSupiPrefix(supi))...)

	var mk, prev []byte
	const prfRounds = 208/32 + 1
	for i := 0; i < prfRounds; i++ {
		h := hmac.New(sha256.New, key)
		block := append(append([]byte{}, prev...), sBase...)
		block = append(block, byte(i+1))
		_, _ = h.Write(block)
		sum := h.Sum(nil)
		mk = append(mk, sum...)
		prev = sum
	}
	return mk
}

// KAut returns KAUT = MK[16..48) per §4.2.
func KAut(mk []byte) []byte {
	return mk[16:48]
}

// CalculateKAusfForEapAkaPrime returns KAUSF_EAP = MK[144..176) per §4.2 —
// the first half of the PRF's 64-byte EMSK block, not the whole EMSK.
func CalculateKAusfForEapAkaPrime(mk []byte) []byte {
	return mk[144:176]
}

// CalculateMacForEapAkaPrime computes AT_MAC: HMAC-SHA-256 truncated to 16
// bytes over the whole EAP packet with its AT_MAC value field zeroed.
func CalculateMacForEapAkaPrime(kAut, eapWithZeroedMac []byte) []byte {
	h := hmac.New(sha256.New, kAut)
	_, _ = h.Write(eapWithZeroedMac)
	sum := h.Sum(nil)
	return sum[:16]
}

// CalculateResStar derives RES* for 5G-AKA per §4.2.
func CalculateResStar(ckIk []byte, snn string, rand, res []byte) ([]byte, error) {
	p0 := []byte(snn)
	kdfVal, err := ueauth.GetKDFValue(ckIk, ueauth.FC_FOR_RES_STAR_XRES_STAR_DERIVATION,
		p0, ueauth.KDFLen(p0), rand, ueauth.KDFLen(rand), res, ueauth.KDFLen(res))
	if err != nil {
		return nil, errors.Wrap(err, "RES* derivation")
	}
	return kdfVal[len(kdfVal)/2:], nil
}

// CalculateAuts builds AUTS = (SQN_MS xor AK_R) || MAC_S, 14 bytes.
func CalculateAuts(sqnMs, akR, macS []byte) ([]byte, error) {
	if len(sqnMs) != 6 || len(akR) != 6 {
		return nil, errors.New("AUTS: SQN_MS and AK_R must be 6 bytes")
	}
	sqnXorAkR := make([]byte, 6)
	for i := 0; i < 6; i++ {
		sqnXorAkR[i] = sqnMs[i] ^ akR[i]
	}
	return append(sqnXorAkR, macS...), nil
}

// DeriveKeysSeafAmf populates KSEAF then KAMF on nsCtx.Keys, using SUPI and
// ABBA per 33.501. KAUSF must already be set on nsCtx.Keys.
func DeriveKeysSeafAmf(supi string, plmn context.Plmn, nsCtx *context.NasSecurityContext) error {
	snn := ConstructServingNetworkName(plmn)
	p0 := []byte(snn)
	kSeaf, err := ueauth.GetKDFValue(nsCtx.Keys.KAusf, ueauth.FC_FOR_KSEAF_DERIVATION, p0, ueauth.KDFLen(p0))
	if err != nil {
		return errors.Wrap(err, "KSEAF derivation")
	}

	supiDigitsBytes := []byte(stripSupiPrefix(supi))
	abba := nsCtx.Keys.Abba
	if abba == nil {
		abba = []byte{0x00, 0x00}
	}
	kAmf, err := ueauth.GetKDFValue(kSeaf, ueauth.FC_FOR_KAMF_DERIVATION,
		supiDigitsBytes, ueauth.KDFLen(supiDigitsBytes), abba, ueauth.KDFLen(abba))
	if err != nil {
		return errors.Wrap(err, "KAMF derivation")
	}

	nsCtx.Keys.KSeaf = kSeaf
	nsCtx.Keys.KAmf = kAmf
	return nil
}
