// Copyright (c) WithSecure Corporation
// https://foundry.withsecure.com
//
// Use of this source code is governed by the license
// that can be found in the LICENSE file.

package main

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"

	"github.com/usbarmory/armory-trailer/enckey"
)

// passphraseSalt is fixed rather than random: this is a host-tool
// stand-in for the real secure-element-backed unwrapper of §6, used
// to let an operator recover a key slot from a recovery passphrase
// when no secure element is available, not a production key-wrap
// scheme.
var passphraseSalt = []byte("armory-trailer/enckey-recovery")

// pbkdf2Iter mirrors the teacher's own PBKDF2_ITER (crypto.go).
const pbkdf2Iter = 4096

// passphraseUnwrapper implements enckey.Unwrapper by deriving an
// AES-OFB/HMAC-SHA256 wrap key from a passphrase via PBKDF2, the same
// construction the teacher's encryptSNVS/decryptSNVS use for its
// persistent configuration blob (crypto.go), with the HMAC truncated
// to 16 bytes so IV(16)+ciphertext(16)+MAC(16) fits enckey.TLVSize.
type passphraseUnwrapper struct {
	Passphrase string
}

func (p passphraseUnwrapper) deriveKeys() (aesKey, macKey []byte) {
	derived := pbkdf2.Key([]byte(p.Passphrase), passphraseSalt, pbkdf2Iter, 32, sha256.New)
	return derived[:16], derived[16:]
}

// Unwrap recovers the plaintext key from tlv, formatted as
// iv(16) || ciphertext(16) || truncated-hmac(16).
func (p passphraseUnwrapper) Unwrap(tlv []byte) ([]byte, error) {
	if len(tlv) != enckey.TLVSize {
		return nil, errors.New("trailerctl: invalid TLV length")
	}

	aesKey, macKey := p.deriveKeys()

	iv := tlv[:aes.BlockSize]
	ciphertext := tlv[aes.BlockSize : enckey.TLVSize-aes.BlockSize]
	tag := tlv[enckey.TLVSize-aes.BlockSize:]

	mac := hmac.New(sha256.New, macKey)
	mac.Write(iv)
	mac.Write(ciphertext)

	if !hmac.Equal(tag, mac.Sum(nil)[:aes.BlockSize]) {
		return nil, errors.New("trailerctl: invalid TLV HMAC, wrong passphrase?")
	}

	block, err := aes.NewCipher(aesKey)
	if err != nil {
		return nil, err
	}

	key := make([]byte, len(ciphertext))
	cipher.NewOFB(block, iv).XORKeyStream(key, ciphertext)

	return key, nil
}
