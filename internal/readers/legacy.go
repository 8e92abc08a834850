package readers

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/hex"
	"errors"
	"strings"
)

const legacyKeySize = 32

var errLegacyFormat = errors.New("malformed legacy password")

// isLegacy reports whether stored is an "ivhex:cipherhex" AES-256-CBC value
// rather than a bcrypt hash.
func isLegacy(stored string) bool {
	if strings.HasPrefix(stored, "$2") {
		return false
	}
	iv, ct, ok := strings.Cut(stored, ":")
	if !ok || len(iv) != 2*aes.BlockSize || len(ct) == 0 {
		return false
	}
	_, err1 := hex.DecodeString(iv)
	_, err2 := hex.DecodeString(ct)
	return err1 == nil && err2 == nil
}

func decryptLegacy(key []byte, stored string) (string, error) {
	ivHex, ctHex, _ := strings.Cut(stored, ":")
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return "", errLegacyFormat
	}
	ct, err := hex.DecodeString(ctHex)
	if err != nil || len(ct) == 0 || len(ct)%aes.BlockSize != 0 {
		return "", errLegacyFormat
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	plain := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plain, ct)

	pad := int(plain[len(plain)-1])
	if pad == 0 || pad > aes.BlockSize || pad > len(plain) {
		return "", errLegacyFormat
	}
	if !bytes.Equal(plain[len(plain)-pad:], bytes.Repeat([]byte{byte(pad)}, pad)) {
		return "", errLegacyFormat
	}
	return string(plain[:len(plain)-pad]), nil
}
