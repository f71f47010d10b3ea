package security

import "crypto/rand"

// SealEnvelope encrypts the pair with a fresh per-share data key and wraps
// that key with the master cipher. The blob and the wrapped key are stored
// separately so rotating the master key never requires re-encrypting blobs.
func SealEnvelope(master CredentialCipher, pair CredentialPair) (blob, wrappedKey string, err error) {
	dataKey := make([]byte, KeySize)
	if _, err := rand.Read(dataKey); err != nil {
		return "", "", err
	}
	dk, err := NewAEADCipher(dataKey)
	if err != nil {
		return "", "", err
	}
	blob, err = SealCredentials(dk, pair)
	if err != nil {
		return "", "", err
	}
	wrappedKey, err = master.Encrypt(dataKey)
	if err != nil {
		return "", "", err
	}
	return blob, wrappedKey, nil
}

// OpenEnvelope unwraps the data key with the master cipher and decrypts the pair.
func OpenEnvelope(master CredentialCipher, blob, wrappedKey string) (CredentialPair, error) {
	dataKey, err := master.Decrypt(wrappedKey)
	if err != nil {
		return CredentialPair{}, err
	}
	dk, err := NewAEADCipher(dataKey)
	if err != nil {
		return CredentialPair{}, ErrDecrypt
	}
	return OpenCredentials(dk, blob)
}
