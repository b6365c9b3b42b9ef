package rand

import (
	"crypto/rand"

	"github.com/sirupsen/logrus"
)

const (
	hexLetters = "0123456789abcdef"

	// IDLength matches the textual length of a Mongo ObjectID so ids look the same across dialects.
	IDLength = 24
)

// ID returns a random lowercase hex identifier of IDLength characters.
func ID() string {
	return StringWithHex(IDLength)
}

func StringWithHex(n int) string {
	return secureRandomString(hexLetters, n)
}

// secureRandomString returns a string of the requested length,
// made from the byte characters provided (only ASCII allowed).
// Uses crypto/rand for security. Will panic if len(availableCharBytes) > 256.
func secureRandomString(availableCharBytes string, length int) string {
	availableCharLength := len(availableCharBytes)
	if availableCharLength == 0 || availableCharLength > 256 {
		panic("availableCharBytes length must be greater than 0 and less than or equal to 256")
	}
	if length <= 0 {
		return ""
	}

	var bitLength byte
	for bits := availableCharLength - 1; bits != 0; bits >>= 1 {
		bitLength++
	}
	bitMask := byte(1<<bitLength - 1)

	bufferSize := length + length/3

	result := make([]byte, length)
	var randomBytes []byte
	for i, j := 0, 0; i < length; j++ {
		if j%bufferSize == 0 {
			randomBytes = secureRandomBytes(bufferSize)
		}
		if idx := int(randomBytes[j%bufferSize] & bitMask); idx < availableCharLength {
			result[i] = availableCharBytes[idx]
			i++
		}
	}

	return string(result)
}

// secureRandomBytes returns the requested number of bytes using crypto/rand
func secureRandomBytes(length int) []byte {
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		logrus.Fatal("Unable to generate random bytes")
	}
	return randomBytes
}
