package utils

import "math/rand"

const alphabet = "abcdefghijklmnopqrstuvwxyz"

// RandomAlphabetString returns a random lower-case string of the given
// length. Not cryptographically secure, only for things like temp DB names.
func RandomAlphabetString(length int) string {
	buf := make([]byte, length)
	for i := range buf {
		buf[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(buf)
}

// ContainsString returns true iff the provided string slice hay contains
// string needle.
func ContainsString(hay []string, needle string) bool {
	for _, str := range hay {
		if str == needle {
			return true
		}
	}
	return false
}

func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
