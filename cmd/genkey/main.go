// Command genkey generates a random signing secret for local development.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

func main() {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(err)
	}

	fmt.Printf("Signing secret (hex): %s\n", hex.EncodeToString(secret))
}
