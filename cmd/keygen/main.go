package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
)

// keygen prints a fresh inbound API key and the config.yaml snippet that
// installs it.
func main() {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		log.Fatalf("Failed to generate key material: %v", err)
	}
	key := "vcg_" + hex.EncodeToString(raw)

	fmt.Printf("API Key: %s\n", key)
	fmt.Println("\nAdd this to your config.yaml:")
	fmt.Println("server:")
	fmt.Println("  api_keys:")
	fmt.Printf("    - %q\n", key)
	fmt.Println("\nOr set it via the environment:")
	fmt.Printf("  VCG_SERVER__API_KEYS=%s\n", key)
}
