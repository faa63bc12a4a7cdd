// Sends a signed vendor return callback to a running server. With no -key it
// generates an ephemeral RSA keypair and prints the matching public key so
// the server can be pointed at it (VENDOR_PUBLIC_KEY_B64).
package main

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/maysqunaibi/strollers-backend/internal/trx"
)

func main() {
	url := flag.String("url", "http://localhost:4000/handcart/callback", "Callback URL")
	keyB64 := flag.String("key", os.Getenv("VENDOR_PRIVATE_KEY_B64"), "Vendor RSA private key (base64 PKCS#8 DER)")
	merchantNo := flag.String("merchant-no", "M0001", "Merchant number")
	deviceNo := flag.String("device-no", "D0001", "Reporting device number")
	cartNo := flag.String("cart-no", "IC123456", "Cart IC number (empty to omit)")
	cartIndex := flag.Int("cart-index", 1, "Cart slot index")
	electricity := flag.Float64("electricity", 88, "Battery level reported by the cart")
	envelopeSign := flag.Bool("envelope", false, "Sign the {merchantNo, originalData} envelope instead of the bare payload")
	dryRun := flag.Bool("dry-run", false, "Only print the request body, don't send")

	flag.Parse()

	var priv *rsa.PrivateKey
	var err error
	if *keyB64 != "" {
		priv, err = trx.ParsePrivateKey(*keyB64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing key: %v\n", err)
			os.Exit(1)
		}
	} else {
		priv, err = rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error generating key: %v\n", err)
			os.Exit(1)
		}
		pubDER, err := x509.MarshalPKIXPublicKey(&priv.PublicKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding public key: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("VENDOR_PUBLIC_KEY_B64=%s\n\n", base64.StdEncoding.EncodeToString(pubDER))
	}

	originalData := map[string]any{
		"cartIndex":   *cartIndex,
		"deviceNo":    *deviceNo,
		"electricity": *electricity,
	}
	if *cartNo != "" {
		originalData["cartNo"] = *cartNo
	}

	// Sign over the same canonical bytes the server's verifier rebuilds.
	signed := any(originalData)
	if *envelopeSign {
		signed = map[string]any{"merchantNo": *merchantNo, "originalData": originalData}
	}
	canonical, err := trx.Canonicalize(signed)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error canonicalizing: %v\n", err)
		os.Exit(1)
	}
	digest := sha256.Sum256(canonical)
	sig, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA256, digest[:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing: %v\n", err)
		os.Exit(1)
	}

	body, err := json.Marshal(map[string]any{
		"merchantNo":   *merchantNo,
		"sign":         base64.StdEncoding.EncodeToString(sig),
		"originalData": originalData,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling body: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Canonical: %s\n", canonical)
	fmt.Printf("Body: %s\n", body)

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	resp, err := http.Post(*url, "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", respBody)

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}
